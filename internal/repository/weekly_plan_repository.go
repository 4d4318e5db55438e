package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// WeeklyPlanRepository manages plan rows. Block rows live in
// PlanBlockRepository.
type WeeklyPlanRepository struct {
	db *sqlx.DB
}

// NewWeeklyPlanRepository builds the repository.
func NewWeeklyPlanRepository(db *sqlx.DB) *WeeklyPlanRepository {
	return &WeeklyPlanRepository{db: db}
}

func (r *WeeklyPlanRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByUserWeek loads the plan for a user/week, or sql.ErrNoRows.
func (r *WeeklyPlanRepository) FindByUserWeek(ctx context.Context, userID string, weekStart time.Time) (*models.WeeklyPlan, error) {
	const query = `SELECT id, user_id, week_start, source, created_at, updated_at
FROM weekly_plans WHERE user_id = $1 AND week_start = $2`
	var plan models.WeeklyPlan
	if err := sqlx.GetContext(ctx, r.db, &plan, query, userID, weekStart); err != nil {
		return nil, err
	}
	return &plan, nil
}

// FindByID loads one plan, or sql.ErrNoRows.
func (r *WeeklyPlanRepository) FindByID(ctx context.Context, planID string) (*models.WeeklyPlan, error) {
	const query = `SELECT id, user_id, week_start, source, created_at, updated_at
FROM weekly_plans WHERE id = $1`
	var plan models.WeeklyPlan
	if err := sqlx.GetContext(ctx, r.db, &plan, query, planID); err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetOrCreate returns the plan for a user/week, inserting it when absent.
// One plan exists per user per week.
func (r *WeeklyPlanRepository) GetOrCreate(ctx context.Context, exec sqlx.ExtContext, userID string, weekStart time.Time, source string) (*models.WeeklyPlan, error) {
	target := r.exec(exec)

	const query = `SELECT id, user_id, week_start, source, created_at, updated_at
FROM weekly_plans WHERE user_id = $1 AND week_start = $2`
	var plan models.WeeklyPlan
	err := sqlx.GetContext(ctx, target, &plan, query, userID, weekStart)
	if err == nil {
		return &plan, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find weekly plan: %w", err)
	}

	now := time.Now().UTC()
	plan = models.WeeklyPlan{
		ID:        uuid.NewString(),
		UserID:    userID,
		WeekStart: weekStart,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	const insert = `INSERT INTO weekly_plans (id, user_id, week_start, source, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (user_id, week_start) DO UPDATE SET source = EXCLUDED.source, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	row := target.QueryRowxContext(ctx, insert, plan.ID, userID, weekStart, source, now)
	if err := row.Scan(&plan.ID, &plan.CreatedAt); err != nil {
		return nil, fmt.Errorf("create weekly plan: %w", err)
	}
	return &plan, nil
}

// TouchSource updates the generation source marker for a plan.
func (r *WeeklyPlanRepository) TouchSource(ctx context.Context, exec sqlx.ExtContext, planID, source string) error {
	const query = `UPDATE weekly_plans SET source = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, planID, source); err != nil {
		return fmt.Errorf("touch weekly plan source: %w", err)
	}
	return nil
}
