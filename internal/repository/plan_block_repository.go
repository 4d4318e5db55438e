package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// PlanBlockRepository manages placed blocks inside weekly plans.
type PlanBlockRepository struct {
	db *sqlx.DB
}

// NewPlanBlockRepository builds the repository.
func NewPlanBlockRepository(db *sqlx.DB) *PlanBlockRepository {
	return &PlanBlockRepository{db: db}
}

func (r *PlanBlockRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const planBlockColumns = `id, plan_id, course_id, kind, day_of_week, start_time, end_time, locked, origin, group_block_id, created_at`

// ListByPlan returns a plan's blocks in chronological order.
func (r *PlanBlockRepository) ListByPlan(ctx context.Context, planID string) ([]models.PlanBlock, error) {
	const query = `SELECT ` + planBlockColumns + `
FROM plan_blocks WHERE plan_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var blocks []models.PlanBlock
	if err := r.db.SelectContext(ctx, &blocks, query, planID); err != nil {
		return nil, fmt.Errorf("list plan blocks: %w", err)
	}
	return blocks, nil
}

// ListByUserWeek returns the blocks committed to a user's plan for a week.
func (r *PlanBlockRepository) ListByUserWeek(ctx context.Context, userID string, weekStart time.Time) ([]models.PlanBlock, error) {
	const query = `SELECT b.id, b.plan_id, b.course_id, b.kind, b.day_of_week, b.start_time, b.end_time, b.locked, b.origin, b.group_block_id, b.created_at
FROM plan_blocks b JOIN weekly_plans p ON p.id = b.plan_id
WHERE p.user_id = $1 AND p.week_start = $2
ORDER BY b.day_of_week ASC, b.start_time ASC`
	var blocks []models.PlanBlock
	if err := r.db.SelectContext(ctx, &blocks, query, userID, weekStart); err != nil {
		return nil, fmt.Errorf("list plan blocks by user week: %w", err)
	}
	return blocks, nil
}

// FindByID loads one block.
func (r *PlanBlockRepository) FindByID(ctx context.Context, blockID string) (*models.PlanBlock, error) {
	const query = `SELECT ` + planBlockColumns + ` FROM plan_blocks WHERE id = $1`
	var block models.PlanBlock
	if err := r.db.GetContext(ctx, &block, query, blockID); err != nil {
		return nil, err
	}
	return &block, nil
}

// InsertBatch persists new blocks. Missing IDs and timestamps are filled in.
func (r *PlanBlockRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, blocks []models.PlanBlock) error {
	if len(blocks) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO plan_blocks (id, plan_id, course_id, kind, day_of_week, start_time, end_time, locked, origin, group_block_id, created_at)
VALUES (:id, :plan_id, :course_id, :kind, :day_of_week, :start_time, :end_time, :locked, :origin, :group_block_id, :created_at)`

	for i := range blocks {
		block := &blocks[i]
		if block.ID == "" {
			block.ID = uuid.NewString()
		}
		if block.CreatedAt.IsZero() {
			block.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, block); err != nil {
			return fmt.Errorf("insert plan block: %w", err)
		}
	}
	return nil
}

// DeleteUnlocked clears a plan's regenerable blocks, preserving manually
// locked ones. Used by idempotent regeneration.
func (r *PlanBlockRepository) DeleteUnlocked(ctx context.Context, exec sqlx.ExtContext, planID string) error {
	const query = `DELETE FROM plan_blocks WHERE plan_id = $1 AND locked = FALSE`
	if _, err := r.exec(exec).ExecContext(ctx, query, planID); err != nil {
		return fmt.Errorf("delete unlocked plan blocks: %w", err)
	}
	return nil
}

// DeleteByGroupBlock removes every member copy of a canonical group block.
func (r *PlanBlockRepository) DeleteByGroupBlock(ctx context.Context, exec sqlx.ExtContext, groupBlockID string) error {
	const query = `DELETE FROM plan_blocks WHERE group_block_id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, groupBlockID); err != nil {
		return fmt.Errorf("delete group block copies: %w", err)
	}
	return nil
}

// UpdateInterval moves or resizes one block and records the edit origin.
func (r *PlanBlockRepository) UpdateInterval(ctx context.Context, exec sqlx.ExtContext, blockID string, day int, startTime, endTime, origin string, locked bool) error {
	const query = `UPDATE plan_blocks SET day_of_week = $2, start_time = $3, end_time = $4, origin = $5, locked = $6 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, blockID, day, startTime, endTime, origin, locked); err != nil {
		return fmt.Errorf("update plan block interval: %w", err)
	}
	return nil
}
