package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// GroupPlanBlockRepository manages canonical group meeting slots. These rows
// are the single source of truth fanned out into member plans.
type GroupPlanBlockRepository struct {
	db *sqlx.DB
}

// NewGroupPlanBlockRepository builds the repository.
func NewGroupPlanBlockRepository(db *sqlx.DB) *GroupPlanBlockRepository {
	return &GroupPlanBlockRepository{db: db}
}

func (r *GroupPlanBlockRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const groupBlockColumns = `id, group_id, week_start, course_id, day_of_week, start_time, end_time, created_by, created_at, updated_at`

// FindByID loads one canonical block.
func (r *GroupPlanBlockRepository) FindByID(ctx context.Context, id string) (*models.GroupPlanBlock, error) {
	const query = `SELECT ` + groupBlockColumns + ` FROM group_plan_blocks WHERE id = $1`
	var block models.GroupPlanBlock
	if err := r.db.GetContext(ctx, &block, query, id); err != nil {
		return nil, err
	}
	return &block, nil
}

// ListByGroupWeek returns the group's canonical blocks for a week.
func (r *GroupPlanBlockRepository) ListByGroupWeek(ctx context.Context, groupID string, weekStart time.Time) ([]models.GroupPlanBlock, error) {
	const query = `SELECT ` + groupBlockColumns + `
FROM group_plan_blocks WHERE group_id = $1 AND week_start = $2
ORDER BY day_of_week ASC, start_time ASC`
	var blocks []models.GroupPlanBlock
	if err := r.db.SelectContext(ctx, &blocks, query, groupID, weekStart); err != nil {
		return nil, fmt.Errorf("list group plan blocks: %w", err)
	}
	return blocks, nil
}

// ListByUserWeek returns canonical blocks of every group the user belongs to.
func (r *GroupPlanBlockRepository) ListByUserWeek(ctx context.Context, userID string, weekStart time.Time) ([]models.GroupPlanBlock, error) {
	const query = `SELECT b.id, b.group_id, b.week_start, b.course_id, b.day_of_week, b.start_time, b.end_time, b.created_by, b.created_at, b.updated_at
FROM group_plan_blocks b JOIN group_members m ON m.group_id = b.group_id
WHERE m.user_id = $1 AND m.status = $2 AND b.week_start = $3
ORDER BY b.day_of_week ASC, b.start_time ASC`
	var blocks []models.GroupPlanBlock
	if err := r.db.SelectContext(ctx, &blocks, query, userID, models.MemberStatusApproved, weekStart); err != nil {
		return nil, fmt.Errorf("list group plan blocks by user: %w", err)
	}
	return blocks, nil
}

// ReplaceForGroupWeek swaps the group's canonical blocks for a week. Runs
// inside the caller's transaction together with the member fan-out.
func (r *GroupPlanBlockRepository) ReplaceForGroupWeek(ctx context.Context, exec sqlx.ExtContext, groupID string, weekStart time.Time, blocks []models.GroupPlanBlock) error {
	target := r.exec(exec)

	const clear = `DELETE FROM group_plan_blocks WHERE group_id = $1 AND week_start = $2`
	if _, err := target.ExecContext(ctx, clear, groupID, weekStart); err != nil {
		return fmt.Errorf("clear group plan blocks: %w", err)
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO group_plan_blocks (id, group_id, week_start, course_id, day_of_week, start_time, end_time, created_by, created_at, updated_at)
VALUES (:id, :group_id, :week_start, :course_id, :day_of_week, :start_time, :end_time, :created_by, :created_at, :updated_at)`
	for i := range blocks {
		block := &blocks[i]
		if block.ID == "" {
			block.ID = uuid.NewString()
		}
		if block.CreatedAt.IsZero() {
			block.CreatedAt = now
		}
		block.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, insert, block); err != nil {
			return fmt.Errorf("insert group plan block: %w", err)
		}
	}
	return nil
}

// UpdateInterval rewrites the canonical slot after an approved change request.
func (r *GroupPlanBlockRepository) UpdateInterval(ctx context.Context, exec sqlx.ExtContext, id string, day int, startTime, endTime string) error {
	const query = `UPDATE group_plan_blocks SET day_of_week = $2, start_time = $3, end_time = $4, updated_at = NOW() WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, day, startTime, endTime); err != nil {
		return fmt.Errorf("update group plan block interval: %w", err)
	}
	return nil
}
