package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

type syncPlanStore interface {
	GetOrCreate(ctx context.Context, exec sqlx.ExtContext, userID string, weekStart time.Time, source string) (*models.WeeklyPlan, error)
}

type syncBlockStore interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, blocks []models.PlanBlock) error
	DeleteByGroupBlock(ctx context.Context, exec sqlx.ExtContext, groupBlockID string) error
}

// PlanSynchronizer fans canonical group blocks out into member weekly plans.
// It always runs inside the transaction that wrote the canonical rows, so a
// member plan can never show a group schedule the group does not have.
type PlanSynchronizer struct {
	plans  syncPlanStore
	blocks syncBlockStore
}

// NewPlanSynchronizer wires the synchronizer.
func NewPlanSynchronizer(plans syncPlanStore, blocks syncBlockStore) *PlanSynchronizer {
	return &PlanSynchronizer{plans: plans, blocks: blocks}
}

// SyncGroupBlocks inserts one group-kind copy of every canonical block into
// each approved member's plan for the week, creating plans as needed. Stale
// copies of replaced canonical rows are removed by the foreign key cascade
// when the canonical rows themselves are deleted.
func (s *PlanSynchronizer) SyncGroupBlocks(ctx context.Context, exec sqlx.ExtContext, weekStart time.Time, canonical []models.GroupPlanBlock, memberIDs []string) error {
	if len(canonical) == 0 {
		return nil
	}
	for _, userID := range memberIDs {
		plan, err := s.plans.GetOrCreate(ctx, exec, userID, weekStart, models.PlanSourceAuto)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get member plan")
		}
		copies := make([]models.PlanBlock, 0, len(canonical))
		for _, block := range canonical {
			groupBlockID := block.ID
			copies = append(copies, models.PlanBlock{
				ID:           uuid.NewString(),
				PlanID:       plan.ID,
				CourseID:     block.CourseID,
				Kind:         models.BlockKindGroup,
				DayOfWeek:    block.DayOfWeek,
				StartTime:    block.StartTime,
				EndTime:      block.EndTime,
				Origin:       models.BlockOriginAuto,
				GroupBlockID: &groupBlockID,
			})
		}
		if err := s.blocks.InsertBatch(ctx, exec, copies); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert member copies")
		}
	}
	return nil
}

// ResyncBlock rewrites member copies of a single canonical block after an
// approved change. Old copies are dropped and fresh ones inserted so every
// member sees the new interval atomically.
func (s *PlanSynchronizer) ResyncBlock(ctx context.Context, exec sqlx.ExtContext, block *models.GroupPlanBlock, memberIDs []string) error {
	if err := s.blocks.DeleteByGroupBlock(ctx, exec, block.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop stale copies")
	}
	return s.SyncGroupBlocks(ctx, exec, block.WeekStart, []models.GroupPlanBlock{*block}, memberIDs)
}
