package service

import (
	"context"
	"time"

	"github.com/noah-isme/study-planner-api/internal/models"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

type availabilityConstraintReader interface {
	ListForUserWeek(ctx context.Context, userID string, weekStart time.Time) ([]models.Constraint, error)
}

type availabilityBlockReader interface {
	ListByUserWeek(ctx context.Context, userID string, weekStart time.Time) ([]models.PlanBlock, error)
}

// AvailabilityService derives free time from constraints and placed blocks.
// It has no side effects; results are a pure function of stored state.
type AvailabilityService struct {
	constraints availabilityConstraintReader
	blocks      availabilityBlockReader
	horizon     Interval
}

// NewAvailabilityService wires the calculator.
func NewAvailabilityService(constraints availabilityConstraintReader, blocks availabilityBlockReader, horizon Interval) *AvailabilityService {
	return &AvailabilityService{constraints: constraints, blocks: blocks, horizon: horizon}
}

// Horizon exposes the configured daily planning window.
func (s *AvailabilityService) Horizon() Interval {
	return s.horizon
}

// FreeIntervals returns per-day free intervals for one user: the horizon
// minus hard constraints and every already-placed block.
func (s *AvailabilityService) FreeIntervals(ctx context.Context, userID string, weekStart time.Time) (map[int][]Interval, error) {
	constraints, err := s.constraints.ListForUserWeek(ctx, userID, weekStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load constraints")
	}
	blocks, err := s.blocks.ListByUserWeek(ctx, userID, weekStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan blocks")
	}
	return freeFromState(s.horizon, constraints, blocks), nil
}

// CommonFreeIntervals intersects the free intervals of every listed user. A
// group meeting must fit all members, so an empty result for some day simply
// means that day is unusable.
func (s *AvailabilityService) CommonFreeIntervals(ctx context.Context, userIDs []string, weekStart time.Time) (map[int][]Interval, error) {
	common := make(map[int][]Interval, 7)
	for day := 0; day < 7; day++ {
		common[day] = []Interval{s.horizon}
	}
	for _, userID := range userIDs {
		free, err := s.FreeIntervals(ctx, userID, weekStart)
		if err != nil {
			return nil, err
		}
		for day := 0; day < 7; day++ {
			common[day] = intersectIntervals(common[day], free[day])
		}
	}
	return common, nil
}

// freeFromState computes per-day free intervals from loaded state. Soft
// constraints do not reduce availability; they only bias placement later.
func freeFromState(horizon Interval, constraints []models.Constraint, blocks []models.PlanBlock) map[int][]Interval {
	busy := make(map[int][]Interval, 7)
	for _, constraint := range constraints {
		if !constraint.IsHard {
			continue
		}
		window, err := parseInterval(constraint.StartTime, constraint.EndTime)
		if err != nil {
			continue
		}
		for _, day := range constraint.Days {
			busy[int(day)] = append(busy[int(day)], window)
		}
	}
	for _, block := range blocks {
		window, err := parseInterval(block.StartTime, block.EndTime)
		if err != nil {
			continue
		}
		busy[block.DayOfWeek] = append(busy[block.DayOfWeek], window)
	}

	free := make(map[int][]Interval, 7)
	for day := 0; day < 7; day++ {
		free[day] = subtractIntervals([]Interval{horizon}, busy[day])
	}
	return free
}
