package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-planner-api/internal/models"
)

type constraintReaderStub struct {
	byUser map[string][]models.Constraint
}

func (s constraintReaderStub) ListForUserWeek(ctx context.Context, userID string, weekStart time.Time) ([]models.Constraint, error) {
	return s.byUser[userID], nil
}

func (s constraintReaderStub) ListForUsersWeek(ctx context.Context, userIDs []string, weekStart time.Time) (map[string][]models.Constraint, error) {
	result := make(map[string][]models.Constraint, len(userIDs))
	for _, id := range userIDs {
		result[id] = s.byUser[id]
	}
	return result, nil
}

type blockReaderStub struct {
	byUser map[string][]models.PlanBlock
}

func (s blockReaderStub) ListByUserWeek(ctx context.Context, userID string, weekStart time.Time) ([]models.PlanBlock, error) {
	return s.byUser[userID], nil
}

func testWeek() time.Time {
	return time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
}

func TestAvailabilityFreeIntervals(t *testing.T) {
	svc := NewAvailabilityService(
		constraintReaderStub{byUser: map[string][]models.Constraint{
			"alice": {
				{Title: "lectures", Days: []int64{1}, StartTime: "09:00", EndTime: "12:00", IsHard: true},
				{Title: "soft bias", Days: []int64{1}, StartTime: "13:00", EndTime: "14:00", IsHard: false},
			},
		}},
		blockReaderStub{byUser: map[string][]models.PlanBlock{
			"alice": {
				{DayOfWeek: 1, StartTime: "18:00", EndTime: "20:00"},
			},
		}},
		testHorizon(),
	)

	free, err := svc.FreeIntervals(context.Background(), "alice", testWeek())
	require.NoError(t, err)

	// Monday: horizon minus the lecture and the placed block. The soft
	// constraint does not reduce free time.
	assert.Equal(t, []Interval{
		{Start: 480, End: 540},
		{Start: 720, End: 1080},
		{Start: 1200, End: 1320},
	}, free[1])

	// Untouched days are the full horizon.
	assert.Equal(t, []Interval{testHorizon()}, free[2])
}

func TestAvailabilityCommonFreeIntervals(t *testing.T) {
	svc := NewAvailabilityService(
		constraintReaderStub{byUser: map[string][]models.Constraint{
			"alice": {{Days: []int64{2}, StartTime: "08:00", EndTime: "12:00", IsHard: true}},
			"bob":   {{Days: []int64{2}, StartTime: "15:00", EndTime: "22:00", IsHard: true}},
		}},
		blockReaderStub{},
		testHorizon(),
	)

	common, err := svc.CommonFreeIntervals(context.Background(), []string{"alice", "bob"}, testWeek())
	require.NoError(t, err)

	// Tuesday: only 12:00-15:00 works for both.
	assert.Equal(t, []Interval{{Start: 720, End: 900}}, common[2])
	// Other days stay fully shared.
	assert.Equal(t, []Interval{testHorizon()}, common[3])
}

func TestAvailabilityCommonFreeIntervalsDisjoint(t *testing.T) {
	svc := NewAvailabilityService(
		constraintReaderStub{byUser: map[string][]models.Constraint{
			"alice": {{Days: []int64{4}, StartTime: "08:00", EndTime: "15:00", IsHard: true}},
			"bob":   {{Days: []int64{4}, StartTime: "15:00", EndTime: "22:00", IsHard: true}},
		}},
		blockReaderStub{},
		testHorizon(),
	)

	common, err := svc.CommonFreeIntervals(context.Background(), []string{"alice", "bob"}, testWeek())
	require.NoError(t, err)
	assert.Empty(t, common[4])
}
