package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
)

type oracleStub struct {
	candidates []dto.PlacementCandidate
	err        error
	calls      int
}

func (s *oracleStub) ProposePlacement(ctx context.Context, req dto.PlacementRequest) ([]dto.PlacementCandidate, error) {
	s.calls++
	return s.candidates, s.err
}

func newRefinerFixture(oracle PlacementStrategy) *PersonalRefiner {
	return NewPersonalRefiner(oracle, NewValidator(testHorizon()), RefinerConfig{SlotMinutes: 30, MaxSessionMinutes: 120}, nil)
}

func TestRefinerFallbackFillsTargets(t *testing.T) {
	refiner := newRefinerFixture(nil)

	input := RefineInput{
		Skeleton: BuildSkeleton(nil, nil),
		Free: map[int][]Interval{
			1: {{Start: 540, End: 720}},
			2: {{Start: 600, End: 720}},
		},
		Targets: []dto.CourseHourTarget{
			{CourseID: "math", TargetMinutes: 180},
			{CourseID: "bio", TargetMinutes: 120},
		},
	}

	result := refiner.Refine(context.Background(), input)
	assert.True(t, result.UsedFallback)
	assert.Empty(t, result.Shortfalls)

	placed := map[string]int{}
	for _, block := range result.Blocks {
		placed[block.CourseID] += block.Duration()
		assert.Equal(t, models.BlockKindPersonal, block.Kind)
		assert.Equal(t, models.BlockOriginAuto, block.Origin)
	}
	assert.Equal(t, 180, placed["math"])
	assert.Equal(t, 120, placed["bio"])
}

func TestRefinerFallbackDeterministic(t *testing.T) {
	input := RefineInput{
		Skeleton: BuildSkeleton(nil, nil),
		Free: map[int][]Interval{
			0: {{Start: 480, End: 660}},
			3: {{Start: 540, End: 900}},
			5: {{Start: 480, End: 600}},
		},
		Targets: []dto.CourseHourTarget{
			{CourseID: "chem", TargetMinutes: 150},
			{CourseID: "algo", TargetMinutes: 150},
			{CourseID: "lit", TargetMinutes: 90},
		},
	}

	first := newRefinerFixture(nil).Refine(context.Background(), input)
	second := newRefinerFixture(nil).Refine(context.Background(), input)
	assert.Equal(t, first.Blocks, second.Blocks)
	assert.Equal(t, first.Shortfalls, second.Shortfalls)
}

func TestRefinerReportsShortfall(t *testing.T) {
	refiner := newRefinerFixture(nil)

	result := refiner.Refine(context.Background(), RefineInput{
		Skeleton: BuildSkeleton(nil, nil),
		Free:     map[int][]Interval{2: {{Start: 600, End: 690}}},
		Targets:  []dto.CourseHourTarget{{CourseID: "math", TargetMinutes: 240}},
	})

	require.Len(t, result.Shortfalls, 1)
	assert.Equal(t, "math", result.Shortfalls[0].CourseID)
	assert.Equal(t, 240, result.Shortfalls[0].RequestedMinutes)
	assert.Equal(t, 90, result.Shortfalls[0].PlacedMinutes)
	assert.Equal(t, 150, result.Shortfalls[0].ShortfallMinutes)
}

func TestRefinerAvoidsSkeleton(t *testing.T) {
	refiner := newRefinerFixture(nil)
	skeleton := BuildSkeleton([]models.Constraint{
		{Days: []int64{1}, StartTime: "10:00", EndTime: "11:00", IsHard: true},
	}, nil)

	result := refiner.Refine(context.Background(), RefineInput{
		Skeleton: skeleton,
		Free:     map[int][]Interval{1: {{Start: 540, End: 780}}},
		Targets:  []dto.CourseHourTarget{{CourseID: "math", TargetMinutes: 120}},
	})

	for _, block := range result.Blocks {
		assert.False(t, skeleton.Blocks(block.Day, block.Interval), "block %s overlaps skeleton", block.Interval)
	}
}

func TestRefinerHonoursSessionAndBreaks(t *testing.T) {
	session := 60
	breakMinutes := 30
	refiner := newRefinerFixture(nil)

	result := refiner.Refine(context.Background(), RefineInput{
		Skeleton: BuildSkeleton(nil, nil),
		Free:     map[int][]Interval{0: {{Start: 480, End: 720}}},
		Targets:  []dto.CourseHourTarget{{CourseID: "math", TargetMinutes: 120}},
		Preferences: &models.StructuredPreference{
			SessionMinutes: &session,
			BreakMinutes:   &breakMinutes,
		},
	})

	require.Len(t, result.Blocks, 2)
	assert.Equal(t, Interval{Start: 480, End: 540}, result.Blocks[0].Interval)
	assert.Equal(t, Interval{Start: 570, End: 630}, result.Blocks[1].Interval)
}

func TestRefinerPrefersPreferredWindows(t *testing.T) {
	refiner := newRefinerFixture(nil)

	result := refiner.Refine(context.Background(), RefineInput{
		Skeleton: BuildSkeleton(nil, nil),
		Free: map[int][]Interval{
			0: {{Start: 480, End: 720}},
			5: {{Start: 480, End: 1320}},
		},
		Targets: []dto.CourseHourTarget{{CourseID: "math", TargetMinutes: 120}},
		Preferences: &models.StructuredPreference{
			PreferredWindows: []models.PreferenceWindow{
				{Days: []int{5}, StartTime: "18:00", EndTime: "22:00"},
			},
		},
	})

	require.Len(t, result.Blocks, 1)
	assert.Equal(t, 5, result.Blocks[0].Day)
	assert.GreaterOrEqual(t, result.Blocks[0].Start, 1080)
}

func TestRefinerAcceptsOracleBlocks(t *testing.T) {
	oracle := &oracleStub{candidates: []dto.PlacementCandidate{
		{CourseID: "math", DayOfWeek: 2, StartTime: "10:00", EndTime: "11:00"},
		{CourseID: "math", DayOfWeek: 2, StartTime: "14:00", EndTime: "15:00"},
	}}
	refiner := newRefinerFixture(oracle)

	result := refiner.Refine(context.Background(), RefineInput{
		Skeleton: BuildSkeleton(nil, nil),
		Free:     map[int][]Interval{2: {{Start: 480, End: 1320}}},
		Targets:  []dto.CourseHourTarget{{CourseID: "math", TargetMinutes: 120}},
	})

	assert.Equal(t, 1, oracle.calls)
	assert.False(t, result.UsedFallback)
	assert.Empty(t, result.Shortfalls)
	require.Len(t, result.Blocks, 2)
	assert.Equal(t, models.BlockOriginOracle, result.Blocks[0].Origin)
}

func TestRefinerFallsBackOnOracleError(t *testing.T) {
	oracle := &oracleStub{err: errors.New("oracle down")}
	refiner := newRefinerFixture(oracle)

	result := refiner.Refine(context.Background(), RefineInput{
		Skeleton: BuildSkeleton(nil, nil),
		Free:     map[int][]Interval{2: {{Start: 480, End: 1320}}},
		Targets:  []dto.CourseHourTarget{{CourseID: "math", TargetMinutes: 120}},
	})

	assert.True(t, result.UsedFallback)
	assert.Empty(t, result.Shortfalls)
	placed := 0
	for _, block := range result.Blocks {
		placed += block.Duration()
		assert.Equal(t, models.BlockOriginAuto, block.Origin)
	}
	assert.Equal(t, 120, placed)
}

func TestRefinerDiscardsInvalidOracleBlocks(t *testing.T) {
	oracle := &oracleStub{candidates: []dto.PlacementCandidate{
		// Overlaps the hard constraint below.
		{CourseID: "math", DayOfWeek: 1, StartTime: "09:30", EndTime: "10:30"},
		// Unknown course.
		{CourseID: "ghost", DayOfWeek: 1, StartTime: "14:00", EndTime: "15:00"},
		// Overshoots the 60 minute target.
		{CourseID: "math", DayOfWeek: 1, StartTime: "16:00", EndTime: "18:00"},
		// The one acceptable proposal.
		{CourseID: "math", DayOfWeek: 1, StartTime: "12:00", EndTime: "13:00"},
	}}
	refiner := newRefinerFixture(oracle)

	result := refiner.Refine(context.Background(), RefineInput{
		Skeleton: BuildSkeleton([]models.Constraint{
			{Days: []int64{1}, StartTime: "09:00", EndTime: "11:00", IsHard: true},
		}, nil),
		Free:    map[int][]Interval{1: {{Start: 660, End: 1320}}},
		Targets: []dto.CourseHourTarget{{CourseID: "math", TargetMinutes: 60}},
	})

	assert.False(t, result.UsedFallback)
	assert.Equal(t, 3, result.OracleRejected)
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, Interval{Start: 720, End: 780}, result.Blocks[0].Interval)
	assert.Equal(t, models.BlockOriginOracle, result.Blocks[0].Origin)
}
