package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-planner-api/internal/models"
)

func testHorizon() Interval {
	return Interval{Start: 480, End: 1320} // 08:00-22:00
}

func candidate(courseID string, day, start, end int) BlockCandidate {
	return BlockCandidate{
		CourseID: courseID,
		Kind:     models.BlockKindPersonal,
		Origin:   models.BlockOriginAuto,
		Day:      day,
		Interval: Interval{Start: start, End: end},
	}
}

func TestValidatorCheckAccepts(t *testing.T) {
	v := NewValidator(testHorizon())
	rejection := v.Check(candidate("math", 1, 540, 600), nil, nil)
	assert.Nil(t, rejection)
}

func TestValidatorCheckInvertedInterval(t *testing.T) {
	v := NewValidator(testHorizon())
	rejection := v.Check(candidate("math", 1, 600, 540), nil, nil)
	require.NotNil(t, rejection)
	assert.Equal(t, RejectInvertedInterval, rejection.Code)
}

func TestValidatorCheckOutsideHorizon(t *testing.T) {
	v := NewValidator(testHorizon())

	rejection := v.Check(candidate("math", 1, 420, 540), nil, nil)
	require.NotNil(t, rejection)
	assert.Equal(t, RejectOutsideHorizon, rejection.Code)

	rejection = v.Check(candidate("math", 7, 540, 600), nil, nil)
	require.NotNil(t, rejection)
	assert.Equal(t, RejectOutsideHorizon, rejection.Code)
}

func TestValidatorCheckHardConstraint(t *testing.T) {
	v := NewValidator(testHorizon())
	hard := []models.Constraint{
		{Title: "lectures", Days: []int64{1, 3}, StartTime: "09:00", EndTime: "12:00", IsHard: true},
		{Title: "gym", Days: []int64{1}, StartTime: "18:00", EndTime: "19:00", IsHard: false},
	}

	rejection := v.Check(candidate("math", 1, 660, 750), hard, nil)
	require.NotNil(t, rejection)
	assert.Equal(t, RejectHardConstraint, rejection.Code)

	// Same window on a day the constraint does not cover.
	assert.Nil(t, v.Check(candidate("math", 2, 660, 750), hard, nil))

	// Soft constraints never block.
	assert.Nil(t, v.Check(candidate("math", 1, 1080, 1140), hard, nil))
}

func TestValidatorCheckBlockOverlap(t *testing.T) {
	v := NewValidator(testHorizon())
	committed := []BlockCandidate{candidate("bio", 2, 600, 720)}

	rejection := v.Check(candidate("math", 2, 700, 760), nil, committed)
	require.NotNil(t, rejection)
	assert.Equal(t, RejectBlockOverlap, rejection.Code)

	// Back to back is fine.
	assert.Nil(t, v.Check(candidate("math", 2, 720, 780), nil, committed))
}

func TestValidatorFilterCommitsIncrementally(t *testing.T) {
	v := NewValidator(testHorizon())
	// Two mutually overlapping candidates: only the earlier one survives.
	candidates := []BlockCandidate{
		candidate("bio", 1, 570, 660),
		candidate("math", 1, 540, 630),
	}
	accepted, rejected := v.Filter(candidates, nil, nil)
	require.Len(t, accepted, 1)
	assert.Equal(t, "math", accepted[0].CourseID)
	require.Len(t, rejected, 1)
	assert.Equal(t, RejectBlockOverlap, rejected[0].Rejection.Code)
}

func TestCandidatesFromBlocksSkipsUnparseable(t *testing.T) {
	blocks := []models.PlanBlock{
		{CourseID: "math", Kind: models.BlockKindGroup, DayOfWeek: 3, StartTime: "10:00", EndTime: "11:30"},
		{CourseID: "bio", DayOfWeek: 4, StartTime: "bad", EndTime: "11:00"},
	}
	got := candidatesFromBlocks(blocks)
	require.Len(t, got, 1)
	assert.Equal(t, "math", got[0].CourseID)
	assert.Equal(t, Interval{Start: 600, End: 690}, got[0].Interval)
}
