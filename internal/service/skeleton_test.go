package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-planner-api/internal/models"
)

func TestBuildSkeletonMergesBusyTime(t *testing.T) {
	hard := []models.Constraint{
		{Title: "lectures", Days: []int64{1}, StartTime: "09:00", EndTime: "11:00", IsHard: true},
		{Title: "nap", Days: []int64{1}, StartTime: "10:30", EndTime: "12:00", IsHard: true},
		{Title: "soft", Days: []int64{1}, StartTime: "14:00", EndTime: "15:00", IsHard: false},
	}
	groupBlocks := []models.PlanBlock{
		{CourseID: "math", Kind: models.BlockKindGroup, DayOfWeek: 1, StartTime: "16:00", EndTime: "17:00"},
	}

	skeleton := BuildSkeleton(hard, groupBlocks)

	busy := skeleton.BusyIntervals(1)
	assert.Equal(t, []Interval{{Start: 540, End: 720}, {Start: 960, End: 1020}}, busy)
	assert.Empty(t, skeleton.BusyIntervals(2))
}

func TestSkeletonBlocks(t *testing.T) {
	skeleton := BuildSkeleton([]models.Constraint{
		{Days: []int64{3}, StartTime: "09:00", EndTime: "10:00", IsHard: true},
	}, nil)

	assert.True(t, skeleton.Blocks(3, Interval{Start: 570, End: 630}))
	assert.False(t, skeleton.Blocks(3, Interval{Start: 600, End: 660}))
	assert.False(t, skeleton.Blocks(4, Interval{Start: 570, End: 630}))
}

func TestSkeletonDTO(t *testing.T) {
	hard := []models.Constraint{
		{Title: "lectures", Days: []int64{1, 3}, StartTime: "09:00", EndTime: "11:00", IsHard: true},
		{Title: "soft", Days: []int64{2}, StartTime: "14:00", EndTime: "15:00", IsHard: false},
	}
	groupBlocks := []models.PlanBlock{
		{CourseID: "math", Kind: models.BlockKindGroup, DayOfWeek: 5, StartTime: "16:00", EndTime: "17:00"},
	}

	out := BuildSkeleton(hard, groupBlocks).DTO()
	require.Len(t, out, 3)
	assert.Equal(t, 1, out[0].DayOfWeek)
	assert.Equal(t, 3, out[1].DayOfWeek)
	assert.Equal(t, "group meeting", out[2].Label)
}
