package service

import (
	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
)

// Skeleton is the immovable portion of a user's week: hard constraints plus
// synced group meetings. Personal scheduling fits around it and must never
// place content into a skeleton slot.
type Skeleton struct {
	Hard        []models.Constraint
	GroupBlocks []models.PlanBlock
	busy        map[int][]Interval
}

// BuildSkeleton assembles the skeleton for one user and week. Hard
// constraints stay blockers only; they are never materialized as plan blocks.
// The result is a pure function of its inputs.
func BuildSkeleton(hard []models.Constraint, groupBlocks []models.PlanBlock) Skeleton {
	busy := make(map[int][]Interval, 7)
	for _, constraint := range hard {
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
	for _, block := range groupBlocks {
		window, err := parseInterval(block.StartTime, block.EndTime)
		if err != nil {
			continue
		}
		busy[block.DayOfWeek] = append(busy[block.DayOfWeek], window)
	}
	for day := range busy {
		busy[day] = normalizeIntervals(busy[day])
	}
	return Skeleton{Hard: hard, GroupBlocks: groupBlocks, busy: busy}
}

// BusyIntervals returns the skeleton's occupied intervals for a day.
func (s Skeleton) BusyIntervals(day int) []Interval {
	return s.busy[day]
}

// Blocks reports whether an interval collides with the skeleton.
func (s Skeleton) Blocks(day int, interval Interval) bool {
	for _, busy := range s.busy[day] {
		if busy.Overlaps(interval) {
			return true
		}
	}
	return false
}

// DTO renders the skeleton for the oracle request payload.
func (s Skeleton) DTO() []dto.SkeletonBlock {
	var out []dto.SkeletonBlock
	for _, constraint := range s.Hard {
		if !constraint.IsHard {
			continue
		}
		for _, day := range constraint.Days {
			out = append(out, dto.SkeletonBlock{
				DayOfWeek: int(day),
				StartTime: constraint.StartTime,
				EndTime:   constraint.EndTime,
				Label:     constraint.Title,
			})
		}
	}
	for _, block := range s.GroupBlocks {
		out = append(out, dto.SkeletonBlock{
			DayOfWeek: block.DayOfWeek,
			StartTime: block.StartTime,
			EndTime:   block.EndTime,
			Label:     "group meeting",
		})
	}
	return out
}
