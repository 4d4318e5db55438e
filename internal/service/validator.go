package service

import (
	"fmt"
	"sort"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// Rejection reason codes.
const (
	RejectInvertedInterval = "INVERTED_INTERVAL"
	RejectOutsideHorizon   = "OUTSIDE_HORIZON"
	RejectHardConstraint   = "HARD_CONSTRAINT_OVERLAP"
	RejectBlockOverlap     = "BLOCK_OVERLAP"
)

// BlockCandidate is a proposed placement under validation.
type BlockCandidate struct {
	CourseID string
	Kind     string
	Origin   string
	Day      int
	Interval
}

// Rejection explains why a candidate was refused.
type Rejection struct {
	Code    string
	Message string
}

// RejectedCandidate pairs a refused candidate with its reason.
type RejectedCandidate struct {
	Candidate BlockCandidate
	Rejection Rejection
}

// Validator checks candidate placements against a user's committed state:
// hard constraints and already-placed blocks within the planning horizon.
type Validator struct {
	horizon Interval
}

// NewValidator builds a validator for the given daily horizon.
func NewValidator(horizon Interval) *Validator {
	return &Validator{horizon: horizon}
}

// Check validates a single candidate against hard constraints and committed
// blocks. A nil result means the candidate is acceptable.
func (v *Validator) Check(candidate BlockCandidate, hard []models.Constraint, committed []BlockCandidate) *Rejection {
	if candidate.Start >= candidate.End {
		return &Rejection{Code: RejectInvertedInterval, Message: "start must be before end"}
	}
	if candidate.Day < 0 || candidate.Day > 6 || !v.horizon.Contains(candidate.Interval) {
		return &Rejection{
			Code:    RejectOutsideHorizon,
			Message: fmt.Sprintf("interval must lie within %s", v.horizon),
		}
	}
	for _, constraint := range hard {
		if !constraint.IsHard || !constraint.AppliesTo(candidate.Day) {
			continue
		}
		window, err := parseInterval(constraint.StartTime, constraint.EndTime)
		if err != nil {
			continue
		}
		if candidate.Overlaps(window) {
			return &Rejection{
				Code:    RejectHardConstraint,
				Message: fmt.Sprintf("overlaps hard constraint %q (%s)", constraint.Title, window),
			}
		}
	}
	for _, other := range committed {
		if other.Day == candidate.Day && candidate.Overlaps(other.Interval) {
			return &Rejection{
				Code:    RejectBlockOverlap,
				Message: fmt.Sprintf("overlaps existing block %s on day %d", other.Interval, other.Day),
			}
		}
	}
	return nil
}

// Filter validates a candidate list in chronological order, committing each
// accepted candidate before checking the next. The one-at-a-time commit keeps
// two mutually overlapping candidates from both passing against an unchanged
// baseline.
func (v *Validator) Filter(candidates []BlockCandidate, hard []models.Constraint, committed []BlockCandidate) ([]BlockCandidate, []RejectedCandidate) {
	ordered := make([]BlockCandidate, len(candidates))
	copy(ordered, candidates)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Day == ordered[j].Day {
			return ordered[i].Start < ordered[j].Start
		}
		return ordered[i].Day < ordered[j].Day
	})

	state := make([]BlockCandidate, len(committed), len(committed)+len(ordered))
	copy(state, committed)

	var accepted []BlockCandidate
	var rejected []RejectedCandidate
	for _, candidate := range ordered {
		if rejection := v.Check(candidate, hard, state); rejection != nil {
			rejected = append(rejected, RejectedCandidate{Candidate: candidate, Rejection: *rejection})
			continue
		}
		accepted = append(accepted, candidate)
		state = append(state, candidate)
	}
	return accepted, rejected
}

// candidatesFromBlocks converts committed plan blocks into validation state.
// Blocks with unparseable times are skipped; they cannot be collided with.
func candidatesFromBlocks(blocks []models.PlanBlock) []BlockCandidate {
	candidates := make([]BlockCandidate, 0, len(blocks))
	for _, block := range blocks {
		interval, err := parseInterval(block.StartTime, block.EndTime)
		if err != nil {
			continue
		}
		candidates = append(candidates, BlockCandidate{
			CourseID: block.CourseID,
			Kind:     block.Kind,
			Origin:   block.Origin,
			Day:      block.DayOfWeek,
			Interval: interval,
		})
	}
	return candidates
}
