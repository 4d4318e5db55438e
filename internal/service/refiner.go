package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
)

// PlacementStrategy proposes personal block placements. The oracle-backed
// implementation lives in internal/oracle; the deterministic fallback is the
// refiner's own greedy pass. Strategy output is never trusted blindly: every
// candidate is re-validated before acceptance.
type PlacementStrategy interface {
	ProposePlacement(ctx context.Context, req dto.PlacementRequest) ([]dto.PlacementCandidate, error)
}

// RefinerConfig tunes personal block placement.
type RefinerConfig struct {
	SlotMinutes       int
	MaxSessionMinutes int
}

// RefineInput carries everything needed to fill one user's personal time.
type RefineInput struct {
	Skeleton       Skeleton
	Free           map[int][]Interval
	Targets        []dto.CourseHourTarget
	PreferenceText string
	Preferences    *models.StructuredPreference
}

// RefineResult is the refined block list plus any unmet demand. Shortfalls
// are reported, never silently dropped.
type RefineResult struct {
	Blocks         []BlockCandidate
	Shortfalls     []dto.CourseShortfall
	UsedFallback   bool
	OracleRejected int
}

// PersonalRefiner fills the hours left open by the skeleton with personal
// study blocks, consulting the placement oracle when one is configured and
// always falling back to a deterministic greedy pass.
type PersonalRefiner struct {
	oracle    PlacementStrategy
	validator *Validator
	cfg       RefinerConfig
	logger    *zap.Logger
}

// NewPersonalRefiner wires the refiner. A nil oracle selects pure fallback
// mode, which must be exactly reproducible.
func NewPersonalRefiner(oracle PlacementStrategy, validator *Validator, cfg RefinerConfig, logger *zap.Logger) *PersonalRefiner {
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = 30
	}
	if cfg.MaxSessionMinutes <= 0 {
		cfg.MaxSessionMinutes = 120
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonalRefiner{oracle: oracle, validator: validator, cfg: cfg, logger: logger}
}

// Refine produces personal block candidates for the remaining course hours.
func (r *PersonalRefiner) Refine(ctx context.Context, input RefineInput) RefineResult {
	remaining := make(map[string]int, len(input.Targets))
	requested := make(map[string]int, len(input.Targets))
	for _, target := range input.Targets {
		minutes := roundDownToUnit(target.TargetMinutes, r.cfg.SlotMinutes)
		if minutes <= 0 {
			continue
		}
		remaining[target.CourseID] = minutes
		requested[target.CourseID] = minutes
	}

	result := RefineResult{}
	free := copyFree(input.Free)
	for day := range free {
		free[day] = subtractIntervals(free[day], input.Skeleton.BusyIntervals(day))
	}

	if r.oracle != nil && len(remaining) > 0 {
		accepted, rejectedCount, err := r.consultOracle(ctx, input, remaining)
		if err != nil {
			r.logger.Sugar().Warnw("placement oracle unavailable, using deterministic fallback", "error", err)
			result.UsedFallback = true
		} else if len(accepted) == 0 {
			r.logger.Sugar().Warnw("placement oracle returned no valid blocks, using deterministic fallback", "rejected", rejectedCount)
			result.UsedFallback = true
		} else {
			result.OracleRejected = rejectedCount
			for _, block := range accepted {
				remaining[block.CourseID] -= block.Duration()
				free[block.Day] = subtractIntervals(free[block.Day], []Interval{block.Interval})
			}
			result.Blocks = accepted
		}
	} else {
		result.UsedFallback = r.oracle == nil
	}

	// Greedy pass covers full fallback and any demand the oracle left unmet.
	filled := r.greedyFill(free, remaining, input.Preferences)
	result.Blocks = append(result.Blocks, filled...)

	for courseID, want := range requested {
		left := remaining[courseID]
		if left > 0 {
			result.Shortfalls = append(result.Shortfalls, dto.CourseShortfall{
				CourseID:         courseID,
				RequestedMinutes: want,
				PlacedMinutes:    want - left,
				ShortfallMinutes: left,
			})
		}
	}
	sort.Slice(result.Shortfalls, func(i, j int) bool {
		return result.Shortfalls[i].CourseID < result.Shortfalls[j].CourseID
	})
	return result
}

func (r *PersonalRefiner) consultOracle(ctx context.Context, input RefineInput, remaining map[string]int) ([]BlockCandidate, int, error) {
	req := dto.PlacementRequest{
		Skeleton:       input.Skeleton.DTO(),
		FreeSlots:      freeSlotsDTO(input.Free),
		Targets:        input.Targets,
		PreferenceText: input.PreferenceText,
		Preferences:    input.Preferences,
	}
	proposals, err := r.oracle.ProposePlacement(ctx, req)
	if err != nil {
		return nil, 0, err
	}

	known := make(map[string]bool, len(input.Targets))
	for _, target := range input.Targets {
		known[target.CourseID] = true
	}

	var candidates []BlockCandidate
	discarded := 0
	for _, proposal := range proposals {
		if !known[proposal.CourseID] {
			discarded++
			continue
		}
		interval, err := parseInterval(proposal.StartTime, proposal.EndTime)
		if err != nil {
			discarded++
			continue
		}
		candidates = append(candidates, BlockCandidate{
			CourseID: proposal.CourseID,
			Kind:     models.BlockKindPersonal,
			Origin:   models.BlockOriginOracle,
			Day:      proposal.DayOfWeek,
			Interval: interval,
		})
	}

	committed := candidatesFromBlocks(input.Skeleton.GroupBlocks)
	accepted, rejected := r.validator.Filter(candidates, input.Skeleton.Hard, committed)

	// Drop anything that would overshoot a course target. Oracle output is
	// discarded, never corrected.
	var kept []BlockCandidate
	budget := make(map[string]int, len(remaining))
	for courseID, minutes := range remaining {
		budget[courseID] = minutes
	}
	for _, block := range accepted {
		if block.Duration() > budget[block.CourseID] {
			discarded++
			continue
		}
		budget[block.CourseID] -= block.Duration()
		kept = append(kept, block)
	}
	return kept, discarded + len(rejected), nil
}

// greedyFill is the deterministic fallback: walk free slots in chronological
// order, allocating against the course with the most remaining need until
// demand or free time runs out.
func (r *PersonalRefiner) greedyFill(free map[int][]Interval, remaining map[string]int, prefs *models.StructuredPreference) []BlockCandidate {
	session := r.cfg.MaxSessionMinutes
	breakMinutes := 0
	if prefs != nil {
		if prefs.SessionMinutes != nil && *prefs.SessionMinutes > 0 {
			session = *prefs.SessionMinutes
		}
		if prefs.BreakMinutes != nil && *prefs.BreakMinutes > 0 {
			breakMinutes = *prefs.BreakMinutes
		}
	}
	session = roundDownToUnit(session, r.cfg.SlotMinutes)
	if session < r.cfg.SlotMinutes {
		session = r.cfg.SlotMinutes
	}

	var blocks []BlockCandidate

	// Preferred windows get first claim; the second pass fills anywhere.
	if prefs != nil && len(prefs.PreferredWindows) > 0 {
		preferred := preferredByDay(prefs.PreferredWindows)
		restricted := make(map[int][]Interval, 7)
		for day := 0; day < 7; day++ {
			restricted[day] = intersectIntervals(free[day], preferred[day])
		}
		placed := r.allocate(restricted, remaining, session, breakMinutes)
		for _, block := range placed {
			free[block.Day] = subtractIntervals(free[block.Day], []Interval{block.Interval})
		}
		blocks = append(blocks, placed...)
	}

	blocks = append(blocks, r.allocate(free, remaining, session, breakMinutes)...)
	return blocks
}

func (r *PersonalRefiner) allocate(free map[int][]Interval, remaining map[string]int, session, breakMinutes int) []BlockCandidate {
	var blocks []BlockCandidate
	for day := 0; day < 7; day++ {
		for _, slot := range normalizeIntervals(free[day]) {
			cursor := slot.Start
			for cursor < slot.End {
				courseID := nextCourse(remaining)
				if courseID == "" {
					return blocks
				}
				chunk := slot.End - cursor
				if chunk > session {
					chunk = session
				}
				if chunk > remaining[courseID] {
					chunk = remaining[courseID]
				}
				chunk = roundDownToUnit(chunk, r.cfg.SlotMinutes)
				if chunk < r.cfg.SlotMinutes {
					break
				}
				blocks = append(blocks, BlockCandidate{
					CourseID: courseID,
					Kind:     models.BlockKindPersonal,
					Origin:   models.BlockOriginAuto,
					Day:      day,
					Interval: Interval{Start: cursor, End: cursor + chunk},
				})
				remaining[courseID] -= chunk
				cursor += chunk + breakMinutes
			}
		}
	}
	return blocks
}

// nextCourse picks the course with the largest remaining need, breaking ties
// by course ID so fallback output is exactly reproducible.
func nextCourse(remaining map[string]int) string {
	best := ""
	bestNeed := 0
	ids := make([]string, 0, len(remaining))
	for courseID := range remaining {
		ids = append(ids, courseID)
	}
	sort.Strings(ids)
	for _, courseID := range ids {
		if need := remaining[courseID]; need > bestNeed {
			best = courseID
			bestNeed = need
		}
	}
	return best
}

func preferredByDay(windows []models.PreferenceWindow) map[int][]Interval {
	result := make(map[int][]Interval, 7)
	for _, window := range windows {
		interval, err := parseInterval(window.StartTime, window.EndTime)
		if err != nil {
			continue
		}
		days := window.Days
		if len(days) == 0 {
			days = []int{0, 1, 2, 3, 4, 5, 6}
		}
		for _, day := range days {
			if day < 0 || day > 6 {
				continue
			}
			result[day] = append(result[day], interval)
		}
	}
	return result
}

func copyFree(free map[int][]Interval) map[int][]Interval {
	result := make(map[int][]Interval, len(free))
	for day, intervals := range free {
		copied := make([]Interval, len(intervals))
		copy(copied, intervals)
		result[day] = copied
	}
	return result
}

func freeSlotsDTO(free map[int][]Interval) []dto.FreeSlot {
	var slots []dto.FreeSlot
	for day := 0; day < 7; day++ {
		for _, interval := range free[day] {
			slots = append(slots, dto.FreeSlot{
				DayOfWeek: day,
				StartTime: formatClock(interval.Start),
				EndTime:   formatClock(interval.End),
			})
		}
	}
	return slots
}
