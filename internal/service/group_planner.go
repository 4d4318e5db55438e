package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type groupPreferenceStore interface {
	EnsurePreference(ctx context.Context, groupID string, defaultHours float64) (*models.GroupPreference, error)
}

type groupMemberReader interface {
	ListApprovedMemberIDs(ctx context.Context, groupID string) ([]string, error)
}

type groupBlockWriter interface {
	ReplaceForGroupWeek(ctx context.Context, exec sqlx.ExtContext, groupID string, weekStart time.Time, blocks []models.GroupPlanBlock) error
}

type commonAvailability interface {
	CommonFreeIntervals(ctx context.Context, userIDs []string, weekStart time.Time) (map[int][]Interval, error)
}

// GroupPlanner places a group's weekly meetings into time every approved
// member has free, then persists the canonical blocks and fans copies out to
// member plans in one transaction.
type GroupPlanner struct {
	db           txProvider
	prefs        groupPreferenceStore
	members      groupMemberReader
	canonical    groupBlockWriter
	availability commonAvailability
	sync         *PlanSynchronizer
	oracle       PlacementStrategy
	cfg          RefinerConfig
	defaultHours float64
	logger       *zap.Logger
}

// NewGroupPlanner wires the planner. A nil oracle selects deterministic
// placement only.
func NewGroupPlanner(
	db txProvider,
	prefs groupPreferenceStore,
	members groupMemberReader,
	canonical groupBlockWriter,
	availability commonAvailability,
	sync *PlanSynchronizer,
	oracle PlacementStrategy,
	cfg RefinerConfig,
	defaultHours float64,
	logger *zap.Logger,
) *GroupPlanner {
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = 30
	}
	if cfg.MaxSessionMinutes <= 0 {
		cfg.MaxSessionMinutes = 120
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupPlanner{
		db:           db,
		prefs:        prefs,
		members:      members,
		canonical:    canonical,
		availability: availability,
		sync:         sync,
		oracle:       oracle,
		cfg:          cfg,
		defaultHours: defaultHours,
		logger:       logger,
	}
}

// PlanGroupWeek places and persists the group's meetings for the week. It
// reports shortfall instead of failing when shared free time cannot cover the
// full target; a hard error is returned only when nothing could be persisted.
func (p *GroupPlanner) PlanGroupWeek(ctx context.Context, group *models.Group, weekStart time.Time) (*dto.GroupPlanReport, error) {
	report := &dto.GroupPlanReport{GroupID: group.ID}

	pref, err := p.prefs.EnsurePreference(ctx, group.ID, p.defaultHours)
	if err != nil {
		return report, err
	}
	target := hoursToMinutes(pref.PreferredHoursPerWeek, p.cfg.SlotMinutes)
	report.TargetMinutes = target

	memberIDs, err := p.members.ListApprovedMemberIDs(ctx, group.ID)
	if err != nil {
		return report, err
	}
	if len(memberIDs) == 0 {
		report.Error = "group has no approved members"
		return report, nil
	}
	if target <= 0 {
		return report, nil
	}

	free, err := p.availability.CommonFreeIntervals(ctx, memberIDs, weekStart)
	if err != nil {
		return report, err
	}

	structured := parseStructuredPreference(pref.PreferenceSummary)
	slots := p.chooseSlots(ctx, group, free, target, pref.PreferenceText, structured)

	canonical := make([]models.GroupPlanBlock, 0, len(slots))
	placed := 0
	for _, slot := range slots {
		canonical = append(canonical, models.GroupPlanBlock{
			GroupID:   group.ID,
			WeekStart: weekStart,
			CourseID:  group.CourseID,
			DayOfWeek: slot.Day,
			StartTime: formatClock(slot.Start),
			EndTime:   formatClock(slot.End),
			CreatedBy: "system",
		})
		placed += slot.Duration()
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return report, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := p.canonical.ReplaceForGroupWeek(ctx, tx, group.ID, weekStart, canonical); err != nil {
		return report, err
	}
	if err := p.sync.SyncGroupBlocks(ctx, tx, weekStart, canonical, memberIDs); err != nil {
		return report, err
	}
	if err := tx.Commit(); err != nil {
		return report, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit group plan")
	}

	report.Blocks = len(canonical)
	report.PlacedMinutes = placed
	report.ShortfallMinutes = target - placed
	if report.ShortfallMinutes > 0 {
		p.logger.Sugar().Infow("group target not fully met",
			"group_id", group.ID,
			"target_minutes", target,
			"placed_minutes", placed,
		)
	}
	return report, nil
}

// chooseSlots picks meeting intervals, consulting the oracle when configured
// and falling back to the deterministic longest-run-first pass.
func (p *GroupPlanner) chooseSlots(ctx context.Context, group *models.Group, free map[int][]Interval, target int, prefText string, structured *models.StructuredPreference) []DayInterval {
	remaining := target
	var slots []DayInterval

	if p.oracle != nil {
		picked, err := p.consultOracle(ctx, group, free, target, prefText, structured)
		if err != nil {
			p.logger.Sugar().Warnw("placement oracle unavailable for group, using deterministic fallback",
				"group_id", group.ID, "error", err)
		} else {
			// consultOracle already removed accepted intervals from free, so
			// the deterministic passes below top up only the residue.
			for _, slot := range picked {
				remaining -= slot.Duration()
			}
			slots = append(slots, picked...)
		}
	}

	if remaining >= p.cfg.SlotMinutes {
		if structured != nil && len(structured.PreferredWindows) > 0 {
			preferred := preferredByDay(structured.PreferredWindows)
			restricted := make(map[int][]Interval, 7)
			for day := 0; day < 7; day++ {
				restricted[day] = intersectIntervals(free[day], preferred[day])
			}
			picked := p.pickLongestRuns(restricted, remaining)
			for _, slot := range picked {
				remaining -= slot.Duration()
				free[slot.Day] = subtractIntervals(free[slot.Day], []Interval{slot.Interval})
			}
			slots = append(slots, picked...)
		}
		slots = append(slots, p.pickLongestRuns(free, remaining)...)
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Day != slots[j].Day {
			return slots[i].Day < slots[j].Day
		}
		return slots[i].Start < slots[j].Start
	})
	return slots
}

// pickLongestRuns fills the target from the longest shared free runs first,
// breaking ties by earliest day then earliest start so output is stable.
// A run longer than one session is split into consecutive session-sized
// meetings, so a single long run can still cover the whole target.
func (p *GroupPlanner) pickLongestRuns(free map[int][]Interval, target int) []DayInterval {
	var runs []DayInterval
	for day := 0; day < 7; day++ {
		for _, interval := range normalizeIntervals(free[day]) {
			runs = append(runs, DayInterval{Day: day, Interval: interval})
		}
	}

	remaining := target
	var slots []DayInterval
	for remaining >= p.cfg.SlotMinutes && len(runs) > 0 {
		sort.Slice(runs, func(i, j int) bool {
			if runs[i].Duration() != runs[j].Duration() {
				return runs[i].Duration() > runs[j].Duration()
			}
			if runs[i].Day != runs[j].Day {
				return runs[i].Day < runs[j].Day
			}
			return runs[i].Start < runs[j].Start
		})
		run := runs[0]
		runs = runs[1:]

		chunk := run.Duration()
		if chunk > p.cfg.MaxSessionMinutes {
			chunk = p.cfg.MaxSessionMinutes
		}
		if chunk > remaining {
			chunk = remaining
		}
		chunk = roundDownToUnit(chunk, p.cfg.SlotMinutes)
		if chunk < p.cfg.SlotMinutes {
			continue
		}
		slots = append(slots, DayInterval{
			Day:      run.Day,
			Interval: Interval{Start: run.Start, End: run.Start + chunk},
		})
		remaining -= chunk
		rest := Interval{Start: run.Start + chunk, End: run.End}
		if rest.Duration() >= p.cfg.SlotMinutes {
			runs = append(runs, DayInterval{Day: run.Day, Interval: rest})
		}
	}
	return slots
}

func (p *GroupPlanner) consultOracle(ctx context.Context, group *models.Group, free map[int][]Interval, target int, prefText string, structured *models.StructuredPreference) ([]DayInterval, error) {
	req := dto.PlacementRequest{
		FreeSlots:      freeSlotsDTO(free),
		Targets:        []dto.CourseHourTarget{{CourseID: group.CourseID, TargetMinutes: target}},
		PreferenceText: prefText,
		Preferences:    structured,
	}
	proposals, err := p.oracle.ProposePlacement(ctx, req)
	if err != nil {
		return nil, err
	}

	remaining := target
	var slots []DayInterval
	for _, proposal := range proposals {
		if proposal.CourseID != group.CourseID {
			continue
		}
		interval, err := parseInterval(proposal.StartTime, proposal.EndTime)
		if err != nil {
			continue
		}
		if !fitsWithin(free[proposal.DayOfWeek], interval) || interval.Duration() > remaining {
			continue
		}
		slots = append(slots, DayInterval{Day: proposal.DayOfWeek, Interval: interval})
		free[proposal.DayOfWeek] = subtractIntervals(free[proposal.DayOfWeek], []Interval{interval})
		remaining -= interval.Duration()
	}
	return slots, nil
}

func fitsWithin(free []Interval, candidate Interval) bool {
	for _, interval := range free {
		if interval.Contains(candidate) {
			return true
		}
	}
	return false
}

func parseStructuredPreference(raw types.JSONText) *models.StructuredPreference {
	if len(raw) == 0 {
		return nil
	}
	var structured models.StructuredPreference
	if err := json.Unmarshal(raw, &structured); err != nil {
		return nil
	}
	return &structured
}
