package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

type userDirectory interface {
	ListIDs(ctx context.Context) ([]string, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type groupDirectory interface {
	ListAll(ctx context.Context) ([]models.Group, error)
	FindByID(ctx context.Context, groupID string) (*models.Group, error)
}

type planStore interface {
	GetOrCreate(ctx context.Context, exec sqlx.ExtContext, userID string, weekStart time.Time, source string) (*models.WeeklyPlan, error)
	FindByID(ctx context.Context, planID string) (*models.WeeklyPlan, error)
	FindByUserWeek(ctx context.Context, userID string, weekStart time.Time) (*models.WeeklyPlan, error)
	TouchSource(ctx context.Context, exec sqlx.ExtContext, planID, source string) error
}

type blockStore interface {
	ListByPlan(ctx context.Context, planID string) ([]models.PlanBlock, error)
	ListByUserWeek(ctx context.Context, userID string, weekStart time.Time) ([]models.PlanBlock, error)
	FindByID(ctx context.Context, blockID string) (*models.PlanBlock, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, blocks []models.PlanBlock) error
	DeleteUnlocked(ctx context.Context, exec sqlx.ExtContext, planID string) error
	UpdateInterval(ctx context.Context, exec sqlx.ExtContext, blockID string, day int, startTime, endTime, origin string, locked bool) error
}

type canonicalCopyReader interface {
	ListByUserWeek(ctx context.Context, userID string, weekStart time.Time) ([]models.GroupPlanBlock, error)
}

type courseReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.Course, error)
	ListPreferencesByUser(ctx context.Context, userID string) ([]models.CoursePreference, error)
}

type userConstraintReader interface {
	ListForUserWeek(ctx context.Context, userID string, weekStart time.Time) ([]models.Constraint, error)
}

// WeeklyPlanService orchestrates plan generation: group meetings first, then
// each user's personal refinement in a bounded worker pool. A failure in one
// unit of work is reported and never aborts the rest of the batch.
type WeeklyPlanService struct {
	db             txProvider
	users          userDirectory
	groups         groupDirectory
	plans          planStore
	blocks         blockStore
	courses        courseReader
	constraints    userConstraintReader
	canonical      canonicalCopyReader
	availability   *AvailabilityService
	refiner        *PersonalRefiner
	groupPlanner   *GroupPlanner
	changeRequests *ChangeRequestService
	notifier       Notifier
	validator      *Validator
	validate       *validator.Validate
	cfg            PlannerOptions
	logger         *zap.Logger
}

// PlannerOptions tunes batch generation.
type PlannerOptions struct {
	SlotMinutes       int
	WorkerConcurrency int
}

// NewWeeklyPlanService wires the orchestrator.
func NewWeeklyPlanService(
	db txProvider,
	users userDirectory,
	groups groupDirectory,
	plans planStore,
	blocks blockStore,
	courses courseReader,
	constraints userConstraintReader,
	canonical canonicalCopyReader,
	availability *AvailabilityService,
	refiner *PersonalRefiner,
	groupPlanner *GroupPlanner,
	changeRequests *ChangeRequestService,
	notifier Notifier,
	placement *Validator,
	validate *validator.Validate,
	cfg PlannerOptions,
	logger *zap.Logger,
) *WeeklyPlanService {
	if validate == nil {
		validate = validator.New()
	}
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = 30
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 4
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeeklyPlanService{
		db:             db,
		users:          users,
		groups:         groups,
		plans:          plans,
		blocks:         blocks,
		courses:        courses,
		constraints:    constraints,
		canonical:      canonical,
		availability:   availability,
		refiner:        refiner,
		groupPlanner:   groupPlanner,
		changeRequests: changeRequests,
		notifier:       notifier,
		validator:      placement,
		validate:       validate,
		cfg:            cfg,
		logger:         logger,
	}
}

// GenerateWeek runs plan generation for the requested scope. With no scope
// the batch covers every group and every user; a user scope refreshes one
// user's personal blocks; a group scope replans one group's meetings and
// resyncs its members.
func (s *WeeklyPlanService) GenerateWeek(ctx context.Context, req dto.GeneratePlansRequest) (*dto.GeneratePlansResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	weekStart, err := ParseWeekStart(req.WeekStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid week start")
	}
	resp := &dto.GeneratePlansResponse{WeekStart: weekStart.Format("2006-01-02")}

	switch {
	case req.GroupID != nil:
		group, err := s.groups.FindByID(ctx, *req.GroupID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
			}
			return nil, err
		}
		report, err := s.groupPlanner.PlanGroupWeek(ctx, group, weekStart)
		if err != nil {
			report.Error = err.Error()
		}
		resp.Groups = append(resp.Groups, *report)

	case req.UserID != nil:
		if _, err := s.users.FindByID(ctx, *req.UserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
			}
			return nil, err
		}
		resp.Users = append(resp.Users, s.generateUserWeek(ctx, *req.UserID, weekStart))

	default:
		userIDs, err := s.users.ListIDs(ctx)
		if err != nil {
			return nil, err
		}
		groups, err := s.groups.ListAll(ctx)
		if err != nil {
			return nil, err
		}

		// Reset regenerable blocks up front so stale auto placements do not
		// shrink the shared free time the group pass works from.
		failed := make(map[string]string)
		for _, userID := range userIDs {
			if err := s.resetUserWeek(ctx, userID, weekStart); err != nil {
				failed[userID] = err.Error()
			}
		}

		// Groups run serially: each placement consumes shared free time that
		// the next group must see.
		for i := range groups {
			report, err := s.groupPlanner.PlanGroupWeek(ctx, &groups[i], weekStart)
			if err != nil {
				report.Error = err.Error()
				s.logger.Sugar().Errorw("group planning failed", "group_id", groups[i].ID, "error", err)
			}
			resp.Groups = append(resp.Groups, *report)
		}

		resp.Users = s.refineUsers(ctx, userIDs, weekStart, failed)
	}

	return resp, nil
}

// refineUsers runs personal refinement for each user in a bounded pool.
func (s *WeeklyPlanService) refineUsers(ctx context.Context, userIDs []string, weekStart time.Time, resetErrors map[string]string) []dto.UserPlanReport {
	reports := make([]dto.UserPlanReport, len(userIDs))
	sem := make(chan struct{}, s.cfg.WorkerConcurrency)
	var wg sync.WaitGroup
	for i, userID := range userIDs {
		if msg, ok := resetErrors[userID]; ok {
			reports[i] = dto.UserPlanReport{UserID: userID, Error: msg}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(slot int, id string) {
			defer wg.Done()
			defer func() { <-sem }()
			reports[slot] = s.refineUser(ctx, id, weekStart)
		}(i, userID)
	}
	wg.Wait()
	return reports
}

// generateUserWeek resets and refines a single user's plan. Group copies are
// recreated from the canonical blocks rather than replanned.
func (s *WeeklyPlanService) generateUserWeek(ctx context.Context, userID string, weekStart time.Time) dto.UserPlanReport {
	if err := s.resetUserWeek(ctx, userID, weekStart); err != nil {
		return dto.UserPlanReport{UserID: userID, Error: err.Error()}
	}
	return s.refineUser(ctx, userID, weekStart)
}

// resetUserWeek clears the user's regenerable blocks, keeping locked ones.
// Group copies are cleared too; the group pass or the canonical rows restore
// them before personal refinement reads the plan.
func (s *WeeklyPlanService) resetUserWeek(ctx context.Context, userID string, weekStart time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer tx.Rollback()

	plan, err := s.plans.GetOrCreate(ctx, tx, userID, weekStart, models.PlanSourceAuto)
	if err != nil {
		return err
	}
	if err := s.blocks.DeleteUnlocked(ctx, tx, plan.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit plan reset")
	}
	return nil
}

func (s *WeeklyPlanService) refineUser(ctx context.Context, userID string, weekStart time.Time) dto.UserPlanReport {
	report := dto.UserPlanReport{UserID: userID}

	plan, err := s.plans.FindByUserWeek(ctx, userID, weekStart)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.PlanID = plan.ID

	// Group copies cleared by the reset are restored from the canonical
	// schedule before refinement reads the plan.
	if err := s.restoreGroupCopies(ctx, plan, weekStart); err != nil {
		report.Error = err.Error()
		return report
	}

	hard, err := s.constraints.ListForUserWeek(ctx, userID, weekStart)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	committed, err := s.blocks.ListByPlan(ctx, plan.ID)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	free, err := s.availability.FreeIntervals(ctx, userID, weekStart)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	targets, err := s.courseTargets(ctx, userID)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	result := s.refiner.Refine(ctx, RefineInput{
		Skeleton: BuildSkeleton(hard, committed),
		Free:     free,
		Targets:  targets,
	})
	report.UsedFallback = result.UsedFallback
	report.Shortfalls = result.Shortfalls

	rows := make([]models.PlanBlock, 0, len(result.Blocks))
	for _, candidate := range result.Blocks {
		rows = append(rows, models.PlanBlock{
			ID:        uuid.NewString(),
			PlanID:    plan.ID,
			CourseID:  candidate.CourseID,
			Kind:      models.BlockKindPersonal,
			DayOfWeek: candidate.Day,
			StartTime: formatClock(candidate.Start),
			EndTime:   formatClock(candidate.End),
			Origin:    candidate.Origin,
		})
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	defer tx.Rollback()
	if err := s.blocks.InsertBatch(ctx, tx, rows); err != nil {
		report.Error = err.Error()
		return report
	}
	if err := s.plans.TouchSource(ctx, tx, plan.ID, models.PlanSourceAuto); err != nil {
		report.Error = err.Error()
		return report
	}
	if err := tx.Commit(); err != nil {
		report.Error = err.Error()
		return report
	}

	report.Blocks = len(committed) + len(rows)
	s.notifier.Publish(ctx, models.Event{
		Type:       models.EventPlanReady,
		Recipients: []string{userID},
		Payload: map[string]any{
			"plan_id":    plan.ID,
			"week_start": weekStart.Format("2006-01-02"),
		},
	})
	return report
}

// restoreGroupCopies reinstates the user's group-kind blocks from canonical
// rows when the reset removed them and no group pass ran for this scope.
func (s *WeeklyPlanService) restoreGroupCopies(ctx context.Context, plan *models.WeeklyPlan, weekStart time.Time) error {
	existing, err := s.blocks.ListByPlan(ctx, plan.ID)
	if err != nil {
		return err
	}
	present := make(map[string]bool)
	for _, block := range existing {
		if block.GroupBlockID != nil {
			present[*block.GroupBlockID] = true
		}
	}

	canonical, err := s.canonical.ListByUserWeek(ctx, plan.UserID, weekStart)
	if err != nil {
		return err
	}
	var missing []models.PlanBlock
	for _, block := range canonical {
		if present[block.ID] {
			continue
		}
		groupBlockID := block.ID
		missing = append(missing, models.PlanBlock{
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
	if len(missing) == 0 {
		return nil
	}
	return s.blocks.InsertBatch(ctx, nil, missing)
}

// courseTargets converts stored per-course preferences into placement demand.
func (s *WeeklyPlanService) courseTargets(ctx context.Context, userID string) ([]dto.CourseHourTarget, error) {
	courses, err := s.courses.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(courses))
	for _, course := range courses {
		names[course.ID] = course.Name
	}
	prefs, err := s.courses.ListPreferencesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	targets := make([]dto.CourseHourTarget, 0, len(prefs))
	for _, pref := range prefs {
		minutes := hoursToMinutes(pref.PersonalHoursPerWeek, s.cfg.SlotMinutes)
		if minutes <= 0 {
			continue
		}
		targets = append(targets, dto.CourseHourTarget{
			CourseID:      pref.CourseID,
			CourseName:    names[pref.CourseID],
			TargetMinutes: minutes,
		})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].CourseID < targets[j].CourseID })
	return targets, nil
}

// GetUserPlan returns the user's plan and blocks for a week.
func (s *WeeklyPlanService) GetUserPlan(ctx context.Context, userID string, weekStartRaw string) (*models.WeeklyPlan, []models.PlanBlock, error) {
	weekStart, err := ParseWeekStart(weekStartRaw)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid week start")
	}
	plan, err := s.plans.FindByUserWeek(ctx, userID, weekStart)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "no plan for this week")
		}
		return nil, nil, err
	}
	blocks, err := s.blocks.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, nil, err
	}
	return plan, blocks, nil
}

// ApplyEdit moves or resizes one block. Personal blocks apply immediately and
// are locked against regeneration; group blocks are routed into the
// change-request workflow instead.
func (s *WeeklyPlanService) ApplyEdit(ctx context.Context, blockID string, req dto.ApplyEditRequest) (*dto.ApplyEditResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid edit payload")
	}
	block, err := s.blocks.FindByID(ctx, blockID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan block not found")
		}
		return nil, err
	}
	plan, err := s.plans.FindByID(ctx, block.PlanID)
	if err != nil {
		return nil, err
	}
	if plan.UserID != req.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "block belongs to another user's plan")
	}

	day := block.DayOfWeek
	if req.DayOfWeek != nil {
		day = *req.DayOfWeek
	}

	if block.Kind == models.BlockKindGroup {
		if block.GroupBlockID == nil {
			return nil, appErrors.Clone(appErrors.ErrInternal, "group block copy has no canonical reference")
		}
		request, err := s.changeRequests.Create(ctx, dto.CreateChangeRequestRequest{
			UserID:        req.UserID,
			GroupBlockID:  *block.GroupBlockID,
			ProposedDay:   day,
			ProposedStart: req.StartTime,
			ProposedEnd:   req.EndTime,
			Reason:        req.Reason,
		})
		if err != nil {
			return nil, err
		}
		return &dto.ApplyEditResponse{
			Applied:         request.Status == models.RequestStatusApproved,
			ChangeRequestID: request.ID,
		}, nil
	}

	proposed, err := parseInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid interval")
	}

	hard, err := s.constraints.ListForUserWeek(ctx, req.UserID, plan.WeekStart)
	if err != nil {
		return nil, err
	}
	blocks, err := s.blocks.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	others := blocks[:0:0]
	for _, existing := range blocks {
		if existing.ID == block.ID {
			continue
		}
		others = append(others, existing)
	}
	candidate := BlockCandidate{
		CourseID: block.CourseID,
		Kind:     block.Kind,
		Origin:   models.BlockOriginManualEdit,
		Day:      day,
		Interval: proposed,
	}
	if rejection := s.validator.Check(candidate, hard, candidatesFromBlocks(others)); rejection != nil {
		return &dto.ApplyEditResponse{RejectedReason: rejection.Message}, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer tx.Rollback()
	if err := s.blocks.UpdateInterval(ctx, tx, block.ID, day, req.StartTime, req.EndTime, models.BlockOriginManualEdit, true); err != nil {
		return nil, err
	}
	if err := s.plans.TouchSource(ctx, tx, plan.ID, models.PlanSourceManual); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit edit")
	}
	return &dto.ApplyEditResponse{Applied: true}, nil
}
