package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/study-planner-api/internal/dto"
)

// SchedulerService triggers the weekly batch generation on a cron schedule.
// Each run targets the week that starts after the run fires.
type SchedulerService struct {
	cron   *cron.Cron
	plans  *WeeklyPlanService
	logger *zap.Logger
}

// NewSchedulerService wraps a cron runner around the plan orchestrator.
func NewSchedulerService(plans *WeeklyPlanService, logger *zap.Logger) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerService{
		cron:   cron.New(),
		plans:  plans,
		logger: logger,
	}
}

// ScheduleWeekly registers the batch job with a standard 5-field cron spec.
func (s *SchedulerService) ScheduleWeekly(spec string) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, s.runBatch)
}

// ScheduleExportSweep runs the archived export cleanup on the given spec.
func (s *SchedulerService) ScheduleExportSweep(spec string, sweep func() ([]string, error)) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, func() {
		deleted, err := sweep()
		if err != nil {
			s.logger.Sugar().Errorw("export sweep failed", "error", err)
			return
		}
		if len(deleted) > 0 {
			s.logger.Sugar().Infow("export sweep finished", "deleted", len(deleted))
		}
	})
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *SchedulerService) runBatch() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Plan the upcoming week, not the one the job fires in.
	target := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	result, err := s.plans.GenerateWeek(ctx, dto.GeneratePlansRequest{WeekStart: target})
	if err != nil {
		s.logger.Sugar().Errorw("weekly batch generation failed", "week_start", target, "error", err)
		return
	}
	s.logger.Sugar().Infow("weekly batch generation finished",
		"week_start", result.WeekStart,
		"users", len(result.Users),
		"groups", len(result.Groups),
	)
}
