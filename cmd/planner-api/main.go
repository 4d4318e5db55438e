package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/study-planner-api/api/swagger"
	"github.com/noah-isme/study-planner-api/internal/handler"
	"github.com/noah-isme/study-planner-api/internal/middleware"
	"github.com/noah-isme/study-planner-api/internal/oracle"
	"github.com/noah-isme/study-planner-api/internal/repository"
	"github.com/noah-isme/study-planner-api/internal/service"
	"github.com/noah-isme/study-planner-api/pkg/cache"
	"github.com/noah-isme/study-planner-api/pkg/config"
	"github.com/noah-isme/study-planner-api/pkg/database"
	"github.com/noah-isme/study-planner-api/pkg/export"
	"github.com/noah-isme/study-planner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/study-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/study-planner-api/pkg/middleware/requestid"
	"github.com/noah-isme/study-planner-api/pkg/storage"
)

// @title Study Planner API
// @version 0.1.0
// @description Weekly study schedule generator with group coordination
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	horizon, err := service.ParseHorizon(cfg.Planner.HorizonStart, cfg.Planner.HorizonEnd)
	if err != nil {
		logr.Sugar().Fatalw("invalid planning horizon", "error", err)
	}

	validate := validator.New()

	// Repositories.
	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	courses := repository.NewCourseRepository(db)
	constraints := repository.NewConstraintRepository(db)
	plans := repository.NewWeeklyPlanRepository(db)
	blocks := repository.NewPlanBlockRepository(db)
	groupBlocks := repository.NewGroupPlanBlockRepository(db)
	requests := repository.NewChangeRequestRepository(db)

	// Notifications ride on Redis pub/sub; without Redis they are logged.
	var notifier service.Notifier = service.NopNotifier{}
	var eventNotifier *service.EventNotifier
	if cfg.Notifications.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, notifications will only be logged", "error", err)
			redisClient = nil
		}
		eventNotifier = service.NewEventNotifier(redisClient, cfg.Notifications.Channel, cfg.Notifications.Workers, logr)
		eventNotifier.Start(context.Background())
		defer eventNotifier.Stop()
		notifier = eventNotifier
	}

	oracleClient := oracle.NewClient(cfg.Oracle, logr)
	var strategy service.PlacementStrategy
	if oracleClient != nil {
		strategy = oracleClient
	}

	// Services.
	refinerCfg := service.RefinerConfig{
		SlotMinutes:       cfg.Planner.SlotMinutes,
		MaxSessionMinutes: cfg.Planner.MaxSessionMinutes,
	}
	placement := service.NewValidator(horizon)
	availability := service.NewAvailabilityService(constraints, blocks, horizon)
	planSync := service.NewPlanSynchronizer(plans, blocks)
	refiner := service.NewPersonalRefiner(strategy, placement, refinerCfg, logr)
	groupPlanner := service.NewGroupPlanner(db, groups, groups, groupBlocks, availability, planSync, strategy, refinerCfg, cfg.Planner.DefaultGroupHours, logr)
	changeRequests := service.NewChangeRequestService(db, requests, groupBlocks, groups, constraints, blocks, planSync, placement, validate, notifier, cfg.Planner.ChangeRequestTTL, logr)
	weeklyPlans := service.NewWeeklyPlanService(db, users, groups, plans, blocks, courses, constraints, groupBlocks, availability, refiner, groupPlanner, changeRequests, notifier, placement, validate, service.PlannerOptions{
		SlotMinutes:       cfg.Planner.SlotMinutes,
		WorkerConcurrency: cfg.Planner.WorkerConcurrency,
	}, logr)
	groupService := service.NewGroupService(groups, validate, cfg.Planner.DefaultGroupHours, logr)
	metrics := service.NewMetricsService()

	// Exports are archived only when a signing secret is configured.
	var exportArchive *storage.ExportArchive
	var exportSigner *storage.DownloadSigner
	if cfg.Export.Enabled && cfg.Export.URLSecret != "" {
		exportArchive, err = storage.NewExportArchive(cfg.Export.ArchiveDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export archive", "error", err)
		}
		exportSigner = storage.NewDownloadSigner(cfg.Export.URLSecret, cfg.Export.URLTTL)
	}

	// Handlers.
	planHandler := handler.NewPlanHandler(weeklyPlans, availability, metrics, export.NewPlanPDFExporter(), exportArchive, exportSigner)
	changeRequestHandler := handler.NewChangeRequestHandler(changeRequests, metrics)
	groupHandler := handler.NewGroupHandler(groupService)
	metricsHandler := handler.NewMetricsHandler(metrics, db.PingContext)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/plans/generate", planHandler.Generate)
		api.GET("/plans/:userId", planHandler.Get)
		api.POST("/plans/:userId/blocks/:blockId", planHandler.Edit)
		if cfg.Export.Enabled {
			api.GET("/plans/:userId/export", planHandler.Export)
			api.GET("/exports/:token", planHandler.Download)
		}
		api.GET("/availability/:userId", planHandler.Availability)

		api.POST("/change-requests", changeRequestHandler.Create)
		api.POST("/change-requests/:id/votes", changeRequestHandler.Vote)
		api.GET("/groups/:groupId/change-requests", changeRequestHandler.ListByGroup)

		api.GET("/groups/:groupId/preference", groupHandler.GetPreference)
		api.PUT("/groups/:groupId/preference", groupHandler.UpdatePreference)
	}

	if cfg.Planner.WeeklyCronEnabled || exportArchive != nil {
		scheduler := service.NewSchedulerService(weeklyPlans, logr)
		if cfg.Planner.WeeklyCronEnabled {
			if _, err := scheduler.ScheduleWeekly(cfg.Planner.WeeklyCron); err != nil {
				logr.Sugar().Fatalw("invalid weekly cron spec", "spec", cfg.Planner.WeeklyCron, "error", err)
			}
		}
		if exportArchive != nil {
			ttl := cfg.Export.URLTTL
			if _, err := scheduler.ScheduleExportSweep("30 6 * * *", func() ([]string, error) {
				return exportArchive.Sweep(ttl)
			}); err != nil {
				logr.Sugar().Fatalw("failed to schedule export sweep", "error", err)
			}
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
