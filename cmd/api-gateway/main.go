package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	internalhandler "github.com/noah-isme/timetable-engine/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-engine/internal/middleware"
	"github.com/noah-isme/timetable-engine/internal/repository"
	"github.com/noah-isme/timetable-engine/internal/service"
	"github.com/noah-isme/timetable-engine/internal/timetable"
	"github.com/noah-isme/timetable-engine/pkg/cache"
	"github.com/noah-isme/timetable-engine/pkg/config"
	"github.com/noah-isme/timetable-engine/pkg/database"
	"github.com/noah-isme/timetable-engine/pkg/ilp"
	"github.com/noah-isme/timetable-engine/pkg/jobs"
	"github.com/noah-isme/timetable-engine/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-engine/pkg/middleware/requestid"
	"github.com/noah-isme/timetable-engine/pkg/storage"
)

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)

	var cacheRepo service.CacheRepository
	var cacheCloser interface{ Close() error }
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("cache disabled", "error", err)
	} else {
		cacheCloser = client
		cacheRepo = repository.NewCacheRepository(client, logr)
	}
	if cacheCloser != nil {
		defer cacheCloser.Close()
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduler.ProposalTTL, logr, cacheRepo != nil)

	if cfg.Scheduler.Enabled {
		blockRepo := repository.NewBlockRepository(db)
		courseRepo := repository.NewCourseRepository(db)
		studentRepo := repository.NewStudentRepository(db)
		lecturerRepo := repository.NewLecturerRepository(db)
		roomRepo := repository.NewRoomRepository(db)
		runRepo := repository.NewRunRepository(db)

		engine := &timetable.Engine{
			Solver:    ilp.NewBranchAndBound(),
			TimeLimit: cfg.Scheduler.ILPTimeLimit,
		}

		timetableSvc := service.NewTimetableService(
			blockRepo,
			courseRepo,
			studentRepo,
			lecturerRepo,
			roomRepo,
			runRepo,
			engine,
			nil,
			logr,
			service.TimetableServiceConfig{
				ProposalTTL: cfg.Scheduler.ProposalTTL,
				Cache:       cacheSvc,
			},
		)
		timetableHandler := internalhandler.NewTimetableHandler(timetableSvc)

		schedules := api.Group("/schedules")
		schedules.Use(internalmiddleware.WithResponseMeta())
		schedules.POST("/generator", timetableHandler.Generate)
		schedules.GET("/generator/:proposalId", timetableHandler.GetProposal)
		schedules.POST("/generator/:proposalId/commit", timetableHandler.Commit)
		schedules.GET("/runs", timetableHandler.List)
		schedules.GET("/runs/:id/analysis", timetableHandler.Analysis)
		schedules.GET("/runs/:id/export.csv", timetableHandler.ExportCSV)
		schedules.GET("/runs/:id/export.pdf", timetableHandler.ExportPDF)
		schedules.POST("/import", timetableHandler.Import)

		if cfg.Reports.Enabled {
			fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
			if err != nil {
				logr.Sugar().Fatalw("failed to init export storage", "error", err)
			}
			signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
			queueCfg := jobs.QueueConfig{
				Workers:    cfg.Reports.WorkerConcurrency,
				BufferSize: cfg.Reports.WorkerConcurrency * 4,
				MaxRetries: cfg.Reports.WorkerRetries,
				RetryDelay: 5 * time.Second,
				Logger:     logr,
			}
			exportJobSvc := service.NewExportJobService(
				timetableSvc,
				fileStore,
				signer,
				queueCfg,
				service.ExportJobConfig{APIPrefix: cfg.APIPrefix},
				logr,
			)

			queueCtx, cancel := context.WithCancel(context.Background())
			exportJobSvc.Start(queueCtx)
			go runCleanupLoop(queueCtx, exportJobSvc, cfg.Reports.CleanupInterval, cfg.Reports.SignedURLTTL)
			defer func() {
				cancel()
				exportJobSvc.Stop()
			}()

			exportJobHandler := internalhandler.NewExportJobHandler(exportJobSvc)
			schedules.POST("/export-jobs", exportJobHandler.Request)
			schedules.GET("/export-jobs/:jobId", exportJobHandler.Status)
			schedules.GET("/export/:token", exportJobHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func runCleanupLoop(ctx context.Context, svc *service.ExportJobService, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.CleanupExpired(ttl)
		}
	}
}
