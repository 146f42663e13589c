package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/festival-scheduler-api/api/swagger"
	"github.com/noah-isme/festival-scheduler-api/internal/handler"
	internalmiddleware "github.com/noah-isme/festival-scheduler-api/internal/middleware"
	"github.com/noah-isme/festival-scheduler-api/internal/repository"
	"github.com/noah-isme/festival-scheduler-api/internal/service"
	"github.com/noah-isme/festival-scheduler-api/pkg/cache"
	"github.com/noah-isme/festival-scheduler-api/pkg/config"
	"github.com/noah-isme/festival-scheduler-api/pkg/database"
	"github.com/noah-isme/festival-scheduler-api/pkg/events"
	"github.com/noah-isme/festival-scheduler-api/pkg/jobs"
	"github.com/noah-isme/festival-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/festival-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/festival-scheduler-api/pkg/middleware/requestid"
	"github.com/noah-isme/festival-scheduler-api/pkg/storage"
)

// @title Festival Scheduler API
// @version 1.0.0
// @description Builds and edits music festival competition schedules
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		if cfg.Scheduling.Store == config.StorePostgres {
			logr.Fatal("postgres unavailable", zap.Error(err))
		}
		logr.Warn("postgres unavailable; scheduling runs are disabled until registrations can be read", zap.Error(err))
		db = nil
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable; rendered schedules will not be cached", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduling.CacheTTL, logr, cacheRepo.Enabled())

	store, err := newScheduleStore(cfg, db)
	if err != nil {
		logr.Fatal("failed to prepare schedule store", zap.Error(err))
	}

	var publisher service.EventPublisher = service.NoopEventPublisher{}
	if cfg.Events.Enabled {
		producer, err := events.NewKafkaProducer(cfg.Events, logr)
		if err != nil {
			logr.Fatal("failed to init kafka producer", zap.Error(err))
		}
		defer producer.Close() //nolint:errcheck
		publisher = service.NewKafkaEventPublisher(producer, metrics, logr)
	}

	var scheduling *service.SchedulingService
	if db != nil {
		scheduling = service.NewSchedulingService(repository.NewRegistrantRepository(db), repository.NewTeacherRepository(db), store, cacheSvc, publisher, metrics, logr)
	} else {
		scheduling = service.NewSchedulingService(nil, nil, store, cacheSvc, publisher, metrics, logr)
	}
	schedules := service.NewScheduleService(store, cacheSvc, publisher, metrics, cfg.Scheduling.CacheTTL, logr)

	exportFiles, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exports := service.NewExportService(schedules, exportFiles, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		RetainFor: cfg.Exports.RetainFor,
	}, publisher, metrics, logr)
	exports.StartWorkers(ctx, jobs.Options{
		Workers:     cfg.Exports.WorkerConcurrency,
		MaxAttempts: cfg.Exports.WorkerRetries,
		Backoff:     500 * time.Millisecond,
	})
	defer exports.StopWorkers()

	cleanup, err := service.NewExportCleanup(cfg.Exports.CleanupSchedule, exports, logr)
	if err != nil {
		logr.Fatal("failed to schedule export cleanup", zap.Error(err))
	}
	cleanup.Start()
	defer cleanup.Stop()

	validate := validator.New()
	scheduleHandler := handler.NewScheduleHandler(scheduling, schedules, exports, validate, cfg.Scheduling.SectionMinutes)
	exportHandler := handler.NewExportHandler(exports)
	metricsHandler := handler.NewMetricsHandler(metrics, cfg.Scheduling.Store)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	competitions := api.Group("/competitions/:name/schedule")
	competitions.POST("", internalmiddleware.Audit(logr, "run_scheduler"), scheduleHandler.Run)
	competitions.GET("", scheduleHandler.Get)
	competitions.GET("/html", scheduleHandler.HTML)
	competitions.PUT("/sections", internalmiddleware.Audit(logr, "section_staff"), scheduleHandler.UpdateSection)
	competitions.PUT("/rooms", internalmiddleware.Audit(logr, "rename_rooms"), scheduleHandler.RenameRooms)
	competitions.POST("/moves", internalmiddleware.Audit(logr, "move_student"), scheduleHandler.MoveStudent)
	competitions.POST("/scores", internalmiddleware.Audit(logr, "record_score"), scheduleHandler.RecordScore)
	competitions.POST("/exports", scheduleHandler.Export)
	api.GET("/export/:token", exportHandler.Download)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Scheduling.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newScheduleStore(cfg *config.Config, db *sqlx.DB) (service.ScheduleStore, error) {
	if cfg.Scheduling.Store == config.StorePostgres {
		return repository.NewScheduleRepository(db), nil
	}
	files, err := storage.NewLocalStorage(cfg.Scheduling.UploadDir)
	if err != nil {
		return nil, err
	}
	return repository.NewFileScheduleStore(files), nil
}
