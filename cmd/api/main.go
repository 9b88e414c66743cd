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
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fleet-analytics-api/config"
	"fleet-analytics-api/handlers"
	"fleet-analytics-api/logging"
	"fleet-analytics-api/services"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Log.Format == "json" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := services.NewCacheService(cfg.Redis, logger)
	if err != nil {
		logger.Warnw("redis unavailable, keeping sessions in memory", "error", err)
	}
	defer cache.Close()
	events := services.NewEventBus(cache, logger)

	loader, err := newLoader(cfg, logger)
	if err != nil {
		logger.Fatalw("failed to set up default dataset", "source", cfg.Dataset.Source, "error", err)
	}
	defaults := services.NewDefaultDataset(loader, events, logger)
	if _, err := defaults.Get(ctx); err != nil {
		// Views answer 503 until a reload succeeds; uploads still work.
		logger.Warnw("default dataset not loaded at startup", "error", err)
	}
	if cfg.Dataset.Source == config.SourceWorkbook && cfg.Dataset.Watch {
		go func() {
			if err := services.WatchWorkbook(ctx, cfg.Dataset.Path, defaults, logger); err != nil {
				logger.Warnw("workbook watcher stopped", "error", err)
			}
		}()
	}

	var backend services.SessionBackend = services.NewMemoryBackend()
	if cache.Available() {
		backend = services.NewRedisBackend(cache)
	}
	tokens := services.NewTokenService(cfg.JWT, cfg.Access)
	store := services.NewSessionStore(backend, defaults, tokens.TTL())

	views, err := handlers.NewViewHandler(store, cfg.Analytics, cfg.RiskFactors, logger)
	if err != nil {
		logger.Fatalw("invalid analytics config", "error", err)
	}
	router := handlers.NewRouter(handlers.RouterDeps{
		Tokens:  tokens,
		Events:  events,
		Views:   views,
		Dataset: handlers.NewDatasetHandler(store, events, cfg.Server, cfg.Analytics, logger),
		CORS:    cfg.CORS,
		Log:     logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infow("starting server", "addr", srv.Addr, "dataset_source", cfg.Dataset.Source, "redis", cache.Available())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
	}
}

func newLoader(cfg *config.Config, logger *zap.SugaredLogger) (services.DatasetLoader, error) {
	if cfg.Dataset.Source != config.SourcePostgres {
		return services.WorkbookLoader{Path: cfg.Dataset.Path, Quantile: cfg.Analytics.EmptyQuantile}, nil
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Infow("reading default dataset from postgres", "host", cfg.Database.Host, "db", cfg.Database.Name)
	return services.PostgresLoader{DB: db, Quantile: cfg.Analytics.EmptyQuantile}, nil
}
