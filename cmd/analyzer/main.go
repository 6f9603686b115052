package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pfederi/Next-Wave-sub001/internal/analytics"
	"github.com/pfederi/Next-Wave-sub001/internal/config"
	"github.com/pfederi/Next-Wave-sub001/internal/daylight"
	"github.com/pfederi/Next-Wave-sub001/internal/db"
	"github.com/pfederi/Next-Wave-sub001/internal/logging"
	"github.com/pfederi/Next-Wave-sub001/internal/metrics"
	"github.com/pfederi/Next-Wave-sub001/internal/realtime"
	"github.com/pfederi/Next-Wave-sub001/internal/schedule"
	"github.com/pfederi/Next-Wave-sub001/internal/static"
	"github.com/pfederi/Next-Wave-sub001/internal/telemetry"
)

func main() {
	config.LoadDotEnv(".env", ".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting wave analyzer",
		zap.Duration("interval", cfg.AnalyzeInterval),
		zap.Duration("retention", cfg.RetentionDuration),
		zap.Int("concurrency", cfg.Concurrency))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "nextwave-analyzer", cfg.TelemetryEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	// Spots
	spots, err := config.LoadSpots(cfg.SpotsFile)
	if err != nil {
		logger.Fatal("failed to load spots", zap.String("file", cfg.SpotsFile), zap.Error(err))
	}
	logger.Info("spots loaded", zap.Int("count", len(spots)))

	// Database
	database, err := db.Connect(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure database schema", zap.Error(err))
	}

	// Static schedule refresh
	var refresher *static.Refresher
	if cfg.GTFSStaticURL != "" {
		refresher = static.NewRefresher(static.RefreshConfig{
			URL:      cfg.GTFSStaticURL,
			Network:  cfg.GTFSNetwork,
			CacheDir: cfg.CacheDir,
			MaxAge:   time.Duration(cfg.StaticRefreshDays) * 24 * time.Hour,
		}, database, nil, logger.Named("static"))

		if _, err := refresher.RefreshIfStale(ctx); err != nil {
			// existing schedule rows stay usable
			logger.Warn("static schedule refresh failed", zap.Error(err))
		}
	}

	// Sun times and analysis
	sun, err := daylight.NewClient(daylight.Config{
		BaseURL:  cfg.SunAPIBaseURL,
		Timezone: cfg.Timezone,
		Timeout:  cfg.SunAPITimeout,
	}, daylight.WithLogger(logger.Named("daylight")))
	if err != nil {
		logger.Fatal("failed to create daylight client", zap.Error(err))
	}

	analyzer := analytics.NewAnalyzer(sun, analytics.NewStore(),
		analytics.WithLogger(logger.Named("analytics")),
		analytics.WithConcurrency(cfg.Concurrency))

	r := &runner{
		spots:     spots,
		events:    schedule.NewQueries(database.Conn(), sun.Location()),
		analyzer:  analyzer,
		store:     database,
		learner:   metrics.NewBaselineLearner(database, logger.Named("baseline")),
		retention: cfg.RetentionDuration,
		loc:       sun.Location(),
		now:       time.Now,
		logger:    logger,
	}
	if cfg.GTFSTripUpdatesURL != "" {
		r.delays = realtime.NewClient(nil, logger.Named("realtime"))
		r.delaysURL = cfg.GTFSTripUpdatesURL
	}

	cycle := func() {
		start := time.Now()
		stats, err := r.runOnce(ctx)
		if err != nil {
			logger.Error("analysis cycle failed", zap.Error(err))
			return
		}
		logger.Info("analysis cycle complete",
			zap.String("snapshot", stats.SnapshotID),
			zap.Int("spots", stats.Spots),
			zap.Int("saved", stats.Saved),
			zap.Int("baselines", stats.Baselines),
			zap.Duration("took", time.Since(start)))
	}

	logger.Info("running initial analysis")
	cycle()

	if refresher != nil {
		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					logger.Info("running daily static schedule freshness check")
					if _, err := refresher.RefreshIfStale(ctx); err != nil {
						logger.Warn("static schedule refresh failed", zap.Error(err))
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	ticker := time.NewTicker(cfg.AnalyzeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cycle()
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		}
	}
}
