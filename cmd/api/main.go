package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pfederi/Next-Wave-sub001/internal/api"
	"github.com/pfederi/Next-Wave-sub001/internal/config"
	"github.com/pfederi/Next-Wave-sub001/internal/db"
	"github.com/pfederi/Next-Wave-sub001/internal/logging"
	"github.com/pfederi/Next-Wave-sub001/internal/telemetry"
)

func main() {
	// Base .env first, then .env.local overrides for local development
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "nextwave-api", cfg.TelemetryEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal("failed to load timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	logger.Info("connecting to SQLite database", zap.String("path", cfg.DatabasePath))
	database, err := db.Connect(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}

	router := api.NewRouter(database, api.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Location:       loc,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("API server starting",
			zap.String("addr", srv.Addr),
			zap.Strings("routes", []string{"GET /health", "GET /api/spots", "GET /api/spots/{spotId}"}))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown failed", zap.Error(err))
	}
}
