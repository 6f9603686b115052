package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pfederi/Next-Wave-sub001/internal/db"
	"github.com/pfederi/Next-Wave-sub001/internal/logging"
	"github.com/pfederi/Next-Wave-sub001/internal/static"
	"github.com/pfederi/Next-Wave-sub001/internal/static/gtfs"
)

func main() {
	dbPath := flag.String("db", envOr("SQLITE_DATABASE", "data/nextwave.db"), "Path to SQLite database")
	gtfsDir := flag.String("gtfs-dir", "data/gtfs", "Directory containing GTFS zip files")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger, err := logging.New(*logLevel, "console")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	database, err := db.Connect(*dbPath, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	logger.Info("connected to database", zap.String("path", *dbPath))

	ctx := context.Background()
	if err := database.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}

	entries, err := os.ReadDir(*gtfsDir)
	if err != nil {
		logger.Fatal("failed to read GTFS directory", zap.String("dir", *gtfsDir), zap.Error(err))
	}

	parser := gtfs.NewParser(logger.Named("gtfs"))
	failed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".zip") {
			continue
		}

		zipPath := filepath.Join(*gtfsDir, entry.Name())
		network := static.DeriveNetworkName(entry.Name())
		feedLog := logger.With(zap.String("file", entry.Name()), zap.String("network", network))

		feedLog.Info("importing feed")
		stats, err := static.ImportFeed(ctx, database, parser, zipPath, network, feedLog)
		if err != nil {
			feedLog.Error("import failed", zap.Error(err))
			failed++
			continue
		}
		feedLog.Info("feed imported",
			zap.Int("routes", stats.Routes),
			zap.Int("stops", stats.Stops),
			zap.Int("trips", stats.Trips),
			zap.Int("stop_times", stats.StopTimes),
			zap.Int("skipped_stop_times", stats.Skipped),
			zap.Int("calendars", stats.Calendars),
			zap.Int("calendar_dates", stats.CalendarDates))
	}

	if failed > 0 {
		logger.Warn("import finished with failures", zap.Int("failed", failed))
		os.Exit(1)
	}
	logger.Info("import complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
