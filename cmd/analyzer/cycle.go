package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pfederi/Next-Wave-sub001/internal/analytics"
	"github.com/pfederi/Next-Wave-sub001/internal/config"
	"github.com/pfederi/Next-Wave-sub001/internal/metrics"
	"github.com/pfederi/Next-Wave-sub001/internal/realtime"
	"github.com/pfederi/Next-Wave-sub001/internal/waves"
)

type eventSource interface {
	GetWaveEvents(ctx context.Context, stopID string, serviceDay time.Time) ([]waves.WaveEvent, error)
}

type delaySource interface {
	FetchDelays(ctx context.Context, url string) (map[realtime.DelayKey]realtime.Delay, error)
}

type resultStore interface {
	CreateSnapshot(ctx context.Context, analyzedAt time.Time) (string, error)
	SaveSpotAnalytics(ctx context.Context, snapshotID string, a waves.SpotAnalytics) error
	Cleanup(ctx context.Context, retention time.Duration) error
}

// runner performs one analysis cycle over all configured spots
type runner struct {
	spots     []config.Spot
	events    eventSource
	delays    delaySource // nil disables the realtime overlay
	delaysURL string
	analyzer  *analytics.Analyzer
	store     resultStore
	learner   *metrics.BaselineLearner
	retention time.Duration
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger

	// service day whose results already fed the baselines
	lastObserved string
}

// cycleStats summarizes one cycle for logging and tests
type cycleStats struct {
	Spots      int
	Saved      int
	Baselines  int
	SnapshotID string
}

func (r *runner) runOnce(ctx context.Context) (cycleStats, error) {
	var stats cycleStats
	day := r.now().In(r.loc)

	inputs := r.loadInputs(ctx, day)
	stats.Spots = len(inputs)

	results, err := r.analyzer.AnalyzeAll(ctx, inputs)
	if err != nil {
		return stats, err
	}

	snapshotID, err := r.store.CreateSnapshot(ctx, r.now())
	if err != nil {
		return stats, fmt.Errorf("create snapshot: %w", err)
	}
	stats.SnapshotID = snapshotID

	for _, res := range results {
		if err := r.store.SaveSpotAnalytics(ctx, snapshotID, res); err != nil {
			r.logger.Error("failed to save spot analytics", zap.String("spot", res.SpotID), zap.Error(err))
			continue
		}
		stats.Saved++
	}

	dayKey := day.Format("2006-01-02")
	if r.learner != nil && r.lastObserved != dayKey {
		stats.Baselines = r.learner.Observe(ctx, day, results)
		r.lastObserved = dayKey
	}

	if err := r.store.Cleanup(ctx, r.retention); err != nil {
		r.logger.Warn("cleanup failed", zap.Error(err))
	}

	return stats, nil
}

// loadInputs reads each spot's schedule for day and applies realtime delays.
// A spot whose schedule cannot be read is skipped for this cycle.
func (r *runner) loadInputs(ctx context.Context, day time.Time) []analytics.SpotInput {
	var delays map[realtime.DelayKey]realtime.Delay
	if r.delays != nil && r.delaysURL != "" {
		d, err := r.delays.FetchDelays(ctx, r.delaysURL)
		if err != nil {
			r.logger.Warn("realtime delays unavailable, using schedule only", zap.Error(err))
		} else {
			delays = d
		}
	}

	inputs := make([]analytics.SpotInput, 0, len(r.spots))
	for _, spot := range r.spots {
		events, err := r.events.GetWaveEvents(ctx, spot.StopID, day)
		if err != nil {
			r.logger.Error("failed to load wave events",
				zap.String("spot", spot.ID),
				zap.String("stop", spot.StopID),
				zap.Error(err))
			continue
		}
		if delays != nil {
			events = realtime.ApplyDelays(events, delays)
		}
		inputs = append(inputs, analytics.SpotInput{
			SpotID:   spot.ID,
			SpotName: spot.Name,
			Events:   events,
		})
	}
	return inputs
}
