// Package analytics turns a spot's wave events into ranked sessions and
// keeps the latest result per spot.
package analytics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pfederi/Next-Wave-sub001/internal/waves"
)

// DefaultConcurrency bounds how many spots AnalyzeAll works on at once
const DefaultConcurrency = 4

// SunTimesProvider returns sun times for the local calendar date of a time
type SunTimesProvider interface {
	SunTimes(ctx context.Context, date time.Time) (waves.SunTimes, error)
}

// SpotInput is one spot's events for AnalyzeAll
type SpotInput struct {
	SpotID   string
	SpotName string
	Events   []waves.WaveEvent
}

// Analyzer scores spots and publishes the results to a Store
type Analyzer struct {
	provider    SunTimesProvider
	store       *Store
	logger      *zap.Logger
	tracer      trace.Tracer
	concurrency int
	now         func() time.Time
}

// Option customizes an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithConcurrency sets the AnalyzeAll worker limit
func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithClock overrides the time source used for AnalyzedAt
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer creates an analyzer publishing to store
func NewAnalyzer(provider SunTimesProvider, store *Store, opts ...Option) *Analyzer {
	a := &Analyzer{
		provider:    provider,
		store:       store,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer("github.com/pfederi/Next-Wave-sub001/internal/analytics"),
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store returns the store results are published to
func (a *Analyzer) Store() *Store {
	return a.store
}

// Analyze finds the best sessions among events and publishes them for spotID.
// When sun times cannot be fetched the sessions are ranked without the
// twilight penalty and darkness veto.
func (a *Analyzer) Analyze(ctx context.Context, spotID, spotName string, events []waves.WaveEvent) (waves.SpotAnalytics, error) {
	ctx, span := a.tracer.Start(ctx, "analytics.analyze", trace.WithAttributes(
		attribute.String("spot.id", spotID),
		attribute.Int("events", len(events)),
	))
	defer span.End()

	result := waves.SpotAnalytics{
		SpotID:    spotID,
		SpotName:  spotName,
		TimeSlots: []waves.WaveTimeSlot{},
	}

	sorted := waves.SortEvents(events)
	if len(sorted) < 2 || sorted[len(sorted)-1].Time.Sub(sorted[0].Time) < waves.MinSessionDuration {
		if err := ctx.Err(); err != nil {
			return waves.SpotAnalytics{}, err
		}
		result.AnalyzedAt = a.now()
		a.store.Publish(result)
		return result, nil
	}

	var sun *waves.SunTimes
	st, err := a.provider.SunTimes(ctx, sorted[0].Time)
	switch {
	case err == nil:
		sun = &st
	case ctx.Err() != nil:
		return waves.SpotAnalytics{}, ctx.Err()
	default:
		a.logger.Warn("sun times unavailable, ranking without daylight",
			zap.String("spot", spotID),
			zap.Time("date", sorted[0].Time),
			zap.Error(err))
		span.RecordError(err)
	}

	if err := ctx.Err(); err != nil {
		return waves.SpotAnalytics{}, err
	}

	result.TimeSlots = waves.FindSessions(sorted, sun)
	result.AnalyzedAt = a.now()
	a.store.Publish(result)

	span.SetAttributes(attribute.Int("slots", len(result.TimeSlots)))
	a.logger.Debug("analyzed spot",
		zap.String("spot", spotID),
		zap.Int("events", len(sorted)),
		zap.Int("slots", len(result.TimeSlots)),
		zap.Bool("daylight", sun != nil))

	return result, nil
}

// AnalyzeAll analyzes spots concurrently and returns the results of the
// spots that succeeded, in input order. A failing spot is logged and
// skipped; only cancellation of ctx is returned as an error.
func (a *Analyzer) AnalyzeAll(ctx context.Context, inputs []SpotInput) ([]waves.SpotAnalytics, error) {
	results := make([]*waves.SpotAnalytics, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, in := range inputs {
		g.Go(func() error {
			res, err := a.Analyze(gctx, in.SpotID, in.SpotName, in.Events)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.logger.Error("failed to analyze spot", zap.String("spot", in.SpotID), zap.Error(err))
				return nil
			}
			results[i] = &res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze spots: %w", err)
	}

	out := make([]waves.SpotAnalytics, 0, len(inputs))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}
