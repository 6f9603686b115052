package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pfederi/Next-Wave-sub001/internal/waves"
)

// MinBaselineSamples is the sample count below which a baseline is not trusted
const MinBaselineSamples = 3

// SpotBaseline is the running distribution of a spot's best-session density
// on one weekday
type SpotBaseline struct {
	SpotID      string    `json:"spotId"`
	DayOfWeek   int       `json:"dayOfWeek"` // 0 = Sunday
	Mean        float64   `json:"wavesPerHourMean"`
	StdDev      float64   `json:"wavesPerHourStdDev"`
	SampleCount int       `json:"sampleCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Reliable reports whether enough samples back the baseline
func (b SpotBaseline) Reliable() bool {
	return b.SampleCount >= MinBaselineSamples
}

// ZScore compares value with this baseline
func (b SpotBaseline) ZScore(value float64) float64 {
	return ZScore(value, b.Mean, b.StdDev)
}

// BaselineStore persists baselines
type BaselineStore interface {
	UpdateSpotBaseline(ctx context.Context, spotID string, dayOfWeek int, value float64) error
}

// BaselineLearner feeds analysis results into per-spot baselines
type BaselineLearner struct {
	store  BaselineStore
	logger *zap.Logger
}

// NewBaselineLearner creates a learner. A nil logger discards output.
func NewBaselineLearner(store BaselineStore, logger *zap.Logger) *BaselineLearner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaselineLearner{store: store, logger: logger}
}

// Observe records the best session density of each analysis under the
// weekday of day. Spots without sessions are skipped so that schedule gaps
// do not drag the baseline towards zero.
func (l *BaselineLearner) Observe(ctx context.Context, day time.Time, results []waves.SpotAnalytics) int {
	dayOfWeek := int(day.Weekday())
	updated := 0

	for _, a := range results {
		best := a.BestTimeSlot()
		if best == nil {
			continue
		}
		if err := l.store.UpdateSpotBaseline(ctx, a.SpotID, dayOfWeek, best.WavesPerHour()); err != nil {
			l.logger.Warn("failed to update baseline", zap.String("spot", a.SpotID), zap.Error(err))
			continue
		}
		updated++
	}

	return updated
}
