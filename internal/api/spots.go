// Package api serves the latest wave-session analytics over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pfederi/Next-Wave-sub001/internal/db"
	"github.com/pfederi/Next-Wave-sub001/internal/metrics"
	"github.com/pfederi/Next-Wave-sub001/internal/waves"
)

const requestTimeout = 5 * time.Second

// SpotRepository defines the read operations the spot endpoints need
type SpotRepository interface {
	ListSpotAnalytics(ctx context.Context) ([]waves.SpotAnalytics, error)
	GetSpotAnalytics(ctx context.Context, spotID string) (waves.SpotAnalytics, error)
	GetSpotBaseline(ctx context.Context, spotID string, dayOfWeek int) (metrics.SpotBaseline, error)
}

// SpotsHandler handles HTTP requests for spot analytics
type SpotsHandler struct {
	repo   SpotRepository
	loc    *time.Location
	logger *zap.Logger
}

// NewSpotsHandler creates a handler. Baseline weekdays are taken in loc.
func NewSpotsHandler(repo SpotRepository, loc *time.Location, logger *zap.Logger) *SpotsHandler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpotsHandler{repo: repo, loc: loc, logger: logger}
}

// ListSpotsResponse is the JSON response for GET /api/spots
type ListSpotsResponse struct {
	Spots []waves.SpotAnalytics `json:"spots"`
	Count int                   `json:"count"`
}

// SpotResponse is the JSON response for GET /api/spots/{spotId}
type SpotResponse struct {
	waves.SpotAnalytics
	Baseline *metrics.SpotBaseline `json:"baseline,omitempty"`
	// BestSlotZScore compares the best session's waves per hour with the
	// weekday baseline; omitted until the baseline has enough samples.
	BestSlotZScore *float64 `json:"bestSlotZScore,omitempty"`
}

// ListSpots handles GET /api/spots
func (h *SpotsHandler) ListSpots(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	spots, err := h.repo.ListSpotAnalytics(ctx)
	if err != nil {
		h.logger.Error("failed to list spot analytics", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve spots", map[string]interface{}{
			"message": err.Error(),
		})
		return
	}
	if spots == nil {
		spots = []waves.SpotAnalytics{}
	}

	w.Header().Set("Cache-Control", "public, max-age=60, stale-while-revalidate=30")
	writeJSON(w, http.StatusOK, ListSpotsResponse{Spots: spots, Count: len(spots)})
}

// GetSpot handles GET /api/spots/{spotId}
func (h *SpotsHandler) GetSpot(w http.ResponseWriter, r *http.Request) {
	spotID := chi.URLParam(r, "spotId")
	if spotID == "" {
		writeError(w, http.StatusBadRequest, "spotId is required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	analysis, err := h.repo.GetSpotAnalytics(ctx, spotID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Spot not found", map[string]interface{}{
			"spotId": spotID,
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to get spot analytics", zap.String("spot", spotID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve spot", map[string]interface{}{
			"message": err.Error(),
		})
		return
	}

	resp := SpotResponse{SpotAnalytics: analysis}

	dayOfWeek := int(analysis.AnalyzedAt.In(h.loc).Weekday())
	baseline, err := h.repo.GetSpotBaseline(ctx, spotID, dayOfWeek)
	switch {
	case err == nil:
		resp.Baseline = &baseline
		if best := analysis.BestTimeSlot(); best != nil && baseline.Reliable() {
			z := baseline.ZScore(best.WavesPerHour())
			resp.BestSlotZScore = &z
		}
	case errors.Is(err, db.ErrNotFound):
	default:
		// baseline is optional decoration
		h.logger.Warn("failed to get spot baseline", zap.String("spot", spotID), zap.Error(err))
	}

	w.Header().Set("Cache-Control", "public, max-age=60, stale-while-revalidate=30")
	writeJSON(w, http.StatusOK, resp)
}
