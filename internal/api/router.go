package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Repository is everything the router needs from storage
type Repository interface {
	SpotRepository
	Pinger
}

// RouterConfig configures NewRouter
type RouterConfig struct {
	AllowedOrigins []string
	Location       *time.Location
	Logger         *zap.Logger
}

// NewRouter wires the API routes
func NewRouter(repo Repository, cfg RouterConfig) http.Handler {
	spots := NewSpotsHandler(repo, cfg.Location, cfg.Logger)
	health := NewHealthHandler(repo)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", health.GetHealth)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/api/spots", spots.ListSpots)
	r.Get("/api/spots/{spotId}", spots.GetSpot)

	return r
}
