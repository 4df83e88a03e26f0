package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/vidbridge/internal/api/handler"
	mw "github.com/iconidentify/vidbridge/internal/api/middleware"
	"github.com/iconidentify/vidbridge/internal/telemetry"
)

// NewRouter creates the status HTTP router.
func NewRouter(
	logger *slog.Logger,
	healthHandler *handler.HealthHandler,
	recordsHandler *handler.RecordsHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", healthHandler.Stats)
		r.Get("/records", recordsHandler.List)
	})

	return r
}
