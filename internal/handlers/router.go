package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jwebster45206/world-engine/internal/middleware"
	"github.com/jwebster45206/world-engine/internal/services"
)

type RouterConfig struct {
	Service *services.LocationService
	// Health lists the components reported by /health.
	Health map[string]services.HealthChecker
	// Events enables /v1/events when set.
	Events Subscriber
	Logger *slog.Logger
}

// NewRouter wires every endpoint behind request IDs, request logging and
// panic recovery.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(chimw.Recoverer)

	r.Method(http.MethodGet, "/health", NewHealthHandler(cfg.Health, cfg.Logger))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/locations", NewLocationHandler(cfg.Service, cfg.Logger).Routes)
		r.Route("/features", NewFeatureHandler(cfg.Service, cfg.Logger).Routes)
		r.Method(http.MethodGet, "/world/diagnostics", NewDiagnosticsHandler(cfg.Service, cfg.Logger))
		if cfg.Events != nil {
			r.Method(http.MethodGet, "/events", NewEventsHandler(cfg.Events, cfg.Logger))
		}
	})

	return r
}
