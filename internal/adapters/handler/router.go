package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/familycare/visit-service/internal/adapters/middleware"
	"github.com/familycare/visit-service/internal/core/domain"
)

type RouterConfig struct {
	Visits         *VisitHandler
	Alerts         *AlertHandler
	Health         *HealthHandler
	Auth           *middleware.AuthMiddleware
	AllowedOrigins []string
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewRouter wires the public probes and the authenticated visit and alert API.
func NewRouter(cfg RouterConfig) http.Handler {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", cfg.Health.Health)
	r.Get("/health/ready", cfg.Health.Ready)
	r.Get("/health/live", cfg.Health.Live)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	supervisors := middleware.RequireRole(domain.RoleAdmin, domain.RoleCoordinator)

	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth.Authenticate)

		r.Route("/visits", func(r chi.Router) {
			r.Post("/", cfg.Visits.Create)
			r.With(supervisors).Get("/", cfg.Visits.List)
			r.Get("/my-visits", cfg.Visits.Mine)
			r.With(supervisors).Get("/family/{familyId}", cfg.Visits.ByFamily)
			r.Get("/{id}", cfg.Visits.Get)
			r.Patch("/{id}/validate", cfg.Visits.Validate)
			r.Patch("/{id}/check-in", cfg.Visits.CheckIn)
		})

		r.With(supervisors).Get("/alerts", cfg.Alerts.Alerts)
		r.With(supervisors).Get("/stats", cfg.Alerts.Stats)
	})

	return r
}
