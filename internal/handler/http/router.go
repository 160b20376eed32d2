package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/inventory-es/pkg/health"
	"github.com/utafrali/inventory-es/pkg/middleware"
)

// RouterConfig carries the pieces the router needs beyond the handler itself.
type RouterConfig struct {
	Logger      *slog.Logger
	Health      *health.Handler
	CORSOrigins []string
	Environment string
}

// NewRouter assembles the HTTP surface: middleware chain, health and metrics
// endpoints, and the versioned inventory API.
func NewRouter(h *InventoryHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.CORSOrigins
	}
	corsCfg.Environment = cfg.Environment

	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("inventory-es"))

	r.Get("/health", cfg.Health.LivenessHandler())
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Post("/stock", h.AddStock)
		r.Post("/reserve", h.ReserveStock)
		r.Post("/commit", h.CommitReservation)
		r.Post("/release", h.ReleaseReservation)
		r.Post("/adjust", h.AdjustStock)
		r.Post("/availability", h.CheckAvailability)
		r.Post("/rebuild", h.RebuildProjection)

		r.Get("/products/{productID}", h.GetProductInventory)
		r.Get("/products/{productID}/stores/{storeID}", h.GetStock)
	})

	return r
}
