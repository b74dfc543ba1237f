// Package httptransport wires the HTTP surface: middleware stack, domain
// handlers, health probes, and the Prometheus scrape endpoint.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	issuancehandler "vc-gateway/internal/issuance/handler"
	"vc-gateway/internal/platform/health"
	"vc-gateway/internal/platform/metrics"
	"vc-gateway/internal/platform/middleware"
	statshandler "vc-gateway/internal/stats/handler"
)

// Deps are the handlers the router mounts.
type Deps struct {
	Issuance *issuancehandler.Handler
	Stats    *statshandler.Handler
	Health   *health.Handler
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.Timeout(30 * time.Second))

	deps.Health.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		deps.Issuance.Register(r)
		deps.Stats.Register(r)
	})

	return r
}
