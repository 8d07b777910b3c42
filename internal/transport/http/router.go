// Package httptransport is the thin HTTP layer. Handlers delegate to the
// lifecycle service without embedding business logic so transport concerns
// remain isolated.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arcop/internal/platform/metrics"
	"arcop/internal/platform/middleware"
	"arcop/internal/transport/http/shared"
	"arcop/pkg/platform/middleware/metadata"
	"arcop/pkg/platform/middleware/requesttime"
)

// HealthCheck probes one dependency. A nil map means the process answers for
// itself only.
type HealthCheck func(ctx context.Context) error

// NewRouter assembles the HTTP surface: shared middleware, the public and
// reviewer handlers, health and metrics.
func NewRouter(
	logger *slog.Logger,
	m *metrics.Metrics,
	public *PublicHandler,
	reviewer *ReviewerHandler,
	checks map[string]HealthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Latency(m))

	r.Get("/healthz", handleHealth(checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	public.Register(r)
	reviewer.Register(r)
	return r
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		detail := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				detail[name] = err.Error()
				continue
			}
			detail[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(detail) > 0 {
			body["checks"] = detail
		}
		shared.WriteJSON(w, status, body)
	}
}
