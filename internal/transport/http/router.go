// Package httptransport assembles the HTTP surface: middleware chain, public
// verification routes, admin routes, and operational endpoints. It should stay
// free of business logic so transport concerns remain isolated.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hetu/internal/platform/config"
	"hetu/internal/platform/health"
	"hetu/internal/verification/handler"
	"hetu/pkg/platform/middleware/admin"
	"hetu/pkg/platform/middleware/metadata"
	"hetu/pkg/platform/middleware/request"
	"hetu/pkg/platform/validation"
)

// Deps carries the wired components the router mounts. Construction happens
// in main (or in tests), not here.
type Deps struct {
	Config       config.Server
	Logger       *slog.Logger
	Verification *handler.Handler
	Health       *health.Handler
	Latency      *request.Metrics
}

// NewRouter wires all endpoints with the middleware chain.
//
// Order matters: recovery wraps everything, request identity and time must be
// in place before logging, and client metadata must be extracted before any
// handler that audits. The JSON content-type requirement applies only under
// /v1 so probes and the metrics scrape stay plain GETs.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	r.Use(metadata.NewMiddleware(&metadata.Config{
		TrustedProxies: metadata.ParseTrustedProxies(d.Config.TrustedProxies),
	}).Handler)
	r.Use(request.Logger(d.Logger))
	r.Use(request.BodyLimit(validation.MaxBodySize))
	r.Use(request.Timeout(d.Config.RequestTimeout))
	if d.Latency != nil {
		r.Use(request.LatencyMiddleware(d.Latency))
	}

	if d.Health != nil {
		d.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(request.ContentTypeJSON)
		d.Verification.Register(v1)

		v1.Route("/admin", func(ar chi.Router) {
			ar.Use(admin.RequireAdminToken(d.Config.AdminTokenHash, d.Logger))
			d.Verification.RegisterAdmin(ar)
		})
	})

	return r
}
