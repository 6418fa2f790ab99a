package main

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agentconsent/internal/auth"
	"agentconsent/internal/consent/handler"
	"agentconsent/internal/platform/config"
	"agentconsent/internal/platform/health"
	ratelimitmw "agentconsent/internal/ratelimit/middleware"
	ratelimitmodels "agentconsent/internal/ratelimit/models"
	authmw "agentconsent/pkg/platform/middleware/auth"
	"agentconsent/pkg/platform/middleware/metadata"
	"agentconsent/pkg/platform/middleware/request"
	"agentconsent/pkg/platform/middleware/requesttime"
)

type routerDeps struct {
	cfg      config.Config
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	httpM    *request.Metrics
	authM    *authmw.Metrics
	probes   *health.Handler
	provider auth.Provider
	consent  *handler.Handler
	trusted  []netip.Prefix
	limits   *ratelimitmw.Middleware
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(d.logger))
	r.Use(request.RequestID)
	r.Use(metadata.New(d.trusted))
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(d.logger))
	r.Use(request.LatencyMiddleware(d.httpM))
	r.Use(request.BodyLimit(d.cfg.Server.MaxBodyBytes))

	d.probes.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(d.cfg.Server.RequestTimeout))
		r.Use(d.limits.RateLimit(ratelimitmodels.ClassWeb))
		d.consent.RegisterWeb(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(d.cfg.Server.RequestTimeout))
		r.Use(request.ContentTypeJSON)
		r.Use(authmw.RequireAuth(d.provider, d.logger, authmw.Options{
			BootstrapKey: d.cfg.Auth.BootstrapKey,
			Metrics:      d.authM,
			MaxBodyBytes: d.cfg.Server.MaxBodyBytes,
		}))
		r.Use(d.limits.RateLimit(ratelimitmodels.ClassTools))
		d.consent.RegisterTools(r)
		if d.cfg.IsTest() {
			r.With(authmw.RequireScope(scopeAdmin, d.logger, d.authM)).Group(d.consent.RegisterAdmin)
		}
	})

	return r
}
