package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/pillar/pkg/httpserver"
	"github.com/dmitrymomot/pillar/pkg/jwt"
	"github.com/dmitrymomot/pillar/pkg/requestid"
	"github.com/dmitrymomot/pillar/pkg/tenant"
	"github.com/dmitrymomot/pillar/svc/activity"
	tenantsvc "github.com/dmitrymomot/pillar/svc/tenant"
)

// routerDeps is everything the HTTP surface needs. Tests build it without a
// database.
type routerDeps struct {
	log           *slog.Logger
	tenants       tenantsvc.Service
	resolver      tenant.RequestResolver
	tokens        *jwt.Service
	adminClaim    string
	activity      *activity.Log
	gatherer      prometheus.Gatherer
	metrics       *tenant.Metrics
	publicPaths   []string
	requireActive bool
	readiness     map[string]httpserver.Check
}

func (a *app) routerDeps() routerDeps {
	return routerDeps{
		log:           a.log,
		tenants:       a.tenants,
		resolver:      a.resolver,
		tokens:        a.tokens,
		adminClaim:    a.cfg.AdminClaim,
		activity:      a.activity,
		gatherer:      a.registry,
		metrics:       a.metrics,
		publicPaths:   a.cfg.Tenant.publicPaths(),
		requireActive: a.cfg.Tenant.RequireActive,
		readiness:     a.readiness,
	}
}

// newRouter lays out three areas: operational endpoints, the admin API
// (token with the admin claim required, no tenant binding), and everything
// else, which runs behind tenant resolution.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", httpserver.LivenessHandler())
	r.Get("/ready", httpserver.ReadinessHandler(d.log, d.readiness))
	if d.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))
	}

	if d.tokens != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(jwt.Middleware(d.tokens))
			r.Use(jwt.RequireClaim(d.adminClaim))
			r.Mount("/", tenantsvc.NewHandler(d.tenants, d.log).Routes())
		})
	}

	r.Group(func(r chi.Router) {
		if d.tokens != nil {
			r.Use(jwt.OptionalMiddleware(d.tokens))
		}
		r.Use(tenant.Middleware(d.resolver,
			tenant.WithPublicPaths(d.publicPaths...),
			tenant.WithRequireActive(d.requireActive),
			tenant.WithLogger(d.log),
			tenant.WithMetrics(d.metrics),
		))

		r.Get("/api/tenant", currentTenant)
		if d.activity != nil {
			r.Mount("/api/activity", activity.Routes(d.activity, d.log))
		}
	})

	return r
}

type currentTenantResponse struct {
	ID       int64            `json:"id"`
	Slug     string           `json:"slug"`
	Name     string           `json:"name"`
	Status   tenant.Status    `json:"status"`
	IsDemo   bool             `json:"is_demo"`
	Branding *tenant.Branding `json:"branding,omitempty"`
}

func currentTenant(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok || !tc.IsResolved() {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": currentTenantResponse{
		ID:       tc.ID,
		Slug:     tc.Slug,
		Name:     tc.Name,
		Status:   tc.Status,
		IsDemo:   tc.IsDemo,
		Branding: tc.Branding,
	}})
}
