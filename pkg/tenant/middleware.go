package tenant

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/pillar/pkg/jwt"
	"github.com/dmitrymomot/pillar/pkg/logger"
)

// DefaultPublicPaths are served even when no tenant resolves. Entries
// ending in "/" match by prefix, the rest match exactly or as a parent
// segment.
var DefaultPublicPaths = []string{
	"/health",
	"/healthz",
	"/ready",
	"/metrics",
	"/static/",
	"/assets/",
	"/favicon.ico",
	"/robots.txt",
	"/_app/",
	"/onboarding",
	"/api/onboarding",
	"/api/auth/",
}

// ErrorHandler writes the denial response. It must not reveal why
// resolution failed.
type ErrorHandler func(w http.ResponseWriter, r *http.Request)

type middlewareConfig struct {
	publicPaths   []string
	log           *slog.Logger
	errorHandler  ErrorHandler
	requireActive bool
	metrics       *Metrics
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

// WithPublicPaths replaces the default public path list.
func WithPublicPaths(paths ...string) MiddlewareOption {
	return func(c *middlewareConfig) { c.publicPaths = paths }
}

// WithLogger sets the logger used for resolution faults.
func WithLogger(log *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// WithErrorHandler replaces the default 403 response.
func WithErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithRequireActive treats tenants that are not active as unresolved.
func WithRequireActive(require bool) MiddlewareOption {
	return func(c *middlewareConfig) { c.requireActive = require }
}

// WithMetrics records every resolution decision.
func WithMetrics(m *Metrics) MiddlewareOption {
	return func(c *middlewareConfig) { c.metrics = m }
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

// Middleware binds every request to at most one tenant.
//
// A fresh Context is attached to each request. When a tenant resolves, it is
// applied and, for authenticated callers, tenant_id and tenant_slug claims
// are added unless already present. When nothing resolves, or the resolver
// fails, the Context is reset and the request is denied unless its path is
// public. Resolver errors are logged and never reach the response.
func Middleware(resolver RequestResolver, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		publicPaths:  DefaultPublicPaths,
		log:          logger.Discard(),
		errorHandler: defaultErrorHandler,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.log.With(logger.Component("tenant_middleware"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			tc := NewContext()
			ctx := WithContext(r.Context(), tc)
			r = r.WithContext(ctx)

			claims, _ := jwt.ClaimsFromContext(ctx)

			t, err := resolver.Resolve(ctx, r, claims)
			fault := err != nil
			if fault {
				log.ErrorContext(ctx, "tenant resolution failed",
					logger.Error(err),
					slog.String("path", r.URL.Path),
				)
				t = nil
			}
			if t != nil && cfg.requireActive {
				if err := t.CheckActive(); err != nil {
					log.DebugContext(ctx, "tenant denied", logger.TenantSlug(t.Slug), logger.Error(err))
					t = nil
				}
			}

			if t != nil {
				tc.Apply(t)
				if claims.Authenticated() {
					claims.AddIfAbsent(jwt.ClaimTenantID, t.ID)
					claims.AddIfAbsent(jwt.ClaimTenantSlug, t.Slug)
				}
				cfg.metrics.observe(OutcomeResolved, false, time.Since(start))
				next.ServeHTTP(w, r)
				return
			}

			tc.Reset()
			if IsPublicPath(r.URL.Path, cfg.publicPaths) {
				cfg.metrics.observe(OutcomePublic, fault, time.Since(start))
				next.ServeHTTP(w, r)
				return
			}

			cfg.metrics.observe(OutcomeDenied, fault, time.Since(start))
			cfg.errorHandler(w, r)
		})
	}
}

// RequireTenant denies requests whose Context is not resolved, for routes
// that are public at the outer layer but tenant-scoped below.
func RequireTenant(h ErrorHandler) func(http.Handler) http.Handler {
	if h == nil {
		h = defaultErrorHandler
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := FromContext(r.Context())
			if !ok || !tc.IsResolved() {
				h(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsPublicPath reports whether path is exempt from tenant enforcement.
func IsPublicPath(path string, public []string) bool {
	for _, p := range public {
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) || path == strings.TrimSuffix(p, "/") {
				return true
			}
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
