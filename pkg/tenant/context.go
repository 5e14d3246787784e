package tenant

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/pillar/pkg/logger"
)

// Context is the request-scoped view of the resolved tenant. It is written
// once by the middleware and read by everything after it. It has no locking
// and must never be shared between requests.
type Context struct {
	ID               int64
	Slug             string
	Name             string
	Status           Status
	Branding         *Branding
	IsDemo           bool
	ConnectionString string
}

// NewContext returns an unresolved Context.
func NewContext() *Context {
	return &Context{Status: StatusProvisioning}
}

// IsResolved reports whether a tenant has been applied.
func (c *Context) IsResolved() bool {
	return c != nil && c.ID != 0
}

// Apply copies the tenant's identity into the context.
func (c *Context) Apply(t *Tenant) {
	if t == nil {
		c.Reset()
		return
	}
	c.ID = t.ID
	c.Slug = t.Slug
	c.Name = t.Name
	c.Status = t.Status
	c.Branding = t.Branding
	c.IsDemo = t.IsDemo
	c.ConnectionString = t.ConnectionString
}

// Reset clears every field back to the unresolved state.
func (c *Context) Reset() {
	*c = Context{Status: StatusProvisioning}
}

type contextKey struct{}

// WithContext attaches tc to ctx.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext returns the request's tenant Context, if the middleware ran.
func FromContext(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(*Context)
	return tc, ok && tc != nil
}

// IDFromContext returns the resolved tenant id.
func IDFromContext(ctx context.Context) (int64, bool) {
	tc, ok := FromContext(ctx)
	if !ok || !tc.IsResolved() {
		return 0, false
	}
	return tc.ID, true
}

// LoggerExtractor adds tenant_id to log records emitted with a resolved
// request context.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return logger.TenantID(id), true
		}
		return slog.Attr{}, false
	}
}
