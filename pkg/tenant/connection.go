package tenant

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/pillar/pkg/logger"
)

// ConnectionResolver picks the database connection string for the current
// request.
type ConnectionResolver struct {
	// Default is the process-wide connection string. It may be empty; the
	// data layer reports that as a configuration error.
	Default string
	Logger  *slog.Logger
}

// NewConnectionResolver returns a resolver falling back to def.
func NewConnectionResolver(def string, log *slog.Logger) *ConnectionResolver {
	if log == nil {
		log = logger.Discard()
	}
	return &ConnectionResolver{Default: def, Logger: log}
}

// ConnectionString returns the tenant's own connection string when the
// request is resolved and the tenant has one, and the default otherwise.
func (c *ConnectionResolver) ConnectionString(ctx context.Context) string {
	tc, ok := FromContext(ctx)
	if !ok || !tc.IsResolved() {
		return c.Default
	}
	if tc.ConnectionString != "" {
		return tc.ConnectionString
	}

	if c.Logger != nil {
		c.Logger.WarnContext(ctx, "tenant has no connection string, using default",
			logger.TenantSlug(tc.Slug),
		)
	}
	return c.Default
}
