package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pillar/pkg/tenant"
)

// Store persists the tenant catalog. Lookups by id or slug return
// ErrTenantNotFound when the tenant does not exist.
type Store interface {
	tenant.Store

	ListTenants(ctx context.Context) ([]*tenant.Tenant, error)
	GetTenant(ctx context.Context, id int64) (*tenant.Tenant, error)
	// SlugExists compares case-insensitively and ignores excludeID.
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	DatabaseNameExists(ctx context.Context, name string, excludeID int64) (bool, error)
	// CreateTenant inserts t and its branding, filling in generated ids and
	// timestamps.
	CreateTenant(ctx context.Context, t *tenant.Tenant) error
	// UpdateTenant overwrites every mutable column; last writer wins.
	UpdateTenant(ctx context.Context, t *tenant.Tenant) error
	DeleteTenant(ctx context.Context, id int64) error

	ListMemberships(ctx context.Context, tenantID int64) ([]tenant.Membership, error)
	// AssignMembership creates the membership, or reactivates a revoked one.
	// It reports false when an active membership already existed.
	AssignMembership(ctx context.Context, m tenant.Membership) (bool, error)
	// RevokeMembership stamps revoked_at on an active membership and reports
	// whether one existed.
	RevokeMembership(ctx context.Context, tenantID int64, userID uuid.UUID, at time.Time) (bool, error)
	ListUserTenants(ctx context.Context, userID uuid.UUID) ([]*tenant.Tenant, error)
}
