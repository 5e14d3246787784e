package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dmitrymomot/pillar/pkg/logger"
	"github.com/dmitrymomot/pillar/pkg/slug"
	"github.com/dmitrymomot/pillar/pkg/tenant"
)

// Provisioner creates and prepares a tenant's database. It may modify t and
// persists its own changes.
type Provisioner interface {
	Provision(ctx context.Context, t *tenant.Tenant) error
}

// Invalidator drops cached resolution results after writes.
type Invalidator interface {
	InvalidateTenant(ctx context.Context, slug string)
	InvalidateUser(ctx context.Context, userID uuid.UUID)
}

// Service manages the tenant catalog and memberships.
type Service interface {
	List(ctx context.Context) ([]*tenant.Tenant, error)
	Get(ctx context.Context, id int64) (*tenant.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error)
	// Create stores a tenant in the provisioning status. With
	// CreateInput.Provision set it also provisions synchronously; when that
	// fails the stored tenant is returned together with the error.
	Create(ctx context.Context, in CreateInput) (*tenant.Tenant, error)
	Update(ctx context.Context, id int64, in UpdateInput) (*tenant.Tenant, error)
	Delete(ctx context.Context, id int64) error
	Provision(ctx context.Context, id int64) (*tenant.Tenant, error)
	SetStatus(ctx context.Context, id int64, status tenant.Status) (*tenant.Tenant, error)
	IsSlugAvailable(ctx context.Context, slug string) (bool, error)

	ListMemberships(ctx context.Context, tenantID int64) ([]tenant.Membership, error)
	AssignMembership(ctx context.Context, tenantID int64, userID uuid.UUID, assignedBy *uuid.UUID) error
	RevokeMembership(ctx context.Context, tenantID int64, userID uuid.UUID) error
	ListUserTenants(ctx context.Context, userID uuid.UUID) ([]*tenant.Tenant, error)
}

type service struct {
	store       Store
	provisioner Provisioner
	cache       Invalidator
	validate    *validator.Validate
	log         *slog.Logger
	now         func() time.Time
}

// ServiceOption configures the tenant service.
type ServiceOption func(*service)

// WithInvalidator registers the resolution cache to clear on writes.
func WithInvalidator(inv Invalidator) ServiceOption {
	return func(s *service) {
		if inv != nil {
			s.cache = inv
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the tenant service.
// Panics if store or provisioner is nil.
func NewService(store Store, provisioner Provisioner, opts ...ServiceOption) Service {
	if store == nil {
		panic("tenant: store is required")
	}
	if provisioner == nil {
		panic("tenant: provisioner is required")
	}
	s := &service{
		store:       store,
		provisioner: provisioner,
		cache:       noopInvalidator{},
		validate:    newValidator(),
		log:         logger.Discard(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("tenant"))
	return s
}

func (s *service) List(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.store.ListTenants(ctx)
}

func (s *service) Get(ctx context.Context, id int64) (*tenant.Tenant, error) {
	return s.store.GetTenant(ctx, id)
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return s.store.GetTenantBySlug(ctx, tenant.NormalizeSlug(slug))
}

func (s *service) Create(ctx context.Context, in CreateInput) (*tenant.Tenant, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return nil, validationError(err)
	}

	raw := in.Slug
	if raw == "" {
		raw = slug.Make(in.Name)
	}
	sl, err := tenant.ValidateSlug(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot derive a slug from %q", ErrInvalidInput, in.Name)
	}
	if err := s.checkAvailable(ctx, sl, in.DatabaseName, 0); err != nil {
		return nil, err
	}

	t := &tenant.Tenant{
		Slug:             sl,
		Name:             in.Name,
		Status:           tenant.StatusProvisioning,
		DatabaseName:     in.DatabaseName,
		ConnectionString: in.ConnectionString,
		ContactEmail:     in.ContactEmail,
		ContactName:      in.ContactName,
		ContactPhone:     in.ContactPhone,
		Configuration:    in.Configuration,
		IsDemo:           in.IsDemo,
	}
	if in.Branding != nil {
		t.Branding = in.Branding.apply(nil)
	}
	if err := s.store.CreateTenant(ctx, t); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "tenant created", logger.TenantID(t.ID), logger.TenantSlug(t.Slug))

	if in.Provision {
		if err := s.provision(ctx, t); err != nil {
			return t, err
		}
	}
	return t, nil
}

func (s *service) Update(ctx context.Context, id int64, in UpdateInput) (*tenant.Tenant, error) {
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return nil, validationError(err)
	}
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Slug != nil && tenant.NormalizeSlug(*in.Slug) != tenant.NormalizeSlug(t.Slug) {
		return nil, ErrSlugImmutable
	}
	if in.DatabaseName != nil && *in.DatabaseName != t.DatabaseName {
		if err := s.checkAvailable(ctx, "", *in.DatabaseName, t.ID); err != nil {
			return nil, err
		}
		t.DatabaseName = *in.DatabaseName
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name: failed required", ErrInvalidInput)
		}
		t.Name = name
	}
	setIf(&t.ConnectionString, in.ConnectionString)
	setIf(&t.ContactEmail, in.ContactEmail)
	setIf(&t.ContactName, in.ContactName)
	setIf(&t.ContactPhone, in.ContactPhone)
	setIf(&t.IsDemo, in.IsDemo)
	if in.Configuration != nil {
		t.Configuration = in.Configuration
	}
	if in.Branding != nil {
		t.Branding = in.Branding.apply(t.Branding)
	}

	if err := s.store.UpdateTenant(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(ctx, t)
	return t, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return err
	}
	members, err := s.store.ListMemberships(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTenant(ctx, id); err != nil {
		return err
	}
	s.invalidateMembers(ctx, t.Slug, members)
	// The tenant database is kept; dropping it is an operator decision.
	s.log.InfoContext(ctx, "tenant deleted",
		logger.TenantID(t.ID), logger.TenantSlug(t.Slug), logger.Database(t.DatabaseName))
	return nil
}

func (s *service) Provision(ctx context.Context, id int64) (*tenant.Tenant, error) {
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.provision(ctx, t); err != nil {
		return t, err
	}
	return t, nil
}

func (s *service) provision(ctx context.Context, t *tenant.Tenant) error {
	defer s.invalidate(ctx, t)
	if err := s.provisioner.Provision(ctx, t); err != nil {
		s.log.ErrorContext(ctx, "tenant provisioning failed",
			logger.TenantID(t.ID), logger.TenantSlug(t.Slug), logger.Error(err))
		return err
	}
	return nil
}

func (s *service) SetStatus(ctx context.Context, id int64, status tenant.Status) (*tenant.Tenant, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tenant.TransitionTo(t.Status, status); err != nil {
		return nil, err
	}
	if t.Status == status {
		return t, nil
	}

	t.Status = status
	if status == tenant.StatusActive && t.ActivatedAt == nil {
		now := s.now().UTC()
		t.ActivatedAt = &now
	}
	if err := s.store.UpdateTenant(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(ctx, t)
	s.log.InfoContext(ctx, "tenant status changed",
		logger.TenantID(t.ID), logger.TenantSlug(t.Slug), slog.String("status", string(status)))
	return t, nil
}

// invalidate drops the tenant's slug entry and the primary-tenant entries of
// its members, which cache a full copy of the tenant.
func (s *service) invalidate(ctx context.Context, t *tenant.Tenant) {
	members, err := s.store.ListMemberships(ctx, t.ID)
	if err != nil {
		s.log.WarnContext(ctx, "cannot list members for cache invalidation",
			logger.TenantID(t.ID), logger.Error(err))
	}
	s.invalidateMembers(ctx, t.Slug, members)
}

func (s *service) invalidateMembers(ctx context.Context, slug string, members []tenant.Membership) {
	s.cache.InvalidateTenant(ctx, slug)
	for _, m := range members {
		s.cache.InvalidateUser(ctx, m.UserID)
	}
}

func (s *service) IsSlugAvailable(ctx context.Context, raw string) (bool, error) {
	sl, err := tenant.ValidateSlug(raw)
	if err != nil {
		return false, err
	}
	exists, err := s.store.SlugExists(ctx, sl, 0)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func (s *service) ListMemberships(ctx context.Context, tenantID int64) ([]tenant.Membership, error) {
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.store.ListMemberships(ctx, tenantID)
}

func (s *service) AssignMembership(ctx context.Context, tenantID int64, userID uuid.UUID, assignedBy *uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return err
	}
	created, err := s.store.AssignMembership(ctx, tenant.Membership{
		TenantID:   tenantID,
		UserID:     userID,
		AssignedBy: assignedBy,
		AssignedAt: s.now().UTC(),
	})
	if err != nil {
		return err
	}
	if created {
		s.cache.InvalidateUser(ctx, userID)
	}
	return nil
}

func (s *service) RevokeMembership(ctx context.Context, tenantID int64, userID uuid.UUID) error {
	revoked, err := s.store.RevokeMembership(ctx, tenantID, userID, s.now().UTC())
	if err != nil {
		return err
	}
	if revoked {
		s.cache.InvalidateUser(ctx, userID)
	}
	return nil
}

func (s *service) ListUserTenants(ctx context.Context, userID uuid.UUID) ([]*tenant.Tenant, error) {
	return s.store.ListUserTenants(ctx, userID)
}

// checkAvailable runs the uniqueness pre-checks. Empty values are skipped.
func (s *service) checkAvailable(ctx context.Context, sl, dbName string, excludeID int64) error {
	if sl != "" {
		taken, err := s.store.SlugExists(ctx, sl, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %q", ErrSlugTaken, sl)
		}
	}
	if dbName != "" {
		taken, err := s.store.DatabaseNameExists(ctx, dbName, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %q", ErrDatabaseNameTaken, dbName)
		}
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateTenant(context.Context, string)  {}
func (noopInvalidator) InvalidateUser(context.Context, uuid.UUID) {}

