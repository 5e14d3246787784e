package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/pillar/pkg/logger"
	"github.com/dmitrymomot/pillar/pkg/tenant"
)

// Infra is the database server side of provisioning.
type Infra interface {
	// EnsureDatabase creates the database unless it exists and reports
	// whether it did. It must be safe against concurrent callers.
	EnsureDatabase(ctx context.Context, connString, name string) (bool, error)
	// Open connects to a tenant database.
	Open(ctx context.Context, connString string) (TenantDB, error)
}

// TenantDB is an open connection to one tenant database.
type TenantDB interface {
	Seeder
	// Migrate applies pending migrations and returns how many ran.
	Migrate(ctx context.Context) (int, error)
	Close()
}

// TenantUpdater persists tenant changes made during provisioning.
type TenantUpdater interface {
	UpdateTenant(ctx context.Context, t *tenant.Tenant) error
}

// Service provisions tenant databases.
type Service struct {
	opts    Options
	infra   Infra
	tenants TenantUpdater
	log     *slog.Logger
	metrics *Metrics
	now     func() time.Time
	group   singleflight.Group
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records run durations.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a provisioning Service.
func NewService(opts Options, infra Infra, tenants TenantUpdater, svcOpts ...ServiceOption) *Service {
	s := &Service{
		opts:    opts.withDefaults(),
		infra:   infra,
		tenants: tenants,
		log:     logger.Discard(),
		now:     time.Now,
	}
	for _, o := range svcOpts {
		o(s)
	}
	s.log = s.log.With(logger.Component("provision"))
	return s
}

// Provision prepares, creates, migrates and seeds the tenant's database,
// then activates the tenant when AutoActivate is set. The steps run in that
// order and stop at the first error; nothing is rolled back, and a retry
// picks up where the failed run stopped.
//
// Concurrent calls for the same slug within this process share one run; t
// receives the outcome in every caller. The run is detached from ctx and
// bounded by Options.Timeout, so a caller that gives up returns ctx.Err()
// without failing the others.
func (s *Service) Provision(ctx context.Context, t *tenant.Tenant) error {
	if t == nil {
		return ErrNilTenant
	}

	ch := s.group.DoChan(tenant.NormalizeSlug(t.Slug), func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeout)
		defer cancel()

		work := t.Clone()
		start := time.Now()
		err := s.provision(runCtx, work)
		s.metrics.observe(err, time.Since(start))
		return work, err
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if work, ok := res.Val.(*tenant.Tenant); ok && work != nil {
			*t = *work.Clone()
		}
		return res.Err
	}
}

func (s *Service) provision(ctx context.Context, t *tenant.Tenant) error {
	log := s.log.With(logger.TenantSlug(t.Slug), logger.TenantID(t.ID))
	start := time.Now()

	dbName, dsn := t.DatabaseName, t.ConnectionString
	if err := PrepareConnection(t, s.opts); err != nil {
		return fmt.Errorf("%w: %w", ErrPrepareConnection, err)
	}
	if t.DatabaseName != dbName || t.ConnectionString != dsn {
		if err := s.tenants.UpdateTenant(ctx, t); err != nil {
			return fmt.Errorf("%w: save connection: %w", ErrPrepareConnection, err)
		}
	}
	log = log.With(logger.Database(t.DatabaseName))

	created, err := s.infra.EnsureDatabase(ctx, t.ConnectionString, t.DatabaseName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateDatabase, err)
	}
	log.InfoContext(ctx, "tenant database ready", logger.Step("database"), slog.Bool("created", created))

	db, err := s.infra.Open(ctx, t.ConnectionString)
	if err != nil {
		return fmt.Errorf("%w: open: %w", ErrMigrate, err)
	}
	defer db.Close()

	applied, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrate, err)
	}
	log.InfoContext(ctx, "tenant schema migrated", logger.Step("migrate"), slog.Int("applied", applied))

	res, err := Seed(ctx, db, t, s.opts, log)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSeed, err)
	}
	log.InfoContext(ctx, "tenant seeded", logger.Step("seed"),
		slog.Int("roles_created", res.RolesCreated),
		slog.Bool("admin_created", res.UserCreated),
	)

	if s.opts.AutoActivate {
		if err := s.activate(ctx, t, log); err != nil {
			return fmt.Errorf("%w: %w", ErrActivate, err)
		}
	}

	log.InfoContext(ctx, "tenant provisioned", logger.Duration(time.Since(start)))
	return nil
}

func (s *Service) activate(ctx context.Context, t *tenant.Tenant, log *slog.Logger) error {
	switch t.Status {
	case tenant.StatusProvisioning, "":
		t.Status = tenant.StatusActive
	case tenant.StatusActive:
	default:
		// Suspended and archived tenants keep their status; only the
		// lifecycle API moves them.
		log.InfoContext(ctx, "tenant not activated", slog.String("status", string(t.Status)))
		return nil
	}
	if t.ActivatedAt == nil {
		now := s.now().UTC()
		t.ActivatedAt = &now
	}
	return s.tenants.UpdateTenant(ctx, t)
}
