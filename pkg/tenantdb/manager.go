package tenantdb

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/pillar/pkg/cache"
	"github.com/dmitrymomot/pillar/pkg/logger"
	"github.com/dmitrymomot/pillar/pkg/pg"
	"github.com/dmitrymomot/pillar/pkg/tenant"
)

// DefaultMaxPools bounds the number of open tenant pools.
const DefaultMaxPools = 64

// TenantSetting is the session variable consulted by row-level-security
// policies.
const TenantSetting = "app.tenant_id"

// Connector opens a pool for the given config.
type Connector func(ctx context.Context, cfg pg.Config) (*pgxpool.Pool, error)

// Manager owns one pool per tenant database.
type Manager struct {
	base     pg.Config
	resolver *tenant.ConnectionResolver
	pools    *cache.LRUCache[string, *pgxpool.Pool]
	group    singleflight.Group
	connect  Connector
	log      *slog.Logger
	closed   atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxPools sets the registry capacity.
func WithMaxPools(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.pools = cache.NewLRUCache[string, *pgxpool.Pool](n)
		}
	}
}

// WithConnector replaces pg.Connect.
func WithConnector(c Connector) Option {
	return func(m *Manager) {
		if c != nil {
			m.connect = c
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates a Manager. base supplies pool limits and retry settings for
// every tenant pool; its connection string is ignored.
func New(base pg.Config, resolver *tenant.ConnectionResolver, opts ...Option) *Manager {
	m := &Manager{
		base:     base,
		resolver: resolver,
		pools:    cache.NewLRUCache[string, *pgxpool.Pool](DefaultMaxPools),
		connect:  pg.Connect,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(logger.Component("tenantdb"))
	m.pools.OnEvict(func(_ string, p *pgxpool.Pool) {
		go p.Close()
	})
	return m
}

// Pool returns the pool for the current request's connection string.
func (m *Manager) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}

	dsn := m.resolver.ConnectionString(ctx)
	if dsn == "" {
		return nil, ErrNoConnectionString
	}

	if p, ok := m.pools.Get(dsn); ok {
		return p, nil
	}

	v, err, _ := m.group.Do(dsn, func() (any, error) {
		if p, ok := m.pools.Get(dsn); ok {
			return p, nil
		}
		p, err := m.connect(ctx, m.base.WithConnectionString(dsn))
		if err != nil {
			return nil, errors.Join(ErrConnect, err)
		}
		if old, replaced := m.pools.Put(dsn, p); replaced {
			go old.Close()
		}
		m.log.DebugContext(ctx, "tenant pool opened", slog.Int("pools", m.pools.Len()))
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pgxpool.Pool), nil
}

// InTx runs fn in a transaction on the request's pool. When the request is
// bound to a tenant, app.tenant_id is set for the duration of the
// transaction.
func (m *Manager) InTx(ctx context.Context, fn func(pgx.Tx) error) error {
	pool, err := m.Pool(ctx)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if id, ok := tenant.IDFromContext(ctx); ok {
			if _, err := tx.Exec(ctx, "SELECT set_config($1, $2, true)", TenantSetting, strconv.FormatInt(id, 10)); err != nil {
				return err
			}
		}
		return fn(tx)
	})
}

// Len returns the number of open pools.
func (m *Manager) Len() int {
	return m.pools.Len()
}

// Close closes every pool. Later calls to Pool fail with ErrClosed.
func (m *Manager) Close() {
	if m.closed.Swap(true) {
		return
	}
	m.pools.Clear()
}
