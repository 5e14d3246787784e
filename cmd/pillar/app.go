package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/pillar/migrations"
	"github.com/dmitrymomot/pillar/pkg/httpserver"
	"github.com/dmitrymomot/pillar/pkg/jwt"
	"github.com/dmitrymomot/pillar/pkg/logger"
	"github.com/dmitrymomot/pillar/pkg/pg"
	"github.com/dmitrymomot/pillar/pkg/provision"
	"github.com/dmitrymomot/pillar/pkg/redis"
	"github.com/dmitrymomot/pillar/pkg/requestid"
	"github.com/dmitrymomot/pillar/pkg/tenant"
	"github.com/dmitrymomot/pillar/pkg/tenantdb"
	"github.com/dmitrymomot/pillar/svc/activity"
	tenantsvc "github.com/dmitrymomot/pillar/svc/tenant"
)

// app holds every long-lived dependency of the binary.
type app struct {
	cfg Config
	log *slog.Logger

	pool     *pgxpool.Pool
	redis    *goredis.Client
	cache    *tenant.CachedStore
	tenantDB *tenantdb.Manager
	registry *prometheus.Registry

	store     tenantsvc.Store
	tenants   tenantsvc.Service
	resolver  *tenant.Resolver
	tokens    *jwt.Service
	activity  *activity.Log
	metrics   *tenant.Metrics
	readiness map[string]httpserver.Check
}

func newLogger(cfg Config) *slog.Logger {
	return logger.New(
		logger.WithEnvironment(cfg.Env, "pillar"),
		logger.WithContextExtractors(tenant.LoggerExtractor(), requestid.LoggerExtractor()),
	)
}

// newApp connects to the control plane, and to redis when configured, then
// assembles the services. Call close when done.
func newApp(ctx context.Context, cfg Config, log *slog.Logger) (_ *app, err error) {
	a := &app{
		cfg:       cfg,
		log:       log,
		registry:  prometheus.NewRegistry(),
		readiness: make(map[string]httpserver.Check),
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.pool, err = pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	a.readiness["postgres"] = pg.Healthcheck(a.pool)

	cacheOpts := []tenant.CacheOption{
		tenant.WithCacheTTL(cfg.Tenant.CacheTTL),
		tenant.WithCacheMaxEntries(cfg.Tenant.CacheMaxEntries),
		tenant.WithCacheLogger(log),
	}
	if cfg.Redis.Enabled() {
		a.redis, err = redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.readiness["redis"] = redis.Healthcheck(a.redis)
		cacheOpts = append(cacheOpts, tenant.WithRedis(a.redis))
	}

	a.store = tenantsvc.NewPostgresStore(a.pool)
	a.cache, err = tenant.NewCachedStore(a.store, cacheOpts...)
	if err != nil {
		return nil, err
	}
	a.resolver = tenant.NewResolver(a.cache, tenant.WithHeader(cfg.Tenant.Header))
	a.metrics = tenant.NewMetrics(a.registry)

	prov := provision.NewService(cfg.Provision,
		provision.NewPostgresInfra(cfg.Provision.AdminDatabase, cfg.Postgres, migrations.Tenant(), log),
		a.store,
		provision.WithLogger(log),
		provision.WithMetrics(provision.NewMetrics(a.registry)),
	)
	a.tenants = tenantsvc.NewService(a.store, prov,
		tenantsvc.WithInvalidator(a.cache),
		tenantsvc.WithLogger(log),
	)

	a.tenantDB = tenantdb.New(cfg.Postgres,
		tenant.NewConnectionResolver(cfg.Tenant.defaultConnection(cfg.Postgres), log),
		tenantdb.WithMaxPools(cfg.Tenant.MaxPools),
		tenantdb.WithLogger(log),
	)
	a.activity = activity.New(a.tenantDB)

	if cfg.JWTSecret != "" {
		a.tokens, err = jwt.NewFromString(cfg.JWTSecret)
		if err != nil {
			return nil, err
		}
	} else {
		log.WarnContext(ctx, "JWT_SECRET is empty, admin API is disabled and tokens are ignored")
	}

	return a, nil
}

func (a *app) close() {
	if a.tenantDB != nil {
		a.tenantDB.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			a.log.Error("failed to close redis", logger.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
