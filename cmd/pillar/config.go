package main

import (
	"time"

	"github.com/dmitrymomot/pillar/pkg/config"
	"github.com/dmitrymomot/pillar/pkg/httpserver"
	"github.com/dmitrymomot/pillar/pkg/pg"
	"github.com/dmitrymomot/pillar/pkg/provision"
	"github.com/dmitrymomot/pillar/pkg/redis"
	"github.com/dmitrymomot/pillar/pkg/tenant"
)

// Config is the full environment of the pillar binary.
type Config struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	JWTSecret string `env:"JWT_SECRET"`
	// AdminClaim must be present in a token to reach the admin API.
	AdminClaim string `env:"ADMIN_CLAIM" envDefault:"platform_admin"`

	Postgres  pg.Config
	Redis     redis.Config
	HTTP      httpserver.Config
	Provision provision.Options
	Tenant    TenantConfig
}

// TenantConfig tunes resolution and tenant database access.
type TenantConfig struct {
	Header string `env:"TENANT_HEADER" envDefault:"X-Tenant"`
	// DefaultConnection is used when a request has no tenant or the tenant
	// has no connection string. Empty falls back to DATABASE_URL.
	DefaultConnection string        `env:"TENANT_DEFAULT_CONNECTION"`
	PublicPaths       []string      `env:"TENANT_PUBLIC_PATHS" envSeparator:","`
	RequireActive     bool          `env:"TENANT_REQUIRE_ACTIVE" envDefault:"true"`
	CacheTTL          time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
	CacheMaxEntries   int64         `env:"TENANT_CACHE_MAX_ENTRIES" envDefault:"10000"`
	MaxPools          int           `env:"TENANT_MAX_POOLS" envDefault:"64"`
}

func (c TenantConfig) defaultConnection(pgCfg pg.Config) string {
	if c.DefaultConnection != "" {
		return c.DefaultConnection
	}
	return pgCfg.ConnectionString
}

func (c TenantConfig) publicPaths() []string {
	if len(c.PublicPaths) == 0 {
		return tenant.DefaultPublicPaths
	}
	return c.PublicPaths
}

func loadConfig() (Config, error) {
	var cfg Config
	err := config.Load(&cfg)
	return cfg, err
}
