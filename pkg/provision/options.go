package provision

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultTimeout bounds one provisioning run.
const DefaultTimeout = 5 * time.Minute

// Options control how tenant databases are named, reached and seeded.
type Options struct {
	// AdminDatabase is the maintenance database used to issue CREATE DATABASE.
	AdminDatabase string `env:"TENANT_ADMIN_DATABASE" envDefault:"postgres"`
	// DatabasePrefix is prepended to the sanitized slug.
	DatabasePrefix string `env:"TENANT_DATABASE_PREFIX" envDefault:"pillar_"`
	// ConnectionTemplate builds a tenant DSN from {slug} and {database}, e.g.
	// "postgres://app:secret@db:5432/{database}?sslmode=disable".
	ConnectionTemplate string `env:"TENANT_CONNECTION_TEMPLATE"`
	// AutoActivate marks the tenant active once seeding succeeds.
	AutoActivate bool `env:"TENANT_AUTO_ACTIVATE" envDefault:"true"`

	AdminRole      string   `env:"TENANT_ADMIN_ROLE" envDefault:"Admin"`
	DefaultRoles   []string `env:"TENANT_DEFAULT_ROLES" envDefault:"Admin,Manager,Employee" envSeparator:","`
	PasswordLength int      `env:"TENANT_ADMIN_PASSWORD_LENGTH" envDefault:"12"`
	BcryptCost     int      `env:"TENANT_BCRYPT_COST" envDefault:"10"`

	// Timeout bounds a run. Runs are shared between concurrent callers and
	// outlive any single caller's context.
	Timeout time.Duration `env:"TENANT_PROVISION_TIMEOUT" envDefault:"5m"`
}

// DefaultRoles are seeded into every tenant database.
var DefaultRoles = []string{"Admin", "Manager", "Employee"}

func (o Options) withDefaults() Options {
	if o.AdminDatabase == "" {
		o.AdminDatabase = "postgres"
	}
	if o.DatabasePrefix == "" {
		o.DatabasePrefix = "pillar_"
	}
	if o.AdminRole == "" {
		o.AdminRole = "Admin"
	}
	if len(o.DefaultRoles) == 0 {
		o.DefaultRoles = DefaultRoles
	}
	if o.PasswordLength == 0 {
		o.PasswordLength = DefaultPasswordLength
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.BcryptCost < bcrypt.MinCost || o.BcryptCost > bcrypt.MaxCost {
		o.BcryptCost = bcrypt.DefaultCost
	}
	return o
}
