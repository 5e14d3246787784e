package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/pillar/pkg/logger"
	"github.com/dmitrymomot/pillar/pkg/tenant"
)

// Role is a row of the tenant's roles table.
type Role struct {
	ID             int64
	Name           string
	NormalizedName string
}

// User is a row of the tenant's users table.
type User struct {
	ID              uuid.UUID
	Email           string
	NormalizedEmail string
	Name            string
	PasswordHash    string
}

// Seeder persists default data in a tenant database. Lookups return
// ErrNotFound when nothing matches.
type Seeder interface {
	ListRoles(ctx context.Context) ([]Role, error)
	// CreateRoles inserts all roles in one transaction.
	CreateRoles(ctx context.Context, roles []Role) error
	FindUserByEmail(ctx context.Context, normalizedEmail string) (*User, error)
	CreateUser(ctx context.Context, u User) (*User, error)
	// LinkUserRole adds the pair unless present and reports whether it
	// inserted a row.
	LinkUserRole(ctx context.Context, userID uuid.UUID, roleID int64) (bool, error)
}

// SeedResult summarizes what a seeding run changed.
type SeedResult struct {
	RolesCreated int
	UserCreated  bool
	RoleLinked   bool
	// TemporaryPassword is set only when the admin user was created by
	// this run.
	TemporaryPassword string
}

// NormalizeName is the comparison key of role names.
func NormalizeName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeEmail is the lookup key of user emails.
func NormalizeEmail(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// AdminEmail returns the tenant's contact email, or admin@{slug}.local.
func AdminEmail(t *tenant.Tenant) string {
	if email := strings.TrimSpace(t.ContactEmail); email != "" {
		if addr, err := mail.ParseAddress(email); err == nil {
			return addr.Address
		}
		return email
	}
	return "admin@" + t.Slug + ".local"
}

// Seed makes sure the default roles, the admin user and the admin role link
// exist. Every step checks before writing, so running it again changes
// nothing. A missing admin role after role seeding is logged and ends the
// run without error.
func Seed(ctx context.Context, s Seeder, t *tenant.Tenant, opts Options, log *slog.Logger) (SeedResult, error) {
	opts = opts.withDefaults()
	if log == nil {
		log = logger.Discard()
	}
	var res SeedResult

	existing, err := s.ListRoles(ctx)
	if err != nil {
		return res, fmt.Errorf("list roles: %w", err)
	}
	byName := make(map[string]Role, len(existing))
	for _, r := range existing {
		byName[NormalizeName(r.Name)] = r
	}

	var missing []Role
	for _, name := range opts.DefaultRoles {
		key := NormalizeName(name)
		if _, ok := byName[key]; ok || key == "" {
			continue
		}
		r := Role{Name: strings.TrimSpace(name), NormalizedName: key}
		missing = append(missing, r)
		byName[key] = r
	}
	if len(missing) > 0 {
		if err := s.CreateRoles(ctx, missing); err != nil {
			return res, fmt.Errorf("create roles: %w", err)
		}
		res.RolesCreated = len(missing)

		existing, err = s.ListRoles(ctx)
		if err != nil {
			return res, fmt.Errorf("list roles: %w", err)
		}
		clear(byName)
		for _, r := range existing {
			byName[NormalizeName(r.Name)] = r
		}
	}

	adminRole, ok := byName[NormalizeName(opts.AdminRole)]
	if !ok || adminRole.ID == 0 {
		log.WarnContext(ctx, "admin role not found, skipping admin user",
			slog.String("role", opts.AdminRole),
		)
		return res, nil
	}

	email := AdminEmail(t)
	user, err := s.FindUserByEmail(ctx, NormalizeEmail(email))
	switch {
	case errors.Is(err, ErrNotFound):
		password, err := GeneratePassword(opts.PasswordLength)
		if err != nil {
			return res, fmt.Errorf("generate password: %w", err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), opts.BcryptCost)
		if err != nil {
			return res, fmt.Errorf("hash password: %w", err)
		}
		user, err = s.CreateUser(ctx, User{
			Email:           email,
			NormalizedEmail: NormalizeEmail(email),
			Name:            adminName(t),
			PasswordHash:    string(hash),
		})
		if err != nil {
			return res, fmt.Errorf("create admin user: %w", err)
		}
		res.UserCreated = true
		res.TemporaryPassword = password

		// The password is not stored anywhere else; operators relay it from
		// this line.
		log.WarnContext(ctx, "tenant admin user created",
			slog.String("email", email),
			slog.String("temporary_password", password),
		)
	case err != nil:
		return res, fmt.Errorf("find admin user: %w", err)
	}

	linked, err := s.LinkUserRole(ctx, user.ID, adminRole.ID)
	if err != nil {
		return res, fmt.Errorf("link admin role: %w", err)
	}
	res.RoleLinked = linked

	return res, nil
}

func adminName(t *tenant.Tenant) string {
	if t.ContactName != "" {
		return t.ContactName
	}
	return t.Name + " Admin"
}
