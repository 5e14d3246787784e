package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a tenant.
type Status string

const (
	StatusProvisioning Status = "provisioning"
	StatusActive       Status = "active"
	StatusSuspended    Status = "suspended"
	StatusArchived     Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusProvisioning, StatusActive, StatusSuspended, StatusArchived:
		return true
	}
	return false
}

// Tenant is a customer organization with its own database.
type Tenant struct {
	ID               int64           `json:"id"`
	Slug             string          `json:"slug"`
	Name             string          `json:"name"`
	Status           Status          `json:"status"`
	DatabaseName     string          `json:"database_name,omitempty"`
	ConnectionString string          `json:"-"`
	ContactEmail     string          `json:"contact_email,omitempty"`
	ContactName      string          `json:"contact_name,omitempty"`
	ContactPhone     string          `json:"contact_phone,omitempty"`
	Configuration    json.RawMessage `json:"configuration,omitempty"`
	IsDemo           bool            `json:"is_demo"`
	BrandingID       *int64          `json:"branding_id,omitempty"`
	Branding         *Branding       `json:"branding,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	ActivatedAt      *time.Time      `json:"activated_at,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsActive reports whether the tenant may serve requests.
func (t *Tenant) IsActive() bool {
	return t != nil && t.Status == StatusActive
}

// CheckActive returns ErrInactiveTenant, annotated with the current status,
// unless the tenant is active.
func (t *Tenant) CheckActive() error {
	switch {
	case t == nil:
		return ErrTenantNotFound
	case t.Status != StatusActive:
		return fmt.Errorf("%w: %s", ErrInactiveTenant, t.Status)
	}
	return nil
}

// Clone returns a deep copy, so cached values are never mutated through a
// request's copy.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Configuration != nil {
		cp.Configuration = append(json.RawMessage(nil), t.Configuration...)
	}
	if t.BrandingID != nil {
		id := *t.BrandingID
		cp.BrandingID = &id
	}
	if t.Branding != nil {
		b := *t.Branding
		cp.Branding = &b
	}
	if t.ActivatedAt != nil {
		at := *t.ActivatedAt
		cp.ActivatedAt = &at
	}
	return &cp
}

// Branding holds the visual identity shown to a tenant's users.
type Branding struct {
	ID             int64  `json:"id"`
	PrimaryColor   string `json:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty"`
	AccentColor    string `json:"accent_color,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
	FaviconURL     string `json:"favicon_url,omitempty"`
	BackgroundURL  string `json:"background_url,omitempty"`
	CustomCSS      string `json:"custom_css,omitempty"`
}

// Membership grants a user access to a tenant. Revoked memberships are kept.
type Membership struct {
	TenantID   int64      `json:"tenant_id"`
	UserID     uuid.UUID  `json:"user_id"`
	AssignedBy *uuid.UUID `json:"assigned_by,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the membership has not been revoked.
func (m Membership) Active() bool {
	return m.RevokedAt == nil
}

// Store is the read side of the tenant catalog used during resolution.
// Both methods return ErrTenantNotFound when nothing matches.
type Store interface {
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
	// GetPrimaryTenantForUser returns the tenant of the user's earliest
	// active membership.
	GetPrimaryTenantForUser(ctx context.Context, userID uuid.UUID) (*Tenant, error)
}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// NormalizeSlug trims and lowercases a slug.
func NormalizeSlug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateSlug normalizes s and checks it is usable as a host label.
func ValidateSlug(s string) (string, error) {
	slug := NormalizeSlug(s)
	if !slugPattern.MatchString(slug) || strings.HasSuffix(slug, "-") {
		return "", ErrInvalidSlug
	}
	return slug, nil
}
