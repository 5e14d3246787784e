package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pillar/pkg/jwt"
)

// DefaultHeader carries an explicit tenant slug.
const DefaultHeader = "X-Tenant"

// RequestResolver decides which tenant, if any, a request belongs to.
// A nil tenant with a nil error means no match.
type RequestResolver interface {
	Resolve(ctx context.Context, r *http.Request, claims jwt.Claims) (*Tenant, error)
}

// Resolver resolves tenants from, in order: the tenant header, the host's
// subdomain, the tenant_slug claim and the user's primary membership.
// It never mutates anything and is safe to call repeatedly.
type Resolver struct {
	store  Store
	header string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithHeader overrides the header holding the tenant slug.
func WithHeader(name string) ResolverOption {
	return func(r *Resolver) {
		if name != "" {
			r.header = name
		}
	}
}

// NewResolver creates a Resolver reading from store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store, header: DefaultHeader}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve implements RequestResolver.
func (res *Resolver) Resolve(ctx context.Context, r *http.Request, claims jwt.Claims) (*Tenant, error) {
	candidate := HeaderSlug(r, res.header)
	if candidate == "" {
		candidate = HostSlug(r.Host)
	}

	if candidate != "" {
		t, err := res.bySlug(ctx, candidate)
		if err != nil || t != nil {
			return t, err
		}
	}

	if !claims.Authenticated() {
		return nil, nil
	}

	if slug := claims.String(jwt.ClaimTenantSlug); slug != "" {
		return res.bySlug(ctx, slug)
	}

	userID, err := uuid.Parse(claims.Subject())
	if err != nil {
		return nil, nil
	}

	t, err := res.store.GetPrimaryTenantForUser(ctx, userID)
	switch {
	case errors.Is(err, ErrTenantNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%w: primary tenant lookup: %w", ErrResolutionFailed, err)
	}
	return t, nil
}

func (res *Resolver) bySlug(ctx context.Context, slug string) (*Tenant, error) {
	slug = NormalizeSlug(slug)
	if slug == "" {
		return nil, nil
	}
	t, err := res.store.GetTenantBySlug(ctx, slug)
	switch {
	case errors.Is(err, ErrTenantNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%w: slug lookup: %w", ErrResolutionFailed, err)
	}
	return t, nil
}

// HeaderSlug returns the normalized slug from the tenant header.
func HeaderSlug(r *http.Request, header string) string {
	if header == "" {
		header = DefaultHeader
	}
	return NormalizeSlug(r.Header.Get(header))
}

// HostSlug returns the leftmost label of host when it is a genuine
// subdomain: at least three labels, not localhost, not an IP address.
func HostSlug(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.Trim(host, "[]"), ".")

	if strings.EqualFold(host, "localhost") || net.ParseIP(host) != nil {
		return ""
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 || labels[0] == "" {
		return ""
	}
	return NormalizeSlug(labels[0])
}
