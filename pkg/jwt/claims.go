package jwt

import (
	"fmt"
	"strconv"
	"time"
)

// Well-known claim names.
const (
	ClaimSubject    = "sub"
	ClaimExpiresAt  = "exp"
	ClaimIssuedAt   = "iat"
	ClaimIssuer     = "iss"
	ClaimTenantID   = "tenant_id"
	ClaimTenantSlug = "tenant_slug"
)

// Claims is the decoded payload of a token. It is a map so that handlers can
// append claims during the request without knowing the full shape upfront.
type Claims map[string]any

// NewClaims returns claims for the given subject that expire after ttl.
// A zero ttl produces a token without expiry.
func NewClaims(subject string, ttl time.Duration) Claims {
	now := time.Now()
	c := Claims{
		ClaimSubject:  subject,
		ClaimIssuedAt: now.Unix(),
	}
	if ttl > 0 {
		c[ClaimExpiresAt] = now.Add(ttl).Unix()
	}
	return c
}

// Subject returns the "sub" claim or an empty string.
func (c Claims) Subject() string {
	return c.String(ClaimSubject)
}

// Authenticated reports whether the claims identify a caller.
func (c Claims) Authenticated() bool {
	return c.Subject() != ""
}

// Has reports whether the claim is present and non-empty.
func (c Claims) Has(key string) bool {
	v, ok := c[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// String returns the claim formatted as a string. Numbers decoded from JSON
// come back as float64 and are printed without exponent.
func (c Claims) String(key string) string {
	switch v := c[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

// AddIfAbsent sets the claim only when it is not already present and reports
// whether it was added. Existing values are never overwritten.
func (c Claims) AddIfAbsent(key string, value any) bool {
	if c == nil || c.Has(key) {
		return false
	}
	c[key] = value
	return true
}
