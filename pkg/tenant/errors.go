package tenant

import "errors"

var (
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrInvalidSlug       = errors.New("invalid tenant slug")
	ErrNoTenantInContext = errors.New("no tenant in context")
	ErrInactiveTenant    = errors.New("tenant is inactive")
	ErrResolutionFailed  = errors.New("tenant resolution failed")

	ErrInvalidStatusTransition = errors.New("invalid tenant status transition")
)
