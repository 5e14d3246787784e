package tenant

import (
	"errors"

	"github.com/dmitrymomot/pillar/pkg/tenant"
)

var (
	ErrTenantNotFound    = tenant.ErrTenantNotFound
	ErrSlugTaken         = errors.New("slug already in use")
	ErrDatabaseNameTaken = errors.New("database name already in use")
	ErrSlugImmutable     = errors.New("slug cannot be changed once assigned")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidStatus     = errors.New("invalid tenant status")
)
