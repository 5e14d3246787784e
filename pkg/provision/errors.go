package provision

import "errors"

var (
	ErrPrepareConnection         = errors.New("provision: connection preparation failed")
	ErrMissingConnectionTemplate = errors.New("provision: tenant connection template is not configured")
	ErrCreateDatabase            = errors.New("provision: database creation failed")
	ErrMigrate                   = errors.New("provision: schema migration failed")
	ErrSeed                      = errors.New("provision: seeding failed")
	ErrActivate                  = errors.New("provision: activation failed")
	ErrNilTenant                 = errors.New("provision: nil tenant")
	ErrNotFound                  = errors.New("provision: record not found")
)
