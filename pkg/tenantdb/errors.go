package tenantdb

import "errors"

var (
	ErrNoConnectionString = errors.New("tenantdb: no connection string configured for request")
	ErrConnect            = errors.New("tenantdb: failed to open tenant pool")
	ErrClosed             = errors.New("tenantdb: manager is closed")
)
