// Package migrations embeds the goose SQL migrations of the control-plane
// database and of every tenant database.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed control/*.sql tenant/*.sql
var files embed.FS

// Control returns the control-plane migrations: tenants, brandings and
// memberships.
func Control() fs.FS {
	return sub("control")
}

// Tenant returns the migrations applied to each tenant database.
func Tenant() fs.FS {
	return sub("tenant")
}

func sub(dir string) fs.FS {
	f, err := fs.Sub(files, dir)
	if err != nil {
		panic("migrations: " + err.Error())
	}
	return f
}
