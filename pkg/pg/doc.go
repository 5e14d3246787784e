// Package pg holds the PostgreSQL plumbing shared by the control plane and
// tenant databases: pool construction with retry, goose migrations from an
// fs.FS, idempotent database creation, and pgconn error classification.
//
// # Database creation
//
// EnsureDatabase runs on a connection to the administrative database
// (usually "postgres") and serializes concurrent callers with a session-level
// advisory lock keyed by the target database name:
//
//	conn, err := pg.ConnectAdmin(ctx, tenantDSN, "postgres")
//	if err != nil {
//		return err
//	}
//	defer conn.Close(ctx)
//
//	created, err := pg.EnsureDatabase(ctx, conn, "pillar_acme")
//
// A duplicate_database error from CREATE DATABASE is reported as success, so
// two processes provisioning the same tenant never fail on each other.
//
// # Migrations
//
// Migrate uses a goose Provider instead of goose's package-level state, which
// lets several tenant databases migrate in parallel from the same process.
package pg
