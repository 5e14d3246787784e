package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// DatabaseExists reports whether a database named name exists on the server.
func DatabaseExists(ctx context.Context, conn *pgx.Conn, name string) (bool, error) {
	var exists bool
	err := conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name,
	).Scan(&exists)
	return exists, err
}

// EnsureDatabase creates database name unless it already exists. The check
// and the CREATE run under pg_advisory_lock(hashtext(name)) so concurrent
// callers, including other processes, serialize instead of racing. It
// reports whether this call created the database.
func EnsureDatabase(ctx context.Context, conn *pgx.Conn, name string) (bool, error) {
	if name == "" {
		return false, ErrEmptyDatabaseName
	}

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, name); err != nil {
		return false, errors.Join(ErrAdvisoryLock, err)
	}
	defer func() {
		// Runs even when ctx is cancelled; a session lock left behind would
		// block every later attempt on this connection.
		unlockCtx := context.WithoutCancel(ctx)
		if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock(hashtext($1))`, name); err != nil {
			_ = conn.Close(unlockCtx)
		}
	}()

	exists, err := DatabaseExists(ctx, conn, name)
	if err != nil {
		return false, errors.Join(ErrFailedToCreateDatabase, err)
	}
	if exists {
		return false, nil
	}

	// CREATE DATABASE cannot take bind parameters.
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		if IsDuplicateDatabaseError(err) {
			return false, nil
		}
		return false, errors.Join(ErrFailedToCreateDatabase, err)
	}

	return true, nil
}
