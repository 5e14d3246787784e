//go:build integration

package pg_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/pillar/pkg/pg"
	"github.com/dmitrymomot/pillar/pkg/provision"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("pillar"),
		postgres.WithUsername("pillar"),
		postgres.WithPassword("secret"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func adminConn(t *testing.T, dsn string) *pgx.Conn {
	t.Helper()
	conn, err := pg.ConnectAdmin(context.Background(), dsn, "postgres")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(context.Background()) })
	return conn
}

func advisoryLocks(t *testing.T, conn *pgx.Conn) int {
	t.Helper()
	var n int
	err := conn.QueryRow(context.Background(),
		`SELECT count(*) FROM pg_locks WHERE locktype = 'advisory' AND granted`).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestEnsureDatabaseIntegration(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()
	observer := adminConn(t, dsn)

	t.Run("concurrent callers create once", func(t *testing.T) {
		const callers = 8
		var created atomic.Int32

		g, gctx := errgroup.WithContext(ctx)
		for range callers {
			g.Go(func() error {
				conn, err := pg.ConnectAdmin(gctx, dsn, "postgres")
				if err != nil {
					return err
				}
				defer conn.Close(context.Background())

				ok, err := pg.EnsureDatabase(gctx, conn, "pillar_race")
				if ok {
					created.Add(1)
				}
				return err
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int32(1), created.Load())

		exists, err := pg.DatabaseExists(ctx, observer, "pillar_race")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Zero(t, advisoryLocks(t, observer))
	})

	t.Run("existing database is not recreated", func(t *testing.T) {
		conn := adminConn(t, dsn)
		created, err := pg.EnsureDatabase(ctx, conn, "pillar_race")
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("duplicate create is classified", func(t *testing.T) {
		conn := adminConn(t, dsn)
		_, err := conn.Exec(ctx, `CREATE DATABASE `+pgx.Identifier{"pillar_race"}.Sanitize())
		require.Error(t, err)
		assert.True(t, pg.IsDuplicateDatabaseError(err))
	})

	t.Run("cancelled waiter leaves no lock behind", func(t *testing.T) {
		const name = "pillar_waiter"
		holder := adminConn(t, dsn)
		_, err := holder.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, name)
		require.NoError(t, err)

		waiter, err := pg.ConnectAdmin(ctx, dsn, "postgres")
		require.NoError(t, err)
		waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		_, err = pg.EnsureDatabase(waitCtx, waiter, name)
		cancel()
		require.ErrorIs(t, err, pg.ErrAdvisoryLock)
		_ = waiter.Close(ctx)

		_, err = holder.Exec(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, name)
		require.NoError(t, err)

		retryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		created, err := pg.EnsureDatabase(retryCtx, adminConn(t, dsn), name)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Zero(t, advisoryLocks(t, observer))
	})

	t.Run("long slugs get distinct databases", func(t *testing.T) {
		base := strings.Repeat("a", 56)
		conn := adminConn(t, dsn)
		for _, slug := range []string{base + "-north", base + "-south"} {
			name := provision.DatabaseName("pillar_", slug)
			created, err := pg.EnsureDatabase(ctx, conn, name)
			require.NoError(t, err)
			assert.True(t, created, name)
		}
	})
}
