package tenantdb_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pillar/pkg/pg"
	"github.com/dmitrymomot/pillar/pkg/tenant"
	"github.com/dmitrymomot/pillar/pkg/tenantdb"
)

// lazyConnector builds pools without dialing; pgxpool connects on first use.
func lazyConnector(calls *atomic.Int64) tenantdb.Connector {
	return func(ctx context.Context, cfg pg.Config) (*pgxpool.Pool, error) {
		calls.Add(1)
		return pgxpool.New(ctx, cfg.ConnectionString)
	}
}

func requestFor(dsn string) context.Context {
	tc := tenant.NewContext()
	tc.Apply(&tenant.Tenant{ID: 1, Slug: "acme", ConnectionString: dsn})
	return tenant.WithContext(context.Background(), tc)
}

func TestManagerPool(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	m := tenantdb.New(pg.Config{}, tenant.NewConnectionResolver("postgres://u@127.0.0.1:1/control", nil),
		tenantdb.WithConnector(lazyConnector(&calls)),
	)
	t.Cleanup(m.Close)

	acme := requestFor("postgres://u@127.0.0.1:1/pillar_acme")

	p1, err := m.Pool(acme)
	require.NoError(t, err)
	p2, err := m.Pool(acme)
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Equal(t, int64(1), calls.Load())

	def, err := m.Pool(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, p1, def)
	assert.Equal(t, 2, m.Len())
}

func TestManagerConcurrentOpen(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	m := tenantdb.New(pg.Config{}, tenant.NewConnectionResolver("", nil),
		tenantdb.WithConnector(lazyConnector(&calls)),
	)
	t.Cleanup(m.Close)

	ctx := requestFor("postgres://u@127.0.0.1:1/pillar_acme")

	var wg sync.WaitGroup
	pools := make([]*pgxpool.Pool, 16)
	for i := range pools {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := m.Pool(ctx)
			assert.NoError(t, err)
			pools[i] = p
		}(i)
	}
	wg.Wait()

	for _, p := range pools {
		assert.Same(t, pools[0], p)
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestManagerEviction(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	m := tenantdb.New(pg.Config{}, tenant.NewConnectionResolver("", nil),
		tenantdb.WithConnector(lazyConnector(&calls)),
		tenantdb.WithMaxPools(1),
	)
	t.Cleanup(m.Close)

	_, err := m.Pool(requestFor("postgres://u@127.0.0.1:1/a"))
	require.NoError(t, err)
	_, err = m.Pool(requestFor("postgres://u@127.0.0.1:1/b"))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	_, err = m.Pool(requestFor("postgres://u@127.0.0.1:1/a"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestManagerErrors(t *testing.T) {
	t.Parallel()

	t.Run("no connection string", func(t *testing.T) {
		t.Parallel()
		m := tenantdb.New(pg.Config{}, tenant.NewConnectionResolver("", nil))
		_, err := m.Pool(context.Background())
		require.ErrorIs(t, err, tenantdb.ErrNoConnectionString)

		err = m.InTx(context.Background(), nil)
		require.ErrorIs(t, err, tenantdb.ErrNoConnectionString)
	})

	t.Run("connect failure", func(t *testing.T) {
		t.Parallel()
		m := tenantdb.New(pg.Config{}, tenant.NewConnectionResolver("postgres://x", nil),
			tenantdb.WithConnector(func(context.Context, pg.Config) (*pgxpool.Pool, error) {
				return nil, errors.New("refused")
			}),
		)
		_, err := m.Pool(context.Background())
		require.ErrorIs(t, err, tenantdb.ErrConnect)
		assert.Equal(t, 0, m.Len())
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int64
		m := tenantdb.New(pg.Config{}, tenant.NewConnectionResolver("postgres://u@127.0.0.1:1/a", nil),
			tenantdb.WithConnector(lazyConnector(&calls)),
		)
		_, err := m.Pool(context.Background())
		require.NoError(t, err)

		m.Close()
		m.Close()
		assert.Equal(t, 0, m.Len())

		_, err = m.Pool(context.Background())
		require.ErrorIs(t, err, tenantdb.ErrClosed)
	})
}
