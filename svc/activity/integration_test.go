//go:build integration

package activity_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dmitrymomot/pillar/migrations"
	"github.com/dmitrymomot/pillar/pkg/pg"
	"github.com/dmitrymomot/pillar/pkg/tenant"
	"github.com/dmitrymomot/pillar/pkg/tenantdb"
	"github.com/dmitrymomot/pillar/svc/activity"
)

func TestRowLevelSecurity(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("tenant"),
		postgres.WithUsername("owner"),
		postgres.WithPassword("owner"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	ownerDSN, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	owner, err := pg.Connect(ctx, pg.Config{ConnectionString: ownerDSN, MaxOpenConns: 2, RetryAttempts: 5})
	require.NoError(t, err)
	defer owner.Close()

	_, err = pg.Migrate(ctx, owner, migrations.Tenant(), nil)
	require.NoError(t, err)

	// Superusers bypass row-level security, so the app connects as a plain role.
	_, err = owner.Exec(ctx, `
		CREATE ROLE app LOGIN PASSWORD 'app';
		GRANT SELECT, INSERT ON activity_log TO app;
		GRANT USAGE, SELECT ON ALL SEQUENCES IN SCHEMA public TO app;`)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	appDSN := fmt.Sprintf("postgres://app:app@%s:%s/tenant?sslmode=disable", host, port.Port())

	mgr := tenantdb.New(pg.Config{MaxOpenConns: 2, RetryAttempts: 3}, tenant.NewConnectionResolver(appDSN, nil))
	defer mgr.Close()
	log := activity.New(mgr)

	bound := func(id int64) context.Context {
		tc := tenant.NewContext()
		tc.Apply(&tenant.Tenant{ID: id, Slug: fmt.Sprintf("t%d", id), Status: tenant.StatusActive})
		return tenant.WithContext(ctx, tc)
	}

	actor := uuid.New()
	e, err := log.Record(bound(1), &actor, "invoice.created", json.RawMessage(`{"amount":10}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.TenantID)
	assert.Equal(t, &actor, e.ActorID)
	assert.JSONEq(t, `{"amount":10}`, string(e.Payload))

	_, err = log.Record(bound(2), nil, "login", nil)
	require.NoError(t, err)

	first, err := log.List(bound(1), 0)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "invoice.created", first[0].Action)

	second, err := log.List(bound(2), 0)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "login", second[0].Action)
	assert.Nil(t, second[0].Payload)

	assert.Equal(t, 1, mgr.Len())
}
