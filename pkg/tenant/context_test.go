package tenant_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pillar/pkg/logger"
	"github.com/dmitrymomot/pillar/pkg/tenant"
)

func TestContextApplyReset(t *testing.T) {
	t.Parallel()

	tc := tenant.NewContext()
	assert.False(t, tc.IsResolved())
	assert.Equal(t, tenant.StatusProvisioning, tc.Status)

	src := newTenant(7, "acme")
	src.IsDemo = true
	src.ConnectionString = "postgres://acme"
	src.Branding = &tenant.Branding{LogoURL: "https://cdn/logo.png"}

	tc.Apply(src)
	require.True(t, tc.IsResolved())
	assert.Equal(t, int64(7), tc.ID)
	assert.Equal(t, "acme", tc.Slug)
	assert.Equal(t, "acme inc", tc.Name)
	assert.Equal(t, tenant.StatusActive, tc.Status)
	assert.True(t, tc.IsDemo)
	assert.Equal(t, "postgres://acme", tc.ConnectionString)
	assert.NotNil(t, tc.Branding)

	tc.Reset()
	assert.False(t, tc.IsResolved())
	assert.Equal(t, tenant.Context{Status: tenant.StatusProvisioning}, *tc)

	tc.Apply(src)
	tc.Apply(nil)
	assert.False(t, tc.IsResolved())
}

func TestContextIsolation(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			tc := tenant.NewContext()
			ctx := tenant.WithContext(context.Background(), tc)
			tc.Apply(newTenant(id, "t"))

			got, ok := tenant.IDFromContext(ctx)
			assert.True(t, ok)
			assert.Equal(t, id, got)
		}(i)
	}
	wg.Wait()
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	_, ok := tenant.FromContext(context.Background())
	assert.False(t, ok)

	ctx := tenant.WithContext(context.Background(), tenant.NewContext())
	tc, ok := tenant.FromContext(ctx)
	require.True(t, ok)
	assert.False(t, tc.IsResolved())

	_, ok = tenant.IDFromContext(ctx)
	assert.False(t, ok)
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithContextExtractors(tenant.LoggerExtractor()),
	)

	tc := tenant.NewContext()
	ctx := tenant.WithContext(context.Background(), tc)

	log.InfoContext(ctx, "before")
	assert.NotContains(t, buf.String(), "tenant_id")

	tc.Apply(newTenant(42, "acme"))
	log.InfoContext(ctx, "after")
	assert.Contains(t, buf.String(), `"tenant_id":42`)

}

func TestConnectionResolver(t *testing.T) {
	t.Parallel()

	cr := tenant.NewConnectionResolver("postgres://default", logger.Discard())

	t.Run("no context", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "postgres://default", cr.ConnectionString(context.Background()))
	})

	t.Run("unresolved", func(t *testing.T) {
		t.Parallel()
		ctx := tenant.WithContext(context.Background(), tenant.NewContext())
		assert.Equal(t, "postgres://default", cr.ConnectionString(ctx))
	})

	t.Run("resolved with explicit connection", func(t *testing.T) {
		t.Parallel()
		tc := tenant.NewContext()
		src := newTenant(1, "acme")
		src.ConnectionString = "postgres://acme"
		tc.Apply(src)
		ctx := tenant.WithContext(context.Background(), tc)
		assert.Equal(t, "postgres://acme", cr.ConnectionString(ctx))
	})

	t.Run("resolved without connection", func(t *testing.T) {
		t.Parallel()
		tc := tenant.NewContext()
		tc.Apply(newTenant(1, "acme"))
		ctx := tenant.WithContext(context.Background(), tc)
		assert.Equal(t, "postgres://default", cr.ConnectionString(ctx))
	})

	t.Run("empty default", func(t *testing.T) {
		t.Parallel()
		empty := tenant.NewConnectionResolver("", nil)
		assert.Empty(t, empty.ConnectionString(context.Background()))
	})
}
