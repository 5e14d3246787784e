package provision_test

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pillar/pkg/provision"
	"github.com/dmitrymomot/pillar/pkg/tenant"
)

func TestDatabaseName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, slug, want string
	}{
		{"pillar_", "newco", "pillar_newco"},
		{"pillar_", "New-Co", "pillar_new_co"},
		{"pillar_", "acme.corp!", "pillar_acmecorp"},
		{"pillar_", "--acme--", "pillar_acme"},
		{"Tenant_", "acme", "tenant_acme"},
	}
	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, provision.DatabaseName(tt.prefix, tt.slug))
		})
	}

	t.Run("random fallback", func(t *testing.T) {
		t.Parallel()
		a := provision.DatabaseName("pillar_", "!!!")
		b := provision.DatabaseName("pillar_", "")
		assert.True(t, strings.HasPrefix(a, "pillar_"))
		assert.Len(t, a, len("pillar_")+8)
		assert.NotEqual(t, a, b)
	})

	t.Run("long slugs stay within the identifier limit", func(t *testing.T) {
		t.Parallel()
		base := strings.Repeat("a", 56)
		north, err := tenant.ValidateSlug(base + "-north")
		require.NoError(t, err)
		south, err := tenant.ValidateSlug(base + "-south")
		require.NoError(t, err)

		a := provision.DatabaseName("pillar_", north)
		b := provision.DatabaseName("pillar_", south)
		assert.LessOrEqual(t, len(a), provision.MaxDatabaseNameLength)
		assert.LessOrEqual(t, len(b), provision.MaxDatabaseNameLength)
		assert.True(t, strings.HasPrefix(a, "pillar_aaaa"))
		assert.NotEqual(t, a, b)
		assert.Equal(t, a, provision.DatabaseName("pillar_", north), "derivation must be stable")
	})

	t.Run("names at the limit are kept", func(t *testing.T) {
		t.Parallel()
		slug := strings.Repeat("b", provision.MaxDatabaseNameLength-len("pillar_"))
		assert.Equal(t, "pillar_"+slug, provision.DatabaseName("pillar_", slug))
	})
}

func TestExpandTemplate(t *testing.T) {
	t.Parallel()

	got := provision.ExpandTemplate("postgres://u:p@db/{database}?application_name={Slug}", "acme", "pillar_acme")
	assert.Equal(t, "postgres://u:p@db/pillar_acme?application_name=acme", got)

	got = provision.ExpandTemplate("postgres://u:p@db/{DATABASE}", "acme", "pillar_acme")
	assert.Equal(t, "postgres://u:p@db/pillar_acme", got)
}

func TestPrepareConnection(t *testing.T) {
	t.Parallel()

	opts := provision.Options{ConnectionTemplate: "postgres://u:p@db:5432/{database}"}

	t.Run("derives missing values", func(t *testing.T) {
		t.Parallel()
		tn := &tenant.Tenant{Slug: "newco"}
		require.NoError(t, provision.PrepareConnection(tn, opts))
		assert.Equal(t, "pillar_newco", tn.DatabaseName)
		assert.Equal(t, "postgres://u:p@db:5432/pillar_newco", tn.ConnectionString)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		t.Parallel()
		tn := &tenant.Tenant{Slug: "newco", DatabaseName: "custom", ConnectionString: "postgres://elsewhere/custom"}
		require.NoError(t, provision.PrepareConnection(tn, provision.Options{}))
		assert.Equal(t, "custom", tn.DatabaseName)
		assert.Equal(t, "postgres://elsewhere/custom", tn.ConnectionString)
	})

	t.Run("template required without explicit dsn", func(t *testing.T) {
		t.Parallel()
		tn := &tenant.Tenant{Slug: "newco"}
		err := provision.PrepareConnection(tn, provision.Options{})
		require.ErrorIs(t, err, provision.ErrMissingConnectionTemplate)
	})

	t.Run("nil tenant", func(t *testing.T) {
		t.Parallel()
		require.ErrorIs(t, provision.PrepareConnection(nil, opts), provision.ErrNilTenant)
	})
}

func TestGeneratePassword(t *testing.T) {
	t.Parallel()

	for _, length := range []int{0, 4, 8, 12, 32} {
		for range 50 {
			pw, err := provision.GeneratePassword(length)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, len(pw), provision.MinPasswordLength)
			if length >= provision.MinPasswordLength {
				assert.Len(t, pw, length)
			}
			assert.True(t, strings.ContainsFunc(pw, unicode.IsUpper), pw)
			assert.True(t, strings.ContainsFunc(pw, unicode.IsLower), pw)
			assert.True(t, strings.ContainsFunc(pw, unicode.IsDigit), pw)
			assert.True(t, strings.ContainsFunc(pw, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			}), pw)
		}
	}

	a, _ := provision.GeneratePassword(12)
	b, _ := provision.GeneratePassword(12)
	assert.NotEqual(t, a, b)
}
