package migrations_test

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pillar/migrations"
)

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	for name, fsys := range map[string]fs.FS{"control": migrations.Control(), "tenant": migrations.Tenant()} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			files, err := fs.Glob(fsys, "*.sql")
			require.NoError(t, err)
			require.NotEmpty(t, files)

			for _, f := range files {
				data, err := fs.ReadFile(fsys, f)
				require.NoError(t, err)
				assert.Contains(t, string(data), "-- +goose Up", f)
				assert.Contains(t, string(data), "-- +goose Down", f)
			}
		})
	}
}
