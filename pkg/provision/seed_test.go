package provision_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/pillar/pkg/logger"
	"github.com/dmitrymomot/pillar/pkg/provision"
	"github.com/dmitrymomot/pillar/pkg/tenant"
)

func TestSeed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newMemDB()
	tn := &tenant.Tenant{Slug: "newco", Name: "NewCo"}
	opts := provision.Options{BcryptCost: bcrypt.MinCost}

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatText))

	res, err := provision.Seed(ctx, db, tn, opts, log)
	require.NoError(t, err)
	assert.Equal(t, 3, res.RolesCreated)
	assert.True(t, res.UserCreated)
	assert.True(t, res.RoleLinked)
	require.NotEmpty(t, res.TemporaryPassword)

	require.Len(t, db.roles, 3)
	assert.Equal(t, "ADMIN", db.roles[0].NormalizedName)

	user, ok := db.users["ADMIN@NEWCO.LOCAL"]
	require.True(t, ok)
	assert.Equal(t, "admin@newco.local", user.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(res.TemporaryPassword)))
	assert.Contains(t, buf.String(), res.TemporaryPassword)

	// second run changes nothing
	buf.Reset()
	res, err = provision.Seed(ctx, db, tn, opts, log)
	require.NoError(t, err)
	assert.Equal(t, provision.SeedResult{}, res)
	assert.Len(t, db.roles, 3)
	assert.Len(t, db.users, 1)
	assert.Len(t, db.links, 1)
	assert.NotContains(t, buf.String(), "temporary_password")
}

func TestSeedExistingRolesCaseInsensitive(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	require.NoError(t, db.CreateRoles(context.Background(), []provision.Role{{Name: "admin", NormalizedName: "ADMIN"}}))

	res, err := provision.Seed(context.Background(), db, &tenant.Tenant{Slug: "acme"}, provision.Options{BcryptCost: bcrypt.MinCost}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RolesCreated)
	assert.Len(t, db.roles, 3)
}

func TestSeedUsesContactEmail(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	tn := &tenant.Tenant{Slug: "acme", ContactEmail: " Jane Doe <Jane@Acme.io> ", ContactName: "Jane Doe"}

	_, err := provision.Seed(context.Background(), db, tn, provision.Options{BcryptCost: bcrypt.MinCost}, nil)
	require.NoError(t, err)

	user, ok := db.users["JANE@ACME.IO"]
	require.True(t, ok)
	assert.Equal(t, "Jane@Acme.io", user.Email)
	assert.Equal(t, "Jane Doe", user.Name)
}

func TestSeedMissingAdminRole(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	opts := provision.Options{DefaultRoles: []string{"Manager"}, AdminRole: "Owner"}

	res, err := provision.Seed(context.Background(), db, &tenant.Tenant{Slug: "acme"}, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RolesCreated)
	assert.False(t, res.UserCreated)
	assert.Empty(t, db.users)
}

func TestSeedStoreError(t *testing.T) {
	t.Parallel()

	db := newMemDB()
	db.createErr = errors.New("disk full")

	_, err := provision.Seed(context.Background(), db, &tenant.Tenant{Slug: "acme"}, provision.Options{}, nil)
	require.Error(t, err)
	assert.Empty(t, db.users)
}

func TestAdminEmail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "admin@acme.local", provision.AdminEmail(&tenant.Tenant{Slug: "acme"}))
	assert.Equal(t, "ops@acme.io", provision.AdminEmail(&tenant.Tenant{Slug: "acme", ContactEmail: "ops@acme.io"}))
}
