package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTenantFile(t *testing.T) {
	t.Parallel()

	src := `
tenants:
  - slug: acme
    name: Acme Corp
    contact_email: owner@acme.test
    is_demo: true
    configuration:
      locale: en
      seats: 5
    branding:
      primary_color: "#0044ff"
  - name: Globex
`
	fixtures, err := readTenantFile(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, fixtures, 2)

	in, err := fixtures[0].input(true)
	require.NoError(t, err)
	assert.Equal(t, "acme", in.Slug)
	assert.True(t, in.IsDemo)
	assert.True(t, in.Provision)
	assert.JSONEq(t, `{"locale":"en","seats":5}`, string(in.Configuration))
	require.NotNil(t, in.Branding)
	assert.Equal(t, "#0044ff", in.Branding.PrimaryColor)

	in, err = fixtures[1].input(false)
	require.NoError(t, err)
	assert.Empty(t, in.Slug)
	assert.Nil(t, in.Configuration)
	assert.Nil(t, in.Branding)
}

func TestReadTenantFileRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := readTenantFile(strings.NewReader("tenants:\n  - name: A\n    colour: red\n"))
	assert.Error(t, err)
}
