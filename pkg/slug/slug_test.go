package slug_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/pillar/pkg/slug"
)

func TestMake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		opts  []slug.Option
		want  string
	}{
		{"simple", "Acme Corp", nil, "acme-corp"},
		{"diacritics", "Café Crème", nil, "cafe-creme"},
		{"ligatures", "Straße Ærø", nil, "strasse-aero"},
		{"collapses separators", "  foo -- bar__baz  ", nil, "foo-bar-baz"},
		{"trims edges", "--hello--", nil, "hello"},
		{"digits", "Team 42", nil, "team-42"},
		{"replace", "Ben & Jerry", []slug.Option{slug.WithReplace(map[string]string{"&": "and"})}, "ben-and-jerry"},
		{"max length does not end with hyphen", "abcd efgh", []slug.Option{slug.WithMaxLength(5)}, "abcd"},
		{"nothing usable", "!!!", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, slug.Make(tt.input, tt.opts...))
		})
	}
}

var label = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

func TestMakeLengthCap(t *testing.T) {
	t.Parallel()

	got := slug.Make(strings.Repeat("tenant name ", 20))
	assert.LessOrEqual(t, len(got), slug.MaxLength)
	assert.Regexp(t, label, got)
}

func TestMakeWithSuffix(t *testing.T) {
	t.Parallel()

	t.Run("appended", func(t *testing.T) {
		t.Parallel()
		got := slug.Make("Acme", slug.WithSuffix(6))
		assert.Regexp(t, `^acme-[a-z0-9]{6}$`, got)
	})

	t.Run("respects cap", func(t *testing.T) {
		t.Parallel()
		got := slug.Make(strings.Repeat("x", 100), slug.WithSuffix(6))
		assert.Len(t, got, slug.MaxLength)
		assert.Regexp(t, label, got)
	})

	t.Run("suffix only", func(t *testing.T) {
		t.Parallel()
		got := slug.Make("###", slug.WithSuffix(5))
		assert.Regexp(t, `^[a-z0-9]{5}$`, got)
	})

	t.Run("random", func(t *testing.T) {
		t.Parallel()
		assert.NotEqual(t, slug.Make("a", slug.WithSuffix(12)), slug.Make("a", slug.WithSuffix(12)))
	})
}
