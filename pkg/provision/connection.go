package provision

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/dmitrymomot/pillar/pkg/tenant"
)

var placeholder = regexp.MustCompile(`(?i)\{(slug|database)\}`)

// MaxDatabaseNameLength is the Postgres identifier limit (NAMEDATALEN-1).
// Longer names are silently truncated by the server.
const MaxDatabaseNameLength = 63

// hashSuffixLength covers "_" plus 8 hex characters.
const hashSuffixLength = 9

// PrepareConnection fills in the tenant's database name and connection
// string when they are missing. Values already set are kept.
func PrepareConnection(t *tenant.Tenant, opts Options) error {
	if t == nil {
		return ErrNilTenant
	}
	opts = opts.withDefaults()

	if t.DatabaseName == "" {
		t.DatabaseName = DatabaseName(opts.DatabasePrefix, t.Slug)
	}
	if t.ConnectionString != "" {
		return nil
	}
	if opts.ConnectionTemplate == "" {
		return ErrMissingConnectionTemplate
	}
	t.ConnectionString = ExpandTemplate(opts.ConnectionTemplate, t.Slug, t.DatabaseName)
	return nil
}

// DatabaseName derives a Postgres-safe database name from a slug. Hyphens
// become underscores and anything outside [a-z0-9_] is dropped. An empty
// result is replaced with random hex. Names longer than
// MaxDatabaseNameLength are cut and suffixed with a hash of the full name,
// so slugs sharing a long prefix still map to different databases.
func DatabaseName(prefix, slug string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(slug)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-':
			b.WriteByte('_')
		}
	}

	name := strings.Trim(b.String(), "_")
	if name == "" {
		name = randomHex(4)
	}
	return capLength(strings.ToLower(prefix + name))
}

func capLength(name string) string {
	if len(name) <= MaxDatabaseNameLength {
		return name
	}
	sum := sha256.Sum256([]byte(name))
	head := strings.TrimRight(name[:MaxDatabaseNameLength-hashSuffixLength], "_")
	return head + "_" + hex.EncodeToString(sum[:4])
}

// ExpandTemplate substitutes {slug} and {database}, case-insensitively.
func ExpandTemplate(template, slug, database string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		if strings.EqualFold(m, "{slug}") {
			return slug
		}
		return database
	})
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
