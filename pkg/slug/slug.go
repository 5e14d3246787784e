package slug

import (
	"crypto/rand"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the longest slug that still fits a DNS label.
const MaxLength = 63

const suffixChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// Option configures slug generation.
type Option func(*config)

type config struct {
	maxLength    int
	suffixLength int
	replace      map[string]string
}

// WithMaxLength caps the slug length. Values outside 1..MaxLength are ignored.
func WithMaxLength(n int) Option {
	return func(c *config) {
		if n > 0 && n <= MaxLength {
			c.maxLength = n
		}
	}
}

// WithSuffix appends a random lowercase alphanumeric suffix of length n,
// trimming the base so the whole slug still respects the length cap.
func WithSuffix(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.suffixLength = n
		}
	}
}

// WithReplace applies literal replacements before slugification,
// e.g. {"&": "and"}.
func WithReplace(r map[string]string) Option {
	return func(c *config) { c.replace = r }
}

// Make turns a display name into a lowercase host-label slug: ASCII letters,
// digits and single hyphens, never starting or ending with a hyphen.
// Diacritics are folded to their base letters. The result may be empty when
// the input has nothing usable and no suffix was requested.
func Make(s string, opts ...Option) string {
	cfg := config{maxLength: MaxLength}
	for _, opt := range opts {
		opt(&cfg)
	}

	for from, to := range cfg.replace {
		s = strings.ReplaceAll(s, from, to)
	}
	s = fold(s)

	limit := cfg.maxLength
	if cfg.suffixLength > 0 {
		limit -= cfg.suffixLength + 1
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if limit <= 0 {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				if b.Len()+2 > limit {
					break
				}
				b.WriteByte('-')
			}
			if b.Len()+1 > limit {
				break
			}
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		pendingSep = true
	}

	out := b.String()
	if cfg.suffixLength == 0 {
		return out
	}
	suffix := randomSuffix(min(cfg.suffixLength, cfg.maxLength))
	if out == "" {
		return suffix
	}
	return out + "-" + suffix
}

var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold strips combining marks and maps a few letters that have no
// decomposition.
func fold(s string) string {
	out, _, err := transform.String(folder, s)
	if err != nil {
		out = s
	}
	return ligatures.Replace(out)
}

var ligatures = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "AE", "œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O", "ł", "l", "Ł", "L", "đ", "d", "Đ", "D",
)

func randomSuffix(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		for i := range b {
			b[i] = suffixChars[i%len(suffixChars)]
		}
		return string(b)
	}
	for i := range b {
		b[i] = suffixChars[int(b[i])%len(suffixChars)]
	}
	return string(b)
}
