// Package sanitize maps arbitrary sheet and column names to identifiers that
// are safe to embed in SQL without quoting.
package sanitize

import (
	"strconv"
	"strings"
	"unicode"
)

// FallbackToken is returned when the input contains no usable characters.
const FallbackToken = "unnamed_column"

// Identifier converts any string into a lowercase identifier matching
// ^[a-z][a-z0-9_]*$. Runs of invalid characters collapse to a single
// underscore, a leading digit is dropped along with any other leading
// non-letter characters, and leading/trailing underscores are stripped.
// Empty or all-invalid input maps to FallbackToken. The function is
// deterministic and idempotent.
func Identifier(name string) string {
	var b strings.Builder

	b.Grow(len(name))

	prevUnderscore := false

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || unicode.IsDigit(r) && r < 128:
			b.WriteRune(r)

			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteByte('_')
			}

			prevUnderscore = true
		}
	}

	s := strings.Trim(b.String(), "_")

	// No leading digit: drop digits (and the underscores they leave behind)
	// until a letter starts the identifier.
	s = strings.TrimLeft(s, "0123456789_")

	if s == "" {
		return FallbackToken
	}

	return s
}

// Namespace reduces an upload identifier (typically a UUID) to a fragment
// safe for use inside table names. Hyphens become underscores; anything
// else invalid is handled the same way as Identifier, but a leading digit
// is acceptable here because the fragment is always preceded by a fixed
// prefix in the final table name.
func Namespace(id string) string {
	var b strings.Builder

	b.Grow(len(id))

	for _, r := range strings.ToLower(id) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	return strings.Trim(b.String(), "_")
}

// Unique resolves post-sanitization collisions by deterministic numeric
// suffixing: the second occurrence of a name becomes name_2, then name_3.
// The seen map carries state across a single header row.
func Unique(name string, seen map[string]int) string {
	n := seen[name]
	seen[name] = n + 1

	if n == 0 {
		return name
	}

	for {
		candidate := name + "_" + strconv.Itoa(n+1)
		if seen[candidate] == 0 {
			seen[candidate] = 1
			return candidate
		}

		n++
	}
}
