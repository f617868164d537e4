// Package handle converts human-readable port names into handle ids usable
// as graph edge endpoints.
package handle

import (
	"strings"
	"unicode"
)

// Normalize lowercases name, turns whitespace runs into a single hyphen,
// drops anything outside [a-z0-9-], collapses repeated hyphens and trims
// hyphens from both ends. The result may be empty.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	// pendingHyphen defers writing a separator until a kept rune follows,
	// which both collapses runs and trims the trailing edge.
	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsSpace(r) || r == '-':
			pendingHyphen = true
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Equal reports whether two handles name the same port.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
