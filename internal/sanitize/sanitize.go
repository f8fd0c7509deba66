// Package sanitize strips markup from free-text input before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// maxPasses bounds how many layers of entity escaping Text peels off.
const maxPasses = 5

// Text removes every HTML tag from s, unescapes entities and trims surrounding space.
// Sanitizing repeats until unescaping exposes no further markup, so escaped tags
// are stripped too. Interior whitespace is kept so multi-line notes survive.
func Text(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return strings.TrimSpace(s)
	}
	for range maxPasses {
		next := html.UnescapeString(policy.Sanitize(s))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
	// still unwinding: keep the escaped form
	return strings.TrimSpace(policy.Sanitize(s))
}

// Ptr is Text for optional values. nil stays nil.
func Ptr(s *string) *string {
	if s == nil {
		return nil
	}
	v := Text(*s)
	return &v
}
