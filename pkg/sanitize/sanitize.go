// Package sanitize strips markup from user-supplied text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// bluemonday policies are safe for concurrent use once built.
var policy = bluemonday.StrictPolicy()

// Text removes every HTML tag and decodes the entities the policy escapes,
// so plain characters like & and " are stored as typed.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}

// Compact is Text with runs of whitespace collapsed to one space.
func Compact(s string) string {
	return strings.Join(strings.Fields(Text(s)), " ")
}
