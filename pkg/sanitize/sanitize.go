// Package sanitize strips disallowed markup from free-text fields before
// they reach prompts, cache keys, or storage.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// allowedTags is the safelist of formatting tags preserved in note content.
// Everything else, including all attributes, is discarded.
var allowedTags = []string{"b", "i", "em", "strong", "u", "br", "p", "ul", "ol", "li"}

var policy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedTags...)
	return p
}()

// String removes all markup outside the safelist and trims surrounding
// whitespace. The result is stable: String(String(x)) == String(x).
func String(input string) string {
	return strings.TrimSpace(policy.Sanitize(input))
}
