// Package sanitize strips markup from user supplied free text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// Text removes every HTML element and trims surrounding whitespace.
func Text(s string) string {
	// StrictPolicy escapes entities; undo that so stored text stays plain
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}

// TextPtr is Text for optional fields. Empty results become nil.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	out := Text(*s)
	if out == "" {
		return nil
	}
	return &out
}
