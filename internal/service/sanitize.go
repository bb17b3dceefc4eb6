package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// nameSanitizer decides whether a display name is plain text. Names come from
// registration forms and from Google profiles and end up rendered in the UI.
//
// A name counts as plain text when StrictPolicy leaves it unchanged. The
// policy entity-encodes what it keeps ("&" → "&amp;"), so that is undone
// before comparing. Anything it would strip, a stray "<b" included, makes the
// name unusable as given; it is never silently truncated.
type nameSanitizer struct {
	policy *bluemonday.Policy
}

func newNameSanitizer() *nameSanitizer {
	return &nameSanitizer{policy: bluemonday.StrictPolicy()}
}

// Check returns name with surrounding whitespace trimmed, and whether it is
// free of markup.
func (s *nameSanitizer) Check(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	cleaned := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(trimmed)))
	return trimmed, cleaned == trimmed
}
