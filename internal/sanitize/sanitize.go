// Package sanitize strips SQL-looking tokens from free-text input at the HTTP
// boundary. It is defense in depth only: persistence always uses bound
// parameters, never string concatenation.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	keywordPattern = regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|EXEC|EXECUTE)\b`)
	tokenPattern   = regexp.MustCompile(`(--|;|\*|'|%)`)
)

// Clean is a string that went through Strip. Services take Clean for every
// free-text field so an unsanitized value cannot reach them by accident.
type Clean string

func (c Clean) String() string { return string(c) }

// Strip removes SQL keywords (case-insensitive) and the tokens -- ; * ' %
// and trims surrounding whitespace.
func Strip(s string) Clean {
	out := keywordPattern.ReplaceAllString(s, "")
	out = tokenPattern.ReplaceAllString(out, "")
	return Clean(strings.TrimSpace(out))
}
