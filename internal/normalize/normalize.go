// Package normalize cleans extracted case-law text before it is chunked.
package normalize

import (
	"regexp"
	"strings"
)

var (
	runsOfSpaces    = regexp.MustCompile(` {2,}`)
	leadingBlanks   = regexp.MustCompile(`(?m)^[ \t]+`)
	trailingBlanks  = regexp.MustCompile(`(?m)[ \t]+$`)
	leadingSpaceRun = regexp.MustCompile(`(?m)^[\s\v\p{Z}\x{0085}\x{1c}-\x{1f}]+`)
)

// Text applies the whitespace rules in a fixed order. The final rule strips
// every whitespace run anchored at a line start, newlines included, so the
// result never contains an empty line. Text(Text(s)) == Text(s).
func Text(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n\n")
	s = strings.ReplaceAll(s, "\r", "\n\n")
	s = runsOfSpaces.ReplaceAllString(s, " ")
	s = leadingBlanks.ReplaceAllString(s, "")
	s = trailingBlanks.ReplaceAllString(s, "")
	s = leadingSpaceRun.ReplaceAllString(s, "")
	return s
}
