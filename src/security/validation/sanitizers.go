package validation

import (
	"strings"
	"unicode"
)

// StripUnprintable removes non-printable characters, keeping tab, newline
// and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

// CleanText strips unprintable characters, collapses runs of whitespace and
// trims the result. Used for names and descriptions supplied by clients.
func CleanText(s string) string {
	return strings.Join(strings.Fields(StripUnprintable(s)), " ")
}
