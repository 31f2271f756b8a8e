package utils

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// A dot followed by exactly three digits marks IDR-style grouping.
	idrHint = regexp.MustCompile(`\d{1,3}\.\d{3}`)

	idrGrouped   = regexp.MustCompile(`^\d{1,3}(\.\d{3})*(,\d+)?$`)
	idrDecimal   = regexp.MustCompile(`^\d+,\d{1,2}$`)
	stdGrouped   = regexp.MustCompile(`^\d{1,3}(,\d{3})*(\.\d+)?$`)
	stdPlain     = regexp.MustCompile(`^\d*\.?\d+$`)
	currencyMark = regexp.MustCompile(`(?i)(rp\.?|idr|usd|sgd|eur|myr|[$€£¥])`)
)

// ParseAmount parses a monetary string written in either IDR style
// ("1.500.000,00") or standard style ("1,500.00"). Parenthesized values and
// a leading or trailing minus are negative. Currency symbols and codes are ignored. ok is false when the
// string holds anything else.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = currencyMark.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\u00a0':
			return -1
		}
		return r
	}, s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	switch {
	case strings.HasPrefix(s, "-"):
		negative = !negative
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasSuffix(s, "-"):
		// Debit columns of some exports: "1.500,00-".
		negative = !negative
		s = s[:len(s)-1]
	}
	if s == "" {
		return decimal.Zero, false
	}

	var (
		v  decimal.Decimal
		ok bool
	)
	if idrHint.MatchString(s) {
		v, ok = parseIDRStyle(s)
	}
	if !ok {
		v, ok = parseStandardStyle(s)
	}
	if !ok && idrDecimal.MatchString(s) {
		v, ok = parseIDRStyle(s)
	}
	if !ok {
		return decimal.Zero, false
	}
	if negative {
		v = v.Neg()
	}
	return v, true
}

func parseIDRStyle(s string) (decimal.Decimal, bool) {
	if !idrGrouped.MatchString(s) && !idrDecimal.MatchString(s) {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

func parseStandardStyle(s string) (decimal.Decimal, bool) {
	if !stdGrouped.MatchString(s) && !stdPlain.MatchString(s) {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
