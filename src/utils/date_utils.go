package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DefaultDateFormat = "2006-01-02"

var (
	dayMonthOnly = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})$`)
	longForm     = regexp.MustCompile(`^(\d{1,2})[\s-]+([A-Za-z]+)\.?[\s-]+(\d{4})$`)
)

var indonesianMonths = map[string]time.Month{
	"januari": time.January, "jan": time.January,
	"februari": time.February, "pebruari": time.February, "feb": time.February, "peb": time.February,
	"maret": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"mei": time.May,
	"juni": time.June, "jun": time.June,
	"juli": time.July, "jul": time.July,
	"agustus": time.August, "agu": time.August, "agt": time.August, "ags": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"oktober": time.October, "okt": time.October,
	"november": time.November, "nov": time.November, "nop": time.November,
	"desember": time.December, "des": time.December,
}

// numericLayouts are tried in order; the first that parses wins. Day-first
// layouts precede month-first ones, so "03/04/2024" is 3 April.
var numericLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2006-1-2",
	"1/2/2006",
	"2/1/06",
	"2-1-06",
	"2006/1/2",
	"2.1.2006",
}

var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2 Jan 2006",
	"2-Jan-2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"20060102",
}

// ParseDate parses a statement date. now supplies the year for "DD/MM"
// values; a month later than now's month is taken from the previous year.
// The result is the calendar date at UTC midnight.
func ParseDate(s string, now time.Time) (time.Time, bool) {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	if s == "" {
		return time.Time{}, false
	}

	if m := dayMonthOnly.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := now.Year()
		if month > int(now.Month()) {
			year--
		}
		return makeDate(year, time.Month(month), day)
	}

	if m := longForm.FindStringSubmatch(s); m != nil {
		if month, ok := indonesianMonths[strings.ToLower(m[2])]; ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			return makeDate(year, month, day)
		}
	}

	for _, layout := range numericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOf(t), true
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOf(t), true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a calendar date with DefaultDateFormat.
func FormatDate(t time.Time) string {
	return t.Format(DefaultDateFormat)
}

func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	if day > time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day() {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
