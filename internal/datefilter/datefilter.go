// Package datefilter normalizes heterogeneous review dates to YYYY-MM-DD and
// tests them against an inclusive calendar-date window.
package datefilter

import (
	"regexp"
	"strings"
	"time"
)

// Layout is the canonical date format.
const Layout = "2006-01-02"

var (
	isoPrefixRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	isoAnywhereRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

	ordinalRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	weekdayRe    = regexp.MustCompile(`(?i)^(mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?,?\s+`)
	monthAbbrDot = regexp.MustCompile(`\b([A-Za-z]{3,4})\.`)
	septRe       = regexp.MustCompile(`(?i)\bsept\b`)
	spaceRe      = regexp.MustCompile(`\s+`)

	// embeddedRes locate a date inside surrounding text such as
	// "Posted on January 15, 2023".
	embeddedRes = []*regexp.Regexp{
		regexp.MustCompile(`[A-Za-z]+\s+\d{1,2},?\s+\d{4}`),
		regexp.MustCompile(`\d{1,2}\s+[A-Za-z]+,?\s+\d{4}`),
		regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`),
		regexp.MustCompile(`\d{1,2}-\d{1,2}-\d{4}`),
		regexp.MustCompile(`\d{4}/\d{1,2}/\d{1,2}`),
	}
)

// layouts are tried in order against the cleaned input. Numeric forms are
// read month-first.
var layouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 January, 2006",
	"2 Jan 2006",
	"2 Jan, 2006",
	"1/2/2006",
	"1-2-2006",
	"2006/1/2",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.ANSIC,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon Jan 2 2006",
}

// Canonicalize converts a raw date representation to YYYY-MM-DD. It returns
// false when no date can be recovered.
//
// Inputs that already start with YYYY-MM-DD are truncated to their first ten
// characters without further validation.
func Canonicalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if m := isoPrefixRe.FindString(s); m != "" {
		return m, true
	}
	if m := isoAnywhereRe.FindString(s); m != "" {
		return m, true
	}

	cleaned := clean(s)
	if t, ok := parseLayouts(cleaned); ok {
		return t.Format(Layout), true
	}
	for _, re := range embeddedRes {
		if m := re.FindString(cleaned); m != "" {
			if t, ok := parseLayouts(m); ok {
				return t.Format(Layout), true
			}
		}
	}
	return "", false
}

// clean strips ordinal suffixes, leading weekdays and abbreviation dots, and
// collapses whitespace.
func clean(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = weekdayRe.ReplaceAllString(s, "")
	s = monthAbbrDot.ReplaceAllString(s, "$1")
	s = septRe.ReplaceAllString(s, "Sep")
	return strings.TrimSpace(s)
}

func parseLayouts(s string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// InRange reports whether date falls on or between the calendar days of
// start and end. Empty or unparseable dates are never in range. A zero start
// or end leaves that side of the window open.
func InRange(date string, start, end time.Time) bool {
	canonical, ok := Canonicalize(date)
	if !ok {
		return false
	}
	d, err := time.Parse(Layout, canonical)
	if err != nil {
		return false
	}
	if !start.IsZero() && d.Before(calendarDay(start)) {
		return false
	}
	if !end.IsZero() && d.After(calendarDay(end)) {
		return false
	}
	return true
}

// calendarDay drops the clock and zone of t, keeping the date as seen in t's
// own location.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
