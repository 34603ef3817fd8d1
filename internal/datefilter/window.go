package datefilter

import (
	"time"

	"github.com/rotisserie/eris"
)

// Bounds used when the caller leaves one side of the window unspecified.
var (
	DefaultStart = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	DefaultEnd   = time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Window is an inclusive [Start, End] calendar-date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// DefaultWindow returns the wide-open window 1970-01-01..3000-01-01.
func DefaultWindow() Window {
	return Window{Start: DefaultStart, End: DefaultEnd}
}

// ParseWindow builds a Window from optional date strings. Empty strings fall
// back to the default bounds.
func ParseWindow(start, end string) (Window, error) {
	w := DefaultWindow()

	if start != "" {
		t, err := parseBound(start)
		if err != nil {
			return Window{}, eris.Wrapf(err, "datefilter: start date %q", start)
		}
		w.Start = t
	}
	if end != "" {
		t, err := parseBound(end)
		if err != nil {
			return Window{}, eris.Wrapf(err, "datefilter: end date %q", end)
		}
		w.End = t
	}
	if w.Start.After(w.End) {
		return Window{}, eris.Errorf("datefilter: invalid date range %s > %s", w.StartString(), w.EndString())
	}
	return w, nil
}

func parseBound(s string) (time.Time, error) {
	canonical, ok := Canonicalize(s)
	if !ok {
		return time.Time{}, eris.New("unrecognized date")
	}
	t, err := time.Parse(Layout, canonical)
	if err != nil {
		return time.Time{}, eris.Wrap(err, "invalid date")
	}
	return t, nil
}

// Contains reports whether date lies inside the window.
func (w Window) Contains(date string) bool {
	return InRange(date, w.Start, w.End)
}

// StartString returns the start bound as YYYY-MM-DD.
func (w Window) StartString() string { return calendarDay(w.Start).Format(Layout) }

// EndString returns the end bound as YYYY-MM-DD.
func (w Window) EndString() string { return calendarDay(w.End).Format(Layout) }
