package datefilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"iso date", "2023-01-15", "2023-01-15", true},
		{"iso datetime", "2023-01-15T08:30:00Z", "2023-01-15", true},
		{"iso with offset", "2023-01-15T23:30:00-08:00", "2023-01-15", true},
		{"iso prefix not validated", "2023-13-45 garbage", "2023-13-45", true},
		{"iso embedded", "Reviewed 2023-01-15 by staff", "2023-01-15", true},
		{"long month", "January 15, 2023", "2023-01-15", true},
		{"long month no comma", "January 15 2023", "2023-01-15", true},
		{"short month", "Jan 15, 2023", "2023-01-15", true},
		{"short month dot", "Jan. 15, 2023", "2023-01-15", true},
		{"sept", "Sept 5, 2023", "2023-09-05", true},
		{"lowercase", "january 15, 2023", "2023-01-15", true},
		{"ordinal", "January 15th, 2023", "2023-01-15", true},
		{"day first long", "15 January 2023", "2023-01-15", true},
		{"day first short", "15 Jan 2023", "2023-01-15", true},
		{"us slash", "01/15/2023", "2023-01-15", true},
		{"us slash short", "1/5/2023", "2023-01-05", true},
		{"us dash", "01-15-2023", "2023-01-15", true},
		{"weekday prefix", "Sunday, January 15, 2023", "2023-01-15", true},
		{"rfc1123", "Sun, 15 Jan 2023 10:00:00 GMT", "2023-01-15", true},
		{"embedded text", "Posted on January 15, 2023", "2023-01-15", true},
		{"embedded day first", "Review date: 15 Jan 2023 (edited)", "2023-01-15", true},
		{"embedded slash", "Submitted 1/15/2023 at 10:42 AM", "2023-01-15", true},
		{"surrounding whitespace", "  \n Jan 15, 2023 \t", "2023-01-15", true},
		{"empty", "", "", false},
		{"whitespace", "   ", "", false},
		{"relative", "2 days ago", "", false},
		{"garbage", "not a date", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Canonicalize(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalize_ISOPrefixKeepsFirstTenCharacters(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"2021-07-04",
		"2021-07-04T00:00:00.000Z",
		"2021-07-04 12:00",
		"2021-07-04Tanything",
	} {
		got, ok := Canonicalize(in)
		require.True(t, ok, in)
		assert.Equal(t, in[:10], got)
	}
}

func TestInRange(t *testing.T) {
	t.Parallel()

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		date string
		want bool
	}{
		{"inside", "2023-06-15", true},
		{"on start", "2023-01-01", true},
		{"on end", "2023-12-31", true},
		{"before", "2022-12-31", false},
		{"after", "2024-01-01", false},
		{"natural language inside", "March 3, 2023", true},
		{"empty", "", false},
		{"unparseable", "yesterday", false},
		{"invalid iso", "2023-13-45", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, InRange(tt.date, start, end))
		})
	}
}

func TestInRange_EmptyDateNeverInRange(t *testing.T) {
	t.Parallel()

	assert.False(t, InRange("", time.Time{}, time.Time{}))
	assert.False(t, InRange("", DefaultStart, DefaultEnd))
}

func TestInRange_ComparesCalendarDates(t *testing.T) {
	t.Parallel()

	// End late in the day in a negative offset zone: the calendar day is
	// still 2023-06-30 even though the instant is 2023-07-01 in UTC.
	pst := time.FixedZone("PST", -8*60*60)
	start := time.Date(2023, 6, 1, 23, 0, 0, 0, pst)
	end := time.Date(2023, 6, 30, 23, 0, 0, 0, pst)

	assert.True(t, InRange("2023-06-01", start, end))
	assert.True(t, InRange("2023-06-30", start, end))
	assert.False(t, InRange("2023-07-01", start, end))
}

func TestInRange_OpenBounds(t *testing.T) {
	t.Parallel()

	assert.True(t, InRange("1900-01-01", time.Time{}, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, InRange("2999-01-01", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{}))
}

func TestParseWindow(t *testing.T) {
	t.Parallel()

	w, err := ParseWindow("", "")
	require.NoError(t, err)
	assert.Equal(t, "1970-01-01", w.StartString())
	assert.Equal(t, "3000-01-01", w.EndString())

	w, err = ParseWindow("2023-01-01", "2023-03-31")
	require.NoError(t, err)
	assert.True(t, w.Contains("2023-01-01"))
	assert.True(t, w.Contains("2023-03-31"))
	assert.False(t, w.Contains("2023-04-01"))

	w, err = ParseWindow("2023-05-01", "")
	require.NoError(t, err)
	assert.Equal(t, "2023-05-01", w.StartString())
	assert.Equal(t, "3000-01-01", w.EndString())
}

func TestParseWindow_Errors(t *testing.T) {
	t.Parallel()

	_, err := ParseWindow("2023-05-01", "2023-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date range")

	_, err = ParseWindow("someday", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start date")

	_, err = ParseWindow("", "2023-02-30x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end date")
}

func TestDefaultWindow_ContainsEverythingDated(t *testing.T) {
	t.Parallel()

	w := DefaultWindow()
	assert.True(t, w.Contains("1970-01-01"))
	assert.True(t, w.Contains("2025-10-18"))
	assert.True(t, w.Contains("3000-01-01"))
	assert.False(t, w.Contains(""))
}
