package zettel

import "time"

// Canonical render formats. Parsing accepts the wider tables below; rendering
// always emits the canonical form so a file is format-stable after one
// round-trip.
const (
	canonicalDate     = "2006-01-02"
	canonicalDateTime = "2006-01-02 15:04"
)

// Accepted date-time formats, tried in order. The weekday-annotated form is
// what older vaults contain; it stays parseable but re-renders canonically.
var dateTimeFormats = []string{
	"2006-01-02 15:04:05",
	canonicalDateTime,
	"2006-01-02, Mon, 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Accepted date-only formats, tried in order.
var dateFormats = []string{
	canonicalDate,
	"2006-01-02, Mon",
	"01/02/2006",
}

// parseDateText attempts to interpret s as a date or date-time.
// hasClock reports whether the matched format carries a time of day.
func parseDateText(s string) (t time.Time, hasClock, ok bool) {
	for _, layout := range dateTimeFormats {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true, true
		}
	}
	for _, layout := range dateFormats {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, false, true
		}
	}
	return time.Time{}, false, false
}
