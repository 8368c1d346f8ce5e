package canonical

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// BookingParts derives the grouping fields from a single authoritative
// booking date string. The input may carry a time component; only the first
// ten characters are considered. ok is false when the date is unparsable, in
// which case all derived fields are zero and the caller stores the record
// with absent grouping fields.
func BookingParts(bookingDate string) (month string, year int, weekday string, ok bool) {
	s := strings.TrimSpace(bookingDate)
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return "", 0, "", false
	}
	t := d.In(time.UTC)
	return t.Format("2006-01"), d.Year, t.Format("Mon"), true
}

// NormalizeDate trims a provider date string down to YYYY-MM-DD, returning
// the empty string when there is nothing usable.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > 10 {
		s = s[:10]
	}
	return s
}
