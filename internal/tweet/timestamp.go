package tweet

import (
	"errors"
	"strings"
	"time"
)

// TimeSettings decides how created_at values are anchored. It is built once
// from configuration and only read afterwards.
type TimeSettings struct {
	// UseTZ anchors parsed wall clocks to Location. When false the stamp is
	// naive: the wall clock is kept as is and carried in UTC.
	UseTZ    bool
	Location *time.Location
}

// Layouts accepted for created_at, streaming API format first.
var createdAtLayouts = []string{
	time.RubyDate, // Wed Oct 10 20:19:24 +0000 2018
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	time.UnixDate,
}

// ParseCreatedAt parses the source date string. Only year through second are
// used; sub-seconds and the UTC offset in the string are dropped.
func ParseCreatedAt(s string, ts TimeSettings) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, &ParseError{Value: s, Err: errors.New("empty")}
	}
	var (
		t       time.Time
		lastErr error
	)
	for _, layout := range createdAtLayouts {
		p, err := time.Parse(layout, v)
		if err == nil {
			t = p
			lastErr = nil
			break
		}
		lastErr = err
	}
	if lastErr != nil {
		return time.Time{}, &ParseError{Value: s, Err: lastErr}
	}
	loc := time.UTC
	if ts.UseTZ && ts.Location != nil {
		loc = ts.Location
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
}
