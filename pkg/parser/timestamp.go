package parser

import (
	"time"
)

// TimestampLayout is the Go layout of the record-start timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// Unparsed is the sentinel timestamp given to records whose raw timestamp
// does not parse. A four-digit year can never produce it, and it sorts
// after every valid timestamp.
var Unparsed = time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseTimestamp parses raw with TimestampLayout.
// Returns Unparsed when raw is not a valid timestamp.
func ParseTimestamp(raw string) time.Time {
	ts, err := time.Parse(TimestampLayout, raw)
	if err != nil {
		return Unparsed
	}
	return ts
}

// IsUnparsed reports whether t is the Unparsed sentinel.
func IsUnparsed(t time.Time) bool {
	return t.Equal(Unparsed)
}
