// Package timeline buckets log entries by time and logger for histogram
// display.
package timeline

import (
	"fmt"
	"strings"
	"time"
)

// Granularity is the width of an aggregation bucket.
type Granularity string

const (
	Minute Granularity = "minute"
	Hour   Granularity = "hour"
	Day    Granularity = "day"
)

// Granularities lists every granularity from finest to coarsest.
var Granularities = []Granularity{Minute, Hour, Day}

// ParseGranularity converts a name (case-insensitive) to a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	switch g {
	case Minute, Hour, Day:
		return g, nil
	default:
		return "", fmt.Errorf("unknown granularity %q (must be minute, hour, or day)", s)
	}
}

// Floor returns the start of the bucket containing t.
func (g Granularity) Floor(t time.Time) time.Time {
	y, mo, d := t.Date()
	switch g {
	case Minute:
		return time.Date(y, mo, d, t.Hour(), t.Minute(), 0, 0, t.Location())
	case Hour:
		return time.Date(y, mo, d, t.Hour(), 0, 0, 0, t.Location())
	default:
		return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
	}
}

// End returns the exclusive end of the bucket starting at start: exactly
// one unit later.
func (g Granularity) End(start time.Time) time.Time {
	switch g {
	case Minute:
		return start.Add(time.Minute)
	case Hour:
		return start.Add(time.Hour)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// Next returns the next coarser granularity, wrapping from Day to Minute.
func (g Granularity) Next() Granularity {
	switch g {
	case Minute:
		return Hour
	case Hour:
		return Day
	default:
		return Minute
	}
}

// Layout is a time layout suited to labelling buckets of this width.
func (g Granularity) Layout() string {
	switch g {
	case Minute:
		return "2006-01-02 15:04"
	case Hour:
		return "2006-01-02 15:00"
	default:
		return "2006-01-02"
	}
}
