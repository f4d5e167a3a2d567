// Package stats computes summary statistics over parsed entries.
package stats

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/ccollicutt/loglens/pkg/parser"
)

// LoggerCount is the number of entries emitted by one logger.
type LoggerCount struct {
	Logger string `json:"logger"`
	Count  int    `json:"count"`
}

// LevelCount is the number of entries at one level and their share of the
// total, in percent.
type LevelCount struct {
	Level   parser.Level `json:"level"`
	Count   int          `json:"count"`
	Percent float64      `json:"percent"`
}

// Summary describes an entry collection.
type Summary struct {
	Total int `json:"total"`

	// First and Last bound the valid timestamps; both are zero when no
	// entry has one.
	First    time.Time     `json:"first"`
	Last     time.Time     `json:"last"`
	Duration time.Duration `json:"duration"`

	// Unparsed counts entries whose timestamp failed to parse.
	Unparsed int `json:"unparsed"`

	Levels  []LevelCount  `json:"levels"`
	Loggers []LoggerCount `json:"loggers"`
}

// DistinctLoggers returns the number of distinct loggers.
func (s *Summary) DistinctLoggers() int {
	return len(s.Loggers)
}

// Summarize computes a Summary in one pass over entries.
func Summarize(entries []*parser.Entry) *Summary {
	s := &Summary{Total: len(entries)}

	levels := make(map[parser.Level]int, len(parser.Levels))
	loggers := make(map[string]int)

	for _, e := range entries {
		levels[e.Level]++
		loggers[e.Logger]++

		if !e.HasTimestamp() {
			s.Unparsed++
			continue
		}
		if s.First.IsZero() || e.Timestamp.Before(s.First) {
			s.First = e.Timestamp
		}
		if e.Timestamp.After(s.Last) {
			s.Last = e.Timestamp
		}
	}
	if !s.First.IsZero() {
		s.Duration = s.Last.Sub(s.First)
	}

	for _, l := range parser.Levels {
		lc := LevelCount{Level: l, Count: levels[l]}
		if s.Total > 0 {
			lc.Percent = float64(lc.Count) * 100 / float64(s.Total)
		}
		s.Levels = append(s.Levels, lc)
	}

	s.Loggers = sortCounts(loggers)
	return s
}

// LoggerCounts counts entries per logger, keeping only entries whose level
// is in levels and loggers whose name contains substr (case-insensitive).
// A nil levels set keeps every level. Loggers are sorted by name.
func LoggerCounts(entries []*parser.Entry, levels map[parser.Level]bool, substr string) []LoggerCount {
	needle := strings.ToLower(substr)
	counts := make(map[string]int)
	for _, e := range entries {
		if levels != nil && !levels[e.Level] {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(e.Logger), needle) {
			continue
		}
		counts[e.Logger]++
	}

	out := make([]LoggerCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, LoggerCount{Logger: name, Count: n})
	}
	slices.SortFunc(out, func(a, b LoggerCount) int {
		return strings.Compare(a.Logger, b.Logger)
	})
	return out
}

// TopLoggers returns up to n logger names with the most entries at the
// given levels, ties broken by name.
func TopLoggers(entries []*parser.Entry, levels map[parser.Level]bool, n int) []string {
	if n <= 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, e := range entries {
		if levels != nil && !levels[e.Level] {
			continue
		}
		counts[e.Logger]++
	}

	sorted := sortCounts(counts)
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	names := make([]string, len(sorted))
	for i, lc := range sorted {
		names[i] = lc.Logger
	}
	return names
}

// sortCounts orders by count descending, then name.
func sortCounts(counts map[string]int) []LoggerCount {
	out := make([]LoggerCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, LoggerCount{Logger: name, Count: n})
	}
	slices.SortFunc(out, func(a, b LoggerCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Logger, b.Logger)
	})
	return out
}
