// Package output provides formatting for LogLens reports.
package output

import (
	"time"

	"github.com/ccollicutt/loglens/pkg/loader"
	"github.com/ccollicutt/loglens/pkg/parser"
	"github.com/ccollicutt/loglens/pkg/session"
	"github.com/ccollicutt/loglens/pkg/timeline"
)

// Report is the output of one command. Sections that a command does not
// produce are nil.
type Report struct {
	Summary  *session.Summary `json:"summary,omitempty"`
	Entries  *EntryList       `json:"entries,omitempty"`
	Timeline *TimelineView    `json:"timeline,omitempty"`
	Members  *MemberList      `json:"members,omitempty"`

	// Failures lists sources that could not be read.
	Failures []loader.MemberFailure `json:"failures,omitempty"`

	Metadata Metadata `json:"metadata"`
}

// Metadata provides context about the run.
type Metadata struct {
	// Source is the path that was loaded.
	Source string `json:"source"`

	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// Duration is how long loading and processing took.
	Duration time.Duration `json:"duration"`
}

// EntryList is a filtered selection of entries.
type EntryList struct {
	// Total is the size of the whole dataset.
	Total int `json:"total"`

	// Matched is the number of entries passing the filters.
	Matched int `json:"matched"`

	// Entries holds the matched entries, possibly truncated by a limit.
	Entries []*parser.Entry `json:"entries"`
}

// Truncated reports whether some matched entries were left out.
func (l *EntryList) Truncated() bool {
	return len(l.Entries) < l.Matched
}

// NewEntryList builds an EntryList keeping at most limit entries (all when
// limit <= 0).
func NewEntryList(total int, matched []*parser.Entry, limit int) *EntryList {
	shown := matched
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	return &EntryList{Total: total, Matched: len(matched), Entries: shown}
}

// TimelineView is an aggregation laid out for display.
type TimelineView struct {
	Granularity timeline.Granularity `json:"granularity"`
	Loggers     []string             `json:"loggers"`
	Buckets     []Bucket             `json:"buckets"`
}

// Bucket is one time interval of a TimelineView.
type Bucket struct {
	Start  time.Time      `json:"start"`
	End    time.Time      `json:"end"`
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

// NewTimelineView converts an aggregation result.
func NewTimelineView(res *timeline.Result) *TimelineView {
	view := &TimelineView{
		Granularity: res.Granularity,
		Loggers:     res.Loggers,
		Buckets:     []Bucket{},
	}
	for _, b := range res.Buckets {
		start, end := res.Window(b)
		bucket := Bucket{Start: start, End: end, Counts: make(map[string]int)}
		for _, logger := range res.Loggers {
			if n := res.Count(b, logger); n > 0 {
				bucket.Counts[logger] = n
				bucket.Total += n
			}
		}
		view.Buckets = append(view.Buckets, bucket)
	}
	return view
}

// MemberList describes archive members and which of them are selected.
type MemberList struct {
	Archive  string          `json:"archive"`
	Members  []loader.Member `json:"members"`
	Selected []string        `json:"selected"`
}

// IsSelected reports whether name is in the selection.
func (l *MemberList) IsSelected(name string) bool {
	for _, s := range l.Selected {
		if s == name {
			return true
		}
	}
	return false
}
