// Package filter narrows the full entry collection down to the visible
// subset.
package filter

import (
	"context"
	"strings"
	"time"

	"github.com/ccollicutt/loglens/pkg/parser"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// State is the complete set of active constraints.
// It is replaced wholesale rather than mutated field by field.
type State struct {
	// Levels holds the selected levels. Levels missing from the map are
	// not selected.
	Levels map[parser.Level]bool

	// Loggers holds the selected logger names. Nil selects every logger;
	// an empty non-nil set selects none.
	Loggers map[string]bool

	// Window restricts timestamps when non-nil.
	Window *Window

	// Search is the full-text query; empty or whitespace-only disables
	// search.
	Search string
}

// NewState returns a state with every level and logger selected and no
// window or search.
func NewState() State {
	levels := make(map[parser.Level]bool, len(parser.Levels))
	for _, l := range parser.Levels {
		levels[l] = true
	}
	return State{Levels: levels}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{Search: s.Search}
	if s.Levels != nil {
		out.Levels = make(map[parser.Level]bool, len(s.Levels))
		for l, on := range s.Levels {
			out.Levels[l] = on
		}
	}
	if s.Loggers != nil {
		out.Loggers = make(map[string]bool, len(s.Loggers))
		for name, on := range s.Loggers {
			out.Loggers[name] = on
		}
	}
	if s.Window != nil {
		w := *s.Window
		out.Window = &w
	}
	return out
}

// allLevels reports whether the level stage would keep every entry.
func (s State) allLevels() bool {
	for _, l := range parser.Levels {
		if !s.Levels[l] {
			return false
		}
	}
	return true
}

// Active reports whether any constraint can narrow the collection.
func (s State) Active() bool {
	return !s.allLevels() || s.Loggers != nil || s.Window != nil || s.searching()
}

func (s State) searching() bool {
	return strings.TrimSpace(s.Search) != ""
}

// Searcher answers full-text queries with a set of row-ids.
type Searcher interface {
	Query(ctx context.Context, text string) (map[int]struct{}, error)
}

// Visible is the output of ComputeVisible.
type Visible struct {
	// Entries is the visible subset in input order.
	Entries []*parser.Entry

	// Rows holds the row-id of each visible entry.
	Rows []int

	// Filtered is true when at least one constraint was applied, so that an
	// empty result can be told apart from an unfiltered one.
	Filtered bool

	// SearchErr is set when the search stage could not run; the search
	// stage then matches nothing.
	SearchErr error
}

// ComputeVisible applies the level, logger, window and search constraints
// of state, in that order, to entries. Stages that cannot narrow the set
// are skipped. searcher may be nil, in which case an active search matches
// nothing.
func ComputeVisible(ctx context.Context, entries []*parser.Entry, state State, searcher Searcher) Visible {
	if !state.Active() {
		rows := make([]int, len(entries))
		for i := range rows {
			rows[i] = i
		}
		return Visible{Entries: entries, Rows: rows}
	}

	var stages []func(row int, e *parser.Entry) bool

	if !state.allLevels() {
		stages = append(stages, func(_ int, e *parser.Entry) bool {
			return state.Levels[e.Level]
		})
	}

	if state.Loggers != nil {
		stages = append(stages, func(_ int, e *parser.Entry) bool {
			return state.Loggers[e.Logger]
		})
	}

	if state.Window != nil {
		w := *state.Window
		stages = append(stages, func(_ int, e *parser.Entry) bool {
			return w.Contains(e.Timestamp)
		})
	}

	var searchErr error
	if state.searching() {
		hits, err := query(ctx, searcher, state.Search)
		if err != nil {
			searchErr = err
			hits = nil
		}
		stages = append(stages, func(row int, _ *parser.Entry) bool {
			_, ok := hits[row]
			return ok
		})
	}

	out := Visible{Filtered: true, SearchErr: searchErr, Entries: []*parser.Entry{}, Rows: []int{}}
next:
	for row, e := range entries {
		for _, keep := range stages {
			if !keep(row, e) {
				continue next
			}
		}
		out.Entries = append(out.Entries, e)
		out.Rows = append(out.Rows, row)
	}
	return out
}

func query(ctx context.Context, searcher Searcher, text string) (map[int]struct{}, error) {
	if searcher == nil {
		return nil, ErrNoIndex
	}
	return searcher.Query(ctx, text)
}
