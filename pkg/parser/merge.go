package parser

import (
	"slices"
)

// Merge combines per-source entry lists into one chronological slice.
//
// Sources are concatenated in processing order and then stably sorted by
// timestamp, so entries sharing a timestamp keep their source order and
// Unparsed entries end up last in encounter order. The input slices are
// not modified.
func Merge(perSource [][]*Entry) []*Entry {
	total := 0
	for _, entries := range perSource {
		total += len(entries)
	}

	merged := make([]*Entry, 0, total)
	for _, entries := range perSource {
		merged = append(merged, entries...)
	}

	slices.SortStableFunc(merged, compareEntries)
	return merged
}

// compareEntries orders entries by timestamp only.
func compareEntries(a, b *Entry) int {
	return a.Timestamp.Compare(b.Timestamp)
}

// Loggers returns the distinct logger names in entries, sorted.
func Loggers(entries []*Entry) []string {
	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if !seen[e.Logger] {
			seen[e.Logger] = true
			names = append(names, e.Logger)
		}
	}
	slices.Sort(names)
	return names
}
