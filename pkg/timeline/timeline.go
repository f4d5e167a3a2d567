package timeline

import (
	"slices"
	"time"

	"github.com/ccollicutt/loglens/pkg/parser"
)

// Key identifies one aggregation cell.
type Key struct {
	Bucket time.Time
	Logger string
}

// Result is the output of Aggregate.
type Result struct {
	Granularity Granularity

	// Counts maps each non-empty (bucket, logger) cell to its entry count.
	Counts map[Key]int

	// Buckets lists the distinct bucket starts in ascending order.
	Buckets []time.Time

	// Loggers lists the loggers with at least one counted entry, sorted.
	Loggers []string
}

// Count returns the count for one cell.
func (r *Result) Count(bucket time.Time, logger string) int {
	return r.Counts[Key{Bucket: bucket, Logger: logger}]
}

// BucketTotal returns the count across all loggers for one bucket.
func (r *Result) BucketTotal(bucket time.Time) int {
	total := 0
	for _, logger := range r.Loggers {
		total += r.Count(bucket, logger)
	}
	return total
}

// Total returns the number of entries counted.
func (r *Result) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

// Empty reports whether nothing was counted.
func (r *Result) Empty() bool {
	return len(r.Counts) == 0
}

// Window returns the half-open interval covered by the bucket starting at
// bucket.
func (r *Result) Window(bucket time.Time) (start, end time.Time) {
	return bucket, r.Granularity.End(bucket)
}

// Aggregate counts entries per (bucket, logger) for the loggers in
// selected. An empty selection produces an empty result. Entries with an
// unparsed timestamp are not bucketed.
func Aggregate(entries []*parser.Entry, selected []string, g Granularity) *Result {
	res := &Result{
		Granularity: g,
		Counts:      make(map[Key]int),
	}
	if len(selected) == 0 {
		return res
	}

	want := make(map[string]struct{}, len(selected))
	for _, name := range selected {
		want[name] = struct{}{}
	}

	buckets := make(map[time.Time]struct{})
	loggers := make(map[string]struct{})
	for _, e := range entries {
		if _, ok := want[e.Logger]; !ok {
			continue
		}
		if !e.HasTimestamp() {
			continue
		}

		b := g.Floor(e.Timestamp)
		res.Counts[Key{Bucket: b, Logger: e.Logger}]++
		buckets[b] = struct{}{}
		loggers[e.Logger] = struct{}{}
	}

	for b := range buckets {
		res.Buckets = append(res.Buckets, b)
	}
	slices.SortFunc(res.Buckets, time.Time.Compare)

	for name := range loggers {
		res.Loggers = append(res.Loggers, name)
	}
	slices.Sort(res.Loggers)

	return res
}
