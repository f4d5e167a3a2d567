package timeline

import (
	"slices"
	"strings"
	"sync"

	"github.com/ccollicutt/loglens/pkg/parser"
)

// Engine caches the most recent aggregation. The cache is reused while the
// logger selection, granularity and entry collection are unchanged.
type Engine struct {
	mu      sync.Mutex
	entries []*parser.Entry

	cacheKey string
	cached   *Result

	computations int
}

// NewEngine creates an engine over entries.
func NewEngine(entries []*parser.Entry) *Engine {
	return &Engine{entries: entries}
}

// Invalidate drops the cached result.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cacheKey = ""
	e.cached = nil
}

// Get returns the aggregation for selected and g, computing it only when
// the cache does not already hold it. The returned result must not be
// modified.
func (e *Engine) Get(selected []string, g Granularity) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := cacheKey(selected, g)
	if e.cached != nil && e.cacheKey == key {
		return e.cached
	}

	e.cached = Aggregate(e.entries, selected, g)
	e.cacheKey = key
	e.computations++
	return e.cached
}

// Computations returns how many times Get had to aggregate.
func (e *Engine) Computations() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.computations
}

// cacheKey is independent of the order of selected.
func cacheKey(selected []string, g Granularity) string {
	names := slices.Clone(selected)
	slices.Sort(names)
	names = slices.Compact(names)

	var b strings.Builder
	b.WriteString(string(g))
	for _, name := range names {
		b.WriteByte(0)
		b.WriteString(name)
	}
	return b.String()
}
