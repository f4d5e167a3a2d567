package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/ccollicutt/loglens/pkg/filter"
	"github.com/ccollicutt/loglens/pkg/index"
	"github.com/ccollicutt/loglens/pkg/loader"
	"github.com/ccollicutt/loglens/pkg/parser"
	"github.com/ccollicutt/loglens/pkg/timeline"
)

// dataset is everything derived from one successful load. It is replaced
// as a whole, never updated in place.
type dataset struct {
	id       uuid.UUID
	source   string
	kind     loader.SourceKind
	loadedAt time.Time

	entries  []*parser.Entry
	loggers  []string
	failures []loader.MemberFailure

	// index is nil when building it failed.
	index  *index.Index
	engine *timeline.Engine
}

func emptyDataset() *dataset {
	return &dataset{
		id:     uuid.Nil,
		engine: timeline.NewEngine(nil),
	}
}

func newDataset(source string, res *loader.Result, entries []*parser.Entry, idx *index.Index) *dataset {
	return &dataset{
		id:       uuid.New(),
		source:   source,
		kind:     res.Kind,
		loadedAt: time.Now(),
		entries:  entries,
		loggers:  parser.Loggers(entries),
		failures: res.Failures,
		index:    idx,
		engine:   timeline.NewEngine(entries),
	}
}

// searcher returns the index as a filter.Searcher, or an untyped nil when
// there is none.
func (d *dataset) searcher() filter.Searcher {
	if d.index == nil {
		return nil
	}
	return d.index
}

// close releases the index and the cached aggregation of a replaced
// dataset.
func (d *dataset) close() {
	if d.index != nil {
		_ = d.index.Close()
	}
	d.engine.Invalidate()
}
