// Package session owns the current dataset and the filter state applied
// to it. Loads run on a background goroutine; filtering, aggregation and
// search run synchronously on the caller's goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ccollicutt/loglens/pkg/filter"
	"github.com/ccollicutt/loglens/pkg/index"
	"github.com/ccollicutt/loglens/pkg/loader"
	"github.com/ccollicutt/loglens/pkg/parser"
	"github.com/ccollicutt/loglens/pkg/stats"
	"github.com/ccollicutt/loglens/pkg/timeline"
)

var (
	// ErrLoadInProgress is returned by Load while another load is running.
	ErrLoadInProgress = errors.New("a load is already in progress")

	// ErrCancelled is returned by Job.Wait for a cancelled load.
	ErrCancelled = errors.New("load cancelled")
)

// EventType classifies load notifications.
type EventType string

const (
	EventProgress  EventType = "progress"
	EventDone      EventType = "done"
	EventFailed    EventType = "failed"
	EventCancelled EventType = "cancelled"
)

// Event is a load notification delivered to the notify callback.
type Event struct {
	Type     EventType
	Source   string
	Progress loader.Progress
	Entries  int
	Failures []loader.MemberFailure
	Err      error
}

// Job tracks one background load.
type Job struct {
	done chan struct{}
	err  error
}

// Done is closed when the load has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the load finishes. It returns nil when a dataset was
// installed, ErrCancelled when the load was cancelled, or the fatal load
// error.
func (j *Job) Wait() error {
	<-j.done
	return j.err
}

// Session holds one dataset and its filter state.
type Session struct {
	logger  zerolog.Logger
	notify  func(Event)
	loadFn  func(ctx context.Context, req loader.Request) (*loader.Result, error)
	loadOps []loader.Option

	granularityOverride timeline.Granularity

	mu          sync.Mutex
	data        *dataset
	state       filter.State
	visible     filter.Visible
	granularity timeline.Granularity
	cancel      context.CancelFunc
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the diagnostic logger, also passed to the loader.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithNotify registers a callback for load events. It is called from the
// loading goroutine without the session lock held.
func WithNotify(fn func(Event)) Option {
	return func(s *Session) {
		s.notify = fn
	}
}

// WithLoaderOptions configures the loader used by Load.
func WithLoaderOptions(opts ...loader.Option) Option {
	return func(s *Session) {
		s.loadOps = append(s.loadOps, opts...)
	}
}

// WithGranularity fixes the granularity chosen after each load instead of
// picking one from the source type.
func WithGranularity(g timeline.Granularity) Option {
	return func(s *Session) {
		s.granularityOverride = g
	}
}

// New creates a session with an empty dataset.
func New(opts ...Option) *Session {
	s := &Session{
		logger:      zerolog.Nop(),
		data:        emptyDataset(),
		state:       filter.NewState(),
		granularity: timeline.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}

	ld := loader.New(append(slices.Clone(s.loadOps),
		loader.WithLogger(s.logger),
		loader.WithProgress(func(p loader.Progress) {
			s.emit(Event{Type: EventProgress, Progress: p})
		}),
	)...)
	s.loadFn = ld.Load

	if s.granularityOverride != "" {
		s.granularity = s.granularityOverride
	}
	s.recompute()
	return s
}

// Load starts loading req in the background. Only one load may run at a
// time; a second call fails with ErrLoadInProgress rather than queueing.
func (s *Session) Load(ctx context.Context, req loader.Request) (*Job, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil, ErrLoadInProgress
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	job := &Job{done: make(chan struct{})}
	go func() {
		defer close(job.done)
		defer cancel()
		job.err = s.run(ctx, req)
	}()
	return job, nil
}

// Loading reports whether a load is running.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Cancel stops the running load, if any. It reports whether there was one.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

func (s *Session) run(ctx context.Context, req loader.Request) error {
	source := req.Name()
	start := time.Now()
	log := s.logger.With().Str("source", source).Logger()
	log.Info().Msg("load started")

	res, err := s.loadFn(ctx, req)
	if err == nil && !res.Cancelled && ctx.Err() == nil {
		var data *dataset
		data, err = s.build(ctx, source, res)
		if err == nil {
			s.install(data)
			log.Info().
				Str("dataset", data.id.String()).
				Int("entries", len(data.entries)).
				Int("failures", len(data.failures)).
				Dur("duration", time.Since(start)).
				Msg("load finished")
			s.emit(Event{Type: EventDone, Source: source, Entries: len(data.entries), Failures: data.failures})
			return nil
		}
	}

	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.install(emptyDataset())
		log.Info().Msg("load cancelled")
		s.emit(Event{Type: EventCancelled, Source: source})
		return ErrCancelled
	}

	s.release()
	log.Error().Err(err).Msg("load failed")
	s.emit(Event{Type: EventFailed, Source: source, Err: err})
	return fmt.Errorf("loading %s: %w", source, err)
}

// build merges the per-source entries and indexes them. Index failures
// degrade to a dataset without search.
func (s *Session) build(ctx context.Context, source string, res *loader.Result) (*dataset, error) {
	entries := parser.Merge(res.PerSource)

	idx, err := index.Build(ctx, entries)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn().Err(err).Str("source", source).Msg("full-text index unavailable")
		idx = nil
	}
	if ctx.Err() != nil {
		_ = idx.Close()
		return nil, ctx.Err()
	}

	return newDataset(source, res, entries, idx), nil
}

// install swaps in data, resets the filter state and ends the running load.
func (s *Session) install(data *dataset) {
	s.mu.Lock()
	old := s.data
	s.data = data
	s.state = filter.NewState()
	s.granularity = s.defaultGranularity(data.kind)
	s.recompute()
	s.cancel = nil
	s.mu.Unlock()

	if old != data {
		old.close()
	}
}

// release ends the running load without touching the dataset.
func (s *Session) release() {
	s.mu.Lock()
	s.cancel = nil
	s.mu.Unlock()
}

func (s *Session) defaultGranularity(kind loader.SourceKind) timeline.Granularity {
	if s.granularityOverride != "" {
		return s.granularityOverride
	}
	if kind == loader.KindArchive {
		return timeline.Day
	}
	return timeline.Hour
}

func (s *Session) emit(ev Event) {
	if s.notify != nil {
		s.notify(ev)
	}
}

// recompute refreshes the visible subset. Callers hold s.mu.
func (s *Session) recompute() {
	s.visible = filter.ComputeVisible(context.Background(), s.data.entries, s.state, s.data.searcher())
	if s.visible.SearchErr != nil {
		s.logger.Warn().Err(s.visible.SearchErr).Str("search", s.state.Search).Msg("search unavailable")
	}
}

// Apply replaces the whole filter state and recomputes the visible subset
// once.
func (s *Session) Apply(state filter.State) filter.Visible {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.recompute()
	return s.visible
}

// Reset restores the "everything selected" filter state.
func (s *Session) Reset() filter.Visible {
	return s.Apply(filter.NewState())
}

// SelectOnlyLevel selects level and deselects every other level.
func (s *Session) SelectOnlyLevel(level parser.Level) filter.Visible {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state.Clone()
	state.Levels = map[parser.Level]bool{level: true}
	s.state = state
	s.recompute()
	return s.visible
}

// Visible returns the current visible subset.
func (s *Session) Visible() filter.Visible {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// State returns a copy of the current filter state.
func (s *Session) State() filter.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Entries returns the full chronological entry collection.
func (s *Session) Entries() []*parser.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.entries
}

// Loggers returns the distinct loggers of the dataset, sorted.
func (s *Session) Loggers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.loggers
}

// SelectedLoggers returns the loggers selected by the filter state, sorted.
func (s *Session) SelectedLoggers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Loggers == nil {
		return s.data.loggers
	}
	var names []string
	for _, name := range s.data.loggers {
		if s.state.Loggers[name] {
			names = append(names, name)
		}
	}
	return names
}

// Granularity returns the current timeline granularity.
func (s *Session) Granularity() timeline.Granularity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granularity
}

// SetGranularity changes the timeline granularity.
func (s *Session) SetGranularity(g timeline.Granularity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granularity = g
}

// Timeline returns the aggregation of the dataset for loggers at g, served
// from the dataset's cache when possible.
func (s *Session) Timeline(loggers []string, g timeline.Granularity) *timeline.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.engine.Get(loggers, g)
}

// LoggerCounts counts entries per logger at the selected levels, keeping
// loggers whose name contains substr.
func (s *Session) LoggerCounts(substr string) []stats.LoggerCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stats.LoggerCounts(s.data.entries, s.state.Levels, substr)
}

// TopLoggers returns the n loggers with the most entries at the selected
// levels.
func (s *Session) TopLoggers(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stats.TopLoggers(s.data.entries, s.state.Levels, n)
}
