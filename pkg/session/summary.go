package session

import (
	"time"

	"github.com/ccollicutt/loglens/pkg/loader"
	"github.com/ccollicutt/loglens/pkg/stats"
)

// Summary describes the current dataset.
type Summary struct {
	Dataset  string                 `json:"dataset"`
	Source   string                 `json:"source"`
	Kind     loader.SourceKind      `json:"kind"`
	LoadedAt time.Time              `json:"loaded_at"`
	Indexed  bool                   `json:"indexed"`
	Failures []loader.MemberFailure `json:"failures"`

	*stats.Summary
}

// Summary computes statistics over the whole dataset.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	d := s.data
	s.mu.Unlock()

	return Summary{
		Dataset:  d.id.String(),
		Source:   d.source,
		Kind:     d.kind,
		LoadedAt: d.loadedAt,
		Indexed:  d.index != nil,
		Failures: d.failures,
		Summary:  stats.Summarize(d.entries),
	}
}

// Failures returns the member failures of the last successful load.
func (s *Session) Failures() []loader.MemberFailure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.failures
}
