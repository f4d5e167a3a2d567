package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/loglens/pkg/filter"
	"github.com/ccollicutt/loglens/pkg/loader"
	"github.com/ccollicutt/loglens/pkg/parser"
	"github.com/ccollicutt/loglens/pkg/timeline"
)

const sampleLog = "2024-01-01 10:05:00 ERROR [db.Pool] connection refused\n" +
	"  at db.Pool.acquire()\n" +
	"2024-01-01 10:40:00 INFO [web.Server] request served\n" +
	"2024-01-01 11:10:00 WARN [db.Pool] slow query\n" +
	"2024-01-01 11:20:00 DEBUG [web.Server] headers parsed\n"

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func loadAndWait(t *testing.T, s *Session, req loader.Request) error {
	t.Helper()
	job, err := s.Load(context.Background(), req)
	require.NoError(t, err)

	select {
	case <-job.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("load did not finish")
	}
	return job.Wait()
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventType
	for _, ev := range r.events {
		if ev.Type != EventProgress {
			out = append(out, ev.Type)
		}
	}
	return out
}

func TestSession_LoadFile(t *testing.T) {
	rec := &recorder{}
	s := New(WithNotify(rec.record))

	require.NoError(t, loadAndWait(t, s, loader.Request{Path: writeLog(t, sampleLog)}))

	assert.Len(t, s.Entries(), 4)
	assert.Equal(t, []string{"db.Pool", "web.Server"}, s.Loggers())
	assert.Equal(t, timeline.Hour, s.Granularity())
	assert.False(t, s.Loading())

	v := s.Visible()
	assert.Len(t, v.Entries, 4)
	assert.False(t, v.Filtered)

	assert.Equal(t, []EventType{EventDone}, rec.types())
}

func TestSession_LoadArchiveUsesDayGranularity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("app-2024-01-01.log")
	require.NoError(t, err)
	_, err = w.Write([]byte(sampleLog))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	s := New()
	require.NoError(t, loadAndWait(t, s, loader.Request{Path: path}))

	assert.Equal(t, timeline.Day, s.Granularity())
	sum := s.Summary()
	assert.Equal(t, loader.KindArchive, sum.Kind)
	assert.Equal(t, 4, sum.Total)
}

func TestSession_GranularityOverride(t *testing.T) {
	s := New(WithGranularity(timeline.Minute))
	require.NoError(t, loadAndWait(t, s, loader.Request{Path: writeLog(t, sampleLog)}))
	assert.Equal(t, timeline.Minute, s.Granularity())
}

func TestSession_SecondLoadRejected(t *testing.T) {
	s := New()
	release := make(chan struct{})
	started := make(chan struct{})
	s.loadFn = func(ctx context.Context, req loader.Request) (*loader.Result, error) {
		close(started)
		<-release
		return &loader.Result{Kind: loader.KindFile}, nil
	}

	job, err := s.Load(context.Background(), loader.Request{Path: "first.log"})
	require.NoError(t, err)
	<-started
	assert.True(t, s.Loading())

	_, err = s.Load(context.Background(), loader.Request{Path: "second.log"})
	assert.ErrorIs(t, err, ErrLoadInProgress)

	close(release)
	require.NoError(t, job.Wait())

	// Once finished a new load is accepted.
	s.loadFn = func(ctx context.Context, req loader.Request) (*loader.Result, error) {
		return &loader.Result{Kind: loader.KindFile}, nil
	}
	require.NoError(t, loadAndWait(t, s, loader.Request{Path: "third.log"}))
}

func TestSession_CancelFallsBackToEmpty(t *testing.T) {
	rec := &recorder{}
	s := New(WithNotify(rec.record))
	require.NoError(t, loadAndWait(t, s, loader.Request{Path: writeLog(t, sampleLog)}))
	require.NotEmpty(t, s.Entries())

	started := make(chan struct{})
	s.loadFn = func(ctx context.Context, req loader.Request) (*loader.Result, error) {
		close(started)
		<-ctx.Done()
		return &loader.Result{Cancelled: true}, nil
	}

	job, err := s.Load(context.Background(), loader.Request{Path: "slow.log"})
	require.NoError(t, err)
	<-started
	assert.True(t, s.Cancel())

	assert.ErrorIs(t, job.Wait(), ErrCancelled)
	assert.Empty(t, s.Entries())
	assert.Empty(t, s.Visible().Entries)
	assert.False(t, s.Cancel())
	assert.Equal(t, []EventType{EventDone, EventCancelled}, rec.types())
}

func TestSession_FatalErrorKeepsDataset(t *testing.T) {
	rec := &recorder{}
	s := New(WithNotify(rec.record))
	require.NoError(t, loadAndWait(t, s, loader.Request{Path: writeLog(t, sampleLog)}))
	before := s.Summary().Dataset

	err := loadAndWait(t, s, loader.Request{Path: filepath.Join(t.TempDir(), "missing.log")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.Len(t, s.Entries(), 4)
	assert.Equal(t, before, s.Summary().Dataset)
	assert.False(t, s.Loading())
	assert.Equal(t, []EventType{EventDone, EventFailed}, rec.types())
}

func TestSession_ArchiveErrorIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0644))

	s := New()
	err := loadAndWait(t, s, loader.Request{Path: path})

	var archErr *loader.ArchiveError
	assert.True(t, errors.As(err, &archErr))
	assert.Empty(t, s.Entries())
}

func TestSession_ApplyAndSearch(t *testing.T) {
	s := New()
	require.NoError(t, loadAndWait(t, s, loader.Request{Path: writeLog(t, sampleLog)}))

	state := filter.NewState()
	state.Search = "connections"
	v := s.Apply(state)
	require.Len(t, v.Entries, 1)
	assert.Equal(t, "db.Pool", v.Entries[0].Logger)
	assert.Equal(t, []int{0}, v.Rows)
	assert.NoError(t, v.SearchErr)

	state = filter.NewState()
	state.Loggers = map[string]bool{"db.Pool": true}
	state.Window = &filter.Window{
		Start: time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	v = s.Apply(state)
	require.Len(t, v.Entries, 1)
	assert.Equal(t, "slow query", v.Entries[0].Message)
	assert.Equal(t, []string{"db.Pool"}, s.SelectedLoggers())

	// The caller's state is copied, not shared.
	state.Loggers["web.Server"] = true
	assert.Len(t, s.Visible().Entries, 1)

	v = s.Reset()
	assert.Len(t, v.Entries, 4)
	assert.False(t, v.Filtered)
}

func TestSession_SelectOnlyLevel(t *testing.T) {
	s := New()
	require.NoError(t, loadAndWait(t, s, loader.Request{Path: writeLog(t, sampleLog)}))

	v := s.SelectOnlyLevel(parser.LevelWarn)
	require.Len(t, v.Entries, 1)
	assert.Equal(t, parser.LevelWarn, v.Entries[0].Level)

	assert.Equal(t, []string{"db.Pool"}, s.TopLoggers(5))
	counts := s.LoggerCounts("")
	require.Len(t, counts, 1)
	assert.Equal(t, 1, counts[0].Count)
}

func TestSession_TimelineCache(t *testing.T) {
	s := New()
	require.NoError(t, loadAndWait(t, s, loader.Request{Path: writeLog(t, sampleLog)}))

	first := s.Timeline([]string{"db.Pool"}, timeline.Hour)
	second := s.Timeline([]string{"db.Pool"}, timeline.Hour)
	assert.Same(t, first, second)

	hour := func(h int) time.Time { return time.Date(2024, 1, 1, h, 0, 0, 0, time.UTC) }
	assert.Equal(t, 1, first.Count(hour(10), "db.Pool"))
	assert.Equal(t, 1, first.Count(hour(11), "db.Pool"))

	// A new load replaces the cache along with the entries.
	require.NoError(t, loadAndWait(t, s, loader.Request{Path: writeLog(t, sampleLog)}))
	third := s.Timeline([]string{"db.Pool"}, timeline.Hour)
	assert.NotSame(t, first, third)
	assert.Equal(t, first.Counts, third.Counts)
}

func TestSession_Summary(t *testing.T) {
	s := New()
	empty := s.Summary()
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", empty.Dataset)

	require.NoError(t, loadAndWait(t, s, loader.Request{Path: writeLog(t, sampleLog)}))
	sum := s.Summary()
	assert.NotEqual(t, empty.Dataset, sum.Dataset)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.DistinctLoggers())
	assert.Equal(t, 75*time.Minute, sum.Duration)
	assert.True(t, sum.Indexed)
	assert.Empty(t, sum.Failures)
}

func TestSession_Independent(t *testing.T) {
	a := New()
	b := New()
	require.NoError(t, loadAndWait(t, a, loader.Request{Path: writeLog(t, sampleLog)}))

	assert.Len(t, a.Entries(), 4)
	assert.Empty(t, b.Entries())
	assert.True(t, b.Timeline([]string{"db.Pool"}, timeline.Hour).Empty())
}
