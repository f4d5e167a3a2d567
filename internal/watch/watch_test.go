package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/loglens/pkg/loader"
	"github.com/ccollicutt/loglens/pkg/session"
)

const firstLine = "2024-01-01 10:00:00 INFO [app.Main] started\n"

// busyLoader always has a load running.
type busyLoader struct {
	cancelled atomic.Bool
}

func (*busyLoader) Load(context.Context, loader.Request) (*session.Job, error) {
	return nil, session.ErrLoadInProgress
}

func (b *busyLoader) Cancel() bool {
	b.cancelled.Store(true)
	return true
}

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func runWatcher(t *testing.T, target Loader, req loader.Request) <-chan Outcome {
	t.Helper()
	outcomes := make(chan Outcome, 16)
	w, err := New(target, req, WithHandler(func(o Outcome) { outcomes <- o }))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return outcomes
}

func waitOutcome(t *testing.T, outcomes <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-outcomes:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
		return Outcome{}
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeLog(t, path, firstLine)

	sess := session.New()
	outcomes := runWatcher(t, sess, loader.Request{Path: path})

	tmp := filepath.Join(t.TempDir(), "next.log")
	writeLog(t, tmp, firstLine+"2024-01-01 10:00:05 ERROR [app.Main] failed\n")
	require.NoError(t, os.Rename(tmp, path))

	var o Outcome
	for {
		o = waitOutcome(t, outcomes)
		if !o.Skipped {
			break
		}
	}
	require.NoError(t, o.Err)
	assert.Equal(t, path, o.Path)

	require.Eventually(t, func() bool {
		return !sess.Loading() && len(sess.Entries()) == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_SkipsWhileLoading(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeLog(t, path, firstLine)

	outcomes := runWatcher(t, &busyLoader{}, loader.Request{Path: path})
	writeLog(t, path, firstLine+firstLine)

	o := waitOutcome(t, outcomes)
	assert.True(t, o.Skipped)
	assert.NoError(t, o.Err)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeLog(t, path, firstLine)

	outcomes := runWatcher(t, &busyLoader{}, loader.Request{Path: path})
	writeLog(t, filepath.Join(dir, "other.log"), firstLine)

	select {
	case o := <-outcomes:
		t.Fatalf("unexpected reload for %s", o.Path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_ShutdownCancelsReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeLog(t, path, firstLine)

	target := &busyLoader{}
	w, err := New(target, loader.Request{Path: path})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.True(t, target.cancelled.Load())
}

func TestNew_RequiresPaths(t *testing.T) {
	_, err := New(&busyLoader{}, loader.Request{})
	assert.Error(t, err)
}
