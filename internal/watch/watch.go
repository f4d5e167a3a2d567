// Package watch reloads a session whenever one of its source files changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ccollicutt/loglens/pkg/loader"
	"github.com/ccollicutt/loglens/pkg/session"
)

// Loader starts and cancels background loads. *session.Session implements
// it.
type Loader interface {
	Load(ctx context.Context, req loader.Request) (*session.Job, error)
	Cancel() bool
}

// Outcome reports what happened to one change notification.
type Outcome struct {
	// Path is the file whose change triggered the reload.
	Path string

	// Skipped is set when a load was already running and the reload was
	// rejected.
	Skipped bool

	// Err is the reload error, or nil when a dataset was installed.
	Err error
}

// Watcher monitors the files of one load request.
type Watcher struct {
	fsw     *fsnotify.Watcher
	req     loader.Request
	target  Loader
	logger  zerolog.Logger
	handler func(Outcome)
	files   map[string]bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the diagnostic logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithHandler registers a callback for reload outcomes. It may be called
// from several goroutines at once.
func WithHandler(fn func(Outcome)) Option {
	return func(w *Watcher) {
		w.handler = fn
	}
}

// New creates a Watcher for the files named by req. Parent directories are
// watched so that files replaced by rename are still noticed.
func New(target Loader, req loader.Request, opts ...Option) (*Watcher, error) {
	paths := req.Paths
	if req.Path != "" {
		paths = []string{req.Path}
	}
	if len(paths) == 0 {
		return nil, errors.New("nothing to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fsw:    fsw,
		req:    req,
		target: target,
		logger: zerolog.Nop(),
		files:  make(map[string]bool, len(paths)),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	return w, nil
}

// Files returns the absolute paths being watched.
func (w *Watcher) Files() []string {
	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	return files
}

// Run listens for changes until ctx is cancelled. A reload still running
// at that point is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			if w.target.Cancel() {
				w.logger.Info().Msg("running reload cancelled")
			}
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !w.files[filepath.Clean(ev.Name)] {
				continue
			}
			w.reload(ctx, ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) reload(ctx context.Context, path string) {
	job, err := w.target.Load(ctx, w.req)
	if errors.Is(err, session.ErrLoadInProgress) {
		w.logger.Info().Str("path", path).Msg("reload skipped, load in progress")
		w.report(Outcome{Path: path, Skipped: true})
		return
	}
	if err != nil {
		w.report(Outcome{Path: path, Err: err})
		return
	}

	w.logger.Debug().Str("path", path).Msg("reload started")
	go func() {
		w.report(Outcome{Path: path, Err: job.Wait()})
	}()
}

func (w *Watcher) report(o Outcome) {
	if w.handler != nil {
		w.handler(o)
	}
}
