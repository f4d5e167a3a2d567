// Package loader reads log sources (plain files, gzip files and zip
// archives) and parses them into entries.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ccollicutt/loglens/pkg/parser"
)

// SourceKind identifies what a load read from.
type SourceKind string

const (
	KindFile    SourceKind = "file"
	KindFiles   SourceKind = "files"
	KindArchive SourceKind = "archive"
)

// Stage names a phase of a load in Progress events.
type Stage string

const (
	StageLines   Stage = "lines"
	StageMembers Stage = "members"
)

// Progress is a side-channel notification about a running load.
type Progress struct {
	Stage  Stage
	Detail string
	Done   int
	Total  int
}

// Fraction returns Done/Total, or 0 when the total is unknown.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// Request names what to load. Exactly one of Path or Paths is used.
type Request struct {
	// Path is a single .log, .log.gz or .zip file.
	Path string

	// Paths are several plain or gzip files loaded as one dataset.
	Paths []string

	// Members names the archive members to load. Nil applies the loader's
	// Selection.
	Members []string
}

// Name returns a display name for the request.
func (r Request) Name() string {
	if r.Path != "" {
		return r.Path
	}
	if len(r.Paths) == 1 {
		return r.Paths[0]
	}
	return fmt.Sprintf("%d files", len(r.Paths))
}

// Result is the outcome of a load.
type Result struct {
	Kind SourceKind

	// Sources and PerSource hold the successfully parsed sources in
	// processing order.
	Sources   []string
	PerSource [][]*parser.Entry

	// Encodings holds the encoding chosen for each entry of Sources.
	Encodings []string

	// Failures lists sources that could not be read. They never abort a
	// multi-source load.
	Failures []MemberFailure

	// Cancelled is set when the context ended before the load finished.
	// The result is then partial and should be discarded.
	Cancelled bool
}

// Count returns the number of entries across all sources.
func (r *Result) Count() int {
	n := 0
	for _, entries := range r.PerSource {
		n += len(entries)
	}
	return n
}

func (r *Result) add(source, enc string, entries []*parser.Entry) {
	r.Sources = append(r.Sources, source)
	r.Encodings = append(r.Encodings, enc)
	r.PerSource = append(r.PerSource, entries)
}

// Loader reads sources with a fixed set of options.
type Loader struct {
	encodings      []string
	heartbeatLines int
	selection      Selection
	progress       func(Progress)
	logger         zerolog.Logger
	now            func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithEncodings sets the ordered candidate encodings.
func WithEncodings(names ...string) Option {
	return func(l *Loader) {
		if len(names) > 0 {
			l.encodings = names
		}
	}
}

// WithHeartbeatLines sets how often single-file loads report progress.
func WithHeartbeatLines(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.heartbeatLines = n
		}
	}
}

// WithSelection sets the default archive member selection.
func WithSelection(s Selection) Option {
	return func(l *Loader) {
		l.selection = s
	}
}

// WithProgress registers a progress callback. It is called on the loading
// goroutine.
func WithProgress(fn func(Progress)) Option {
	return func(l *Loader) {
		l.progress = fn
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		encodings:      []string{"utf-8", "utf-8-sig", "latin1", "cp1252"},
		heartbeatLines: parser.DefaultHeartbeatLines,
		selection:      DefaultSelection(),
		logger:         zerolog.Nop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsArchive reports whether path names a zip archive.
func IsArchive(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

// Load dispatches a request to LoadFile, LoadFiles or LoadArchive.
func (l *Loader) Load(ctx context.Context, req Request) (*Result, error) {
	switch {
	case req.Path != "" && IsArchive(req.Path):
		return l.LoadArchive(ctx, req.Path, req.Members)
	case req.Path != "":
		return l.LoadFile(ctx, req.Path)
	case len(req.Paths) == 1 && IsArchive(req.Paths[0]):
		return l.LoadArchive(ctx, req.Paths[0], req.Members)
	case len(req.Paths) == 1:
		return l.LoadFile(ctx, req.Paths[0])
	case len(req.Paths) > 1:
		return l.LoadFiles(ctx, req.Paths)
	default:
		return nil, errors.New("no source to load")
	}
}

// LoadFile loads one plain or gzip-compressed file. Any failure is fatal.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Result, error) {
	res := &Result{Kind: KindFile}

	f, err := os.Open(path) // #nosec G304 -- user-provided log path is expected
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	entries, enc, err := l.parse(ctx, f, path, true)
	if isCancel(err) {
		res.Cancelled = true
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	res.add(path, enc, entries)
	return res, nil
}

// LoadFiles loads several plain or gzip files. A file that cannot be read
// is recorded as a failure and the rest are still loaded.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) (*Result, error) {
	res := &Result{Kind: KindFiles}

	for i, path := range paths {
		if ctx.Err() != nil {
			res.Cancelled = true
			return res, nil
		}

		entries, enc, err := l.loadOne(ctx, path)
		if isCancel(err) {
			res.Cancelled = true
			return res, nil
		}
		if err != nil {
			l.recordFailure(res, &MemberError{Name: path, Err: err})
		} else {
			res.add(path, enc, entries)
		}

		l.emit(Progress{Stage: StageMembers, Detail: path, Done: i + 1, Total: len(paths)})
	}

	return res, nil
}

func (l *Loader) loadOne(ctx context.Context, path string) ([]*parser.Entry, string, error) {
	if IsArchive(path) {
		return nil, "", errors.New("archives cannot be combined with other files")
	}
	f, err := os.Open(path) // #nosec G304 -- user-provided log path is expected
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	return l.parse(ctx, f, path, false)
}

// LoadArchive loads members of the zip archive at path. members names the
// members to load; nil applies the loader's Selection. An unreadable
// archive, or one with nothing to load, fails with *ArchiveError. A member
// that cannot be read is recorded as a failure.
func (l *Loader) LoadArchive(ctx context.Context, path string, members []string) (*Result, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ArchiveError{Path: path, Err: err}
	}
	defer zr.Close()

	res := &Result{Kind: KindArchive}

	files, missing := l.pickMembers(zr.File, members)
	for _, name := range missing {
		l.recordFailure(res, &MemberError{Name: name, Err: errors.New("not found in archive")})
	}
	if len(files) == 0 {
		return nil, &ArchiveError{Path: path, Err: ErrNoMembers}
	}

	l.logger.Debug().Str("archive", path).Int("members", len(files)).Msg("loading archive")

	for i, f := range files {
		if ctx.Err() != nil {
			res.Cancelled = true
			return res, nil
		}

		entries, enc, err := l.loadMember(ctx, f)
		if isCancel(err) {
			res.Cancelled = true
			return res, nil
		}
		if err != nil {
			l.recordFailure(res, &MemberError{Name: f.Name, Err: err})
		} else {
			res.add(f.Name, enc, entries)
		}

		l.emit(Progress{Stage: StageMembers, Detail: f.Name, Done: i + 1, Total: len(files)})
	}

	return res, nil
}

// pickMembers resolves the requested names against the archive, keeping
// archive order. Directories are never picked.
func (l *Loader) pickMembers(files []*zip.File, requested []string) (picked []*zip.File, missing []string) {
	if requested == nil {
		requested = l.selection.Select(l.listMembers(files))
	}

	want := make(map[string]bool, len(requested))
	for _, name := range requested {
		want[name] = true
	}

	found := make(map[string]bool, len(requested))
	for _, f := range files {
		if f.FileInfo().IsDir() || !want[f.Name] || found[f.Name] {
			continue
		}
		found[f.Name] = true
		picked = append(picked, f)
	}

	for _, name := range requested {
		if !found[name] && !strings.HasSuffix(name, "/") {
			missing = append(missing, name)
			found[name] = true
		}
	}
	return picked, missing
}

func (l *Loader) loadMember(ctx context.Context, f *zip.File) ([]*parser.Entry, string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()
	return l.parse(ctx, rc, f.Name, false)
}

// parse decompresses r when name ends in .gz, detects its encoding and
// runs the entry parser over it. It returns the entries and the name of
// the encoding used.
func (l *Loader) parse(ctx context.Context, r io.Reader, name string, heartbeat bool) ([]*parser.Entry, string, error) {
	if strings.EqualFold(filepath.Ext(name), ".gz") {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, "", fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	text, enc, err := decodeReader(r, name, l.encodings)
	if err != nil {
		return nil, "", err
	}
	l.logger.Debug().Str("source", name).Str("encoding", enc).Msg("parsing source")

	var opts []parser.ScannerOption
	if heartbeat && l.progress != nil {
		throttle := rate.Sometimes{First: 1, Interval: 100 * time.Millisecond}
		opts = append(opts, parser.WithHeartbeat(l.heartbeatLines, func(lines int) {
			throttle.Do(func() {
				l.emit(Progress{Stage: StageLines, Detail: name, Done: lines})
			})
		}))
	}

	entries, err := parser.ReadAll(ctx, parser.NewEntryScanner(text, name, opts...))
	if err != nil {
		return nil, "", err
	}
	return entries, enc, nil
}

func (l *Loader) recordFailure(res *Result, err *MemberError) {
	l.logger.Warn().Str("member", err.Name).Err(err.Err).Msg("skipping unreadable source")
	res.Failures = append(res.Failures, failure(err))
}

func (l *Loader) emit(p Progress) {
	if l.progress != nil {
		l.progress(p)
	}
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
