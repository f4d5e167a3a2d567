package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// DefaultHeartbeatLines is how often, in lines, the heartbeat callback fires.
const DefaultHeartbeatLines = 20000

// readBufferSize is the initial read buffer; longer lines grow past it.
const readBufferSize = 64 * 1024

// recordPattern matches a record-start line:
//
//	2024-01-01 10:00:00 ERROR [a.B] message
var recordPattern = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\s+(INFO|WARN|ERROR|DEBUG)\s+\[(.*?)\](?:\s+(.*))?$`,
)

// EntryScanner implements EntrySource over a text stream.
// A record-start line opens an entry; every following line that is not a
// record start is appended to that entry's message.
type EntryScanner struct {
	reader  *bufio.Reader
	eof     bool
	source  string
	lineNum int

	current *pendingEntry

	heartbeatEvery int
	onHeartbeat    func(lines int)
}

// ScannerOption configures an EntryScanner.
type ScannerOption func(*EntryScanner)

// WithHeartbeat calls fn with the number of lines read so far every n lines.
func WithHeartbeat(n int, fn func(lines int)) ScannerOption {
	return func(s *EntryScanner) {
		if n <= 0 || fn == nil {
			return
		}
		s.heartbeatEvery = n
		s.onHeartbeat = fn
	}
}

// NewEntryScanner creates a scanner reading decoded text from r.
// source is recorded on every entry for diagnostics. Physical lines may be
// of any length.
func NewEntryScanner(r io.Reader, source string, opts ...ScannerOption) *EntryScanner {
	s := &EntryScanner{
		reader: bufio.NewReaderSize(r, readBufferSize),
		source: source,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns the next complete entry.
// Returns io.EOF once the input is exhausted and the last entry flushed,
// or ctx.Err() when the context is cancelled.
func (s *EntryScanner) Next(ctx context.Context) (*Entry, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if s.eof {
			if s.current != nil {
				entry := s.current.finish()
				s.current = nil
				return entry, nil
			}
			return nil, io.EOF
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("reading %s: %w", s.source, err)
			}
			// A final line without a terminator still counts.
			s.eof = true
			if line == "" {
				continue
			}
		}

		s.lineNum++
		if s.onHeartbeat != nil && s.lineNum%s.heartbeatEvery == 0 {
			s.onHeartbeat(s.lineNum)
		}

		if entry := s.consume(trimEOL(line)); entry != nil {
			return entry, nil
		}
	}
}

// Lines returns the number of physical lines read so far.
func (s *EntryScanner) Lines() int {
	return s.lineNum
}

// consume feeds one physical line and returns an entry if the line
// completed the previous one.
func (s *EntryScanner) consume(line string) *Entry {
	m := recordPattern.FindStringSubmatch(line)
	if m == nil {
		// Orphan continuation lines before the first record are dropped.
		if s.current != nil {
			s.current.lines = append(s.current.lines, line)
		}
		return nil
	}

	prev := s.current
	s.current = &pendingEntry{
		entry: Entry{
			Timestamp:    ParseTimestamp(m[1]),
			RawTimestamp: m[1],
			Level:        Level(m[2]),
			Logger:       m[3],
			Source:       s.source,
			LineNum:      s.lineNum,
		},
		lines: []string{strings.TrimSpace(m[4])},
	}

	if prev == nil {
		return nil
	}
	return prev.finish()
}

// pendingEntry accumulates message fragments for the entry being built.
type pendingEntry struct {
	entry Entry
	lines []string
}

func (p *pendingEntry) finish() *Entry {
	e := p.entry
	e.Message = strings.Join(p.lines, "\n")
	return &e
}

// Parse parses an in-memory sequence of lines. It never fails: malformed
// lines are either appended to the preceding entry or dropped.
func Parse(lines []string, source string) []*Entry {
	s := &EntryScanner{source: source}

	var entries []*Entry
	for _, line := range lines {
		s.lineNum++
		if entry := s.consume(trimEOL(line)); entry != nil {
			entries = append(entries, entry)
		}
	}
	if s.current != nil {
		entries = append(entries, s.current.finish())
	}
	return entries
}

// ReadAll drains src into a slice.
func ReadAll(ctx context.Context, src EntrySource) ([]*Entry, error) {
	var entries []*Entry
	for {
		entry, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
}

// trimEOL strips one trailing line terminator, leaving other whitespace.
func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
