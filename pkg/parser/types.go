// Package parser turns application log text into structured entries.
package parser

import (
	"fmt"
	"strings"
	"time"
)

// Level is the severity token of a log record.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelDebug Level = "DEBUG"
)

// Levels lists every recognised level in display order.
var Levels = []Level{LevelInfo, LevelWarn, LevelError, LevelDebug}

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	switch l {
	case LevelInfo, LevelWarn, LevelError, LevelDebug:
		return l, nil
	default:
		return "", fmt.Errorf("unknown level %q (must be INFO, WARN, ERROR or DEBUG)", s)
	}
}

// Entry is one parsed log record.
// Entries are never modified once the parser has emitted them.
type Entry struct {
	// Timestamp is the parsed record time, or Unparsed when the raw text
	// could not be parsed.
	Timestamp time.Time `json:"timestamp"`

	// RawTimestamp is the timestamp text exactly as it appeared in the file.
	RawTimestamp string `json:"raw_timestamp"`

	// Level is the record severity.
	Level Level `json:"level"`

	// Logger names the emitting component (the bracketed token).
	Logger string `json:"logger"`

	// Message is the record body; continuation lines are joined with "\n".
	Message string `json:"message"`

	// Source is the file or archive member the record came from.
	Source string `json:"source"`

	// LineNum is the 1-based line number of the record start in Source.
	LineNum int `json:"line_num"`
}

// HasTimestamp reports whether the raw timestamp parsed successfully.
func (e *Entry) HasTimestamp() bool {
	return !IsUnparsed(e.Timestamp)
}

// Line reconstructs the record as "raw_timestamp LEVEL [logger] message".
func (e *Entry) Line() string {
	return fmt.Sprintf("%s %s [%s] %s", e.RawTimestamp, e.Level, e.Logger, e.Message)
}
