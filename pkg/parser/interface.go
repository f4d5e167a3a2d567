package parser

import (
	"context"
)

// EntrySource provides an iterator over parsed log entries.
// Implementations must be safe for sequential access (not concurrent).
type EntrySource interface {
	// Next returns the next complete entry.
	// Returns io.EOF when no more entries are available.
	// Lines that do not belong to any entry are skipped.
	Next(ctx context.Context) (*Entry, error)
}
