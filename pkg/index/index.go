// Package index provides the in-memory full-text index over entry messages.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode"

	_ "modernc.org/sqlite"

	"github.com/ccollicutt/loglens/pkg/parser"
)

// Every connection to :memory: opens its own private database.
const dsn = ":memory:"

// Porter stemming over Unicode word boundaries with Unicode case folding.
// The FTS4 fallback keeps the folding but loses stemming.
var schemas = []struct {
	module string
	stmt   string
}{
	{"fts5", `CREATE VIRTUAL TABLE log_index USING fts5(message, tokenize='porter unicode61')`},
	{"fts4", `CREATE VIRTUAL TABLE log_index USING fts4(message, tokenize=unicode61)`},
}

// Index is a full-text index keyed by row-id, the position of an entry in
// the chronological collection it was built from.
type Index struct {
	db     *sql.DB
	module string
	size   int
	closed atomic.Bool
}

// Build indexes the message of every entry. An empty collection yields an
// index that answers every query with an empty result.
func Build(ctx context.Context, entries []*parser.Entry) (*Index, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	// A second connection would see a different in-memory database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	idx := &Index{db: db}
	if err := idx.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := idx.insert(ctx, entries); err != nil {
		_ = db.Close()
		return nil, err
	}
	idx.size = len(entries)

	return idx, nil
}

func (x *Index) createTable(ctx context.Context) error {
	var lastErr error
	for _, schema := range schemas {
		if _, err := x.db.ExecContext(ctx, schema.stmt); err != nil {
			lastErr = err
			continue
		}
		x.module = schema.module
		return nil
	}
	return fmt.Errorf("creating full-text table: %w", lastErr)
}

func (x *Index) insert(ctx context.Context, entries []*parser.Entry) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting index transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO log_index (rowid, message) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing index insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		// Stored one-based.
		if _, err := stmt.ExecContext(ctx, i+1, e.Message); err != nil {
			return fmt.Errorf("indexing entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	return nil
}

// Query returns the row-ids of entries whose message matches every term of
// text. A blank query, or one with no searchable terms, matches nothing.
// A nil Index matches nothing.
func (x *Index) Query(ctx context.Context, text string) (map[int]struct{}, error) {
	hits := make(map[int]struct{})
	if x == nil {
		return hits, nil
	}

	expr := matchExpression(text)
	if expr == "" || x.size == 0 {
		return hits, nil
	}

	rows, err := x.db.QueryContext(ctx, `SELECT rowid FROM log_index WHERE log_index MATCH ?`, expr)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rowid int
		if err := rows.Scan(&rowid); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		hits[rowid-1] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading index rows: %w", err)
	}

	return hits, nil
}

// matchExpression quotes each whitespace-separated term as a phrase so
// that user text is never interpreted as query syntax. Terms are
// implicitly ANDed.
func matchExpression(text string) string {
	var terms []string
	for _, field := range strings.Fields(text) {
		if !strings.ContainsFunc(field, isWordRune) {
			continue
		}
		// Quotes are punctuation to the tokenizer anyway.
		terms = append(terms, `"`+strings.ReplaceAll(field, `"`, " ")+`"`)
	}
	return strings.Join(terms, " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Len returns the number of indexed entries.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return x.size
}

// Module returns the SQLite full-text module in use (fts5 or fts4).
func (x *Index) Module() string {
	if x == nil {
		return ""
	}
	return x.module
}

// Close releases the underlying database. It is safe to call more than once.
func (x *Index) Close() error {
	if x == nil || !x.closed.CompareAndSwap(false, true) {
		return nil
	}
	return x.db.Close()
}
