package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/loglens/pkg/loader"
	"github.com/ccollicutt/loglens/pkg/parser"
	"github.com/ccollicutt/loglens/pkg/session"
	"github.com/ccollicutt/loglens/pkg/timeline"
)

const sample = `2024-01-01 10:00:00 INFO [web.Server] request served
2024-01-01 10:01:00 ERROR [db.Pool] connection refused
2024-01-01 11:02:00 WARN [db.Pool] slow query
2024-01-01 12:03:00 DEBUG [web.Server] headers parsed
`

func loadedSession(t *testing.T) *session.Session {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	sess := session.New()
	job, err := sess.Load(context.Background(), loader.Request{Path: path})
	require.NoError(t, err)
	require.NoError(t, job.Wait())
	return sess
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_ToggleLevel(t *testing.T) {
	sess := loadedSession(t)
	m := NewModel(sess, "app.log", time.Millisecond)

	m.Update(key("3"))
	assert.False(t, sess.State().Levels[parser.LevelError])
	assert.Len(t, sess.Visible().Entries, 3)

	m.Update(key("3"))
	assert.True(t, sess.State().Levels[parser.LevelError])
	assert.Len(t, sess.Visible().Entries, 4)
}

func TestModel_OnlyLevel(t *testing.T) {
	sess := loadedSession(t)
	m := NewModel(sess, "app.log", time.Millisecond)

	m.Update(key("@"))
	vis := sess.Visible()
	require.Len(t, vis.Entries, 1)
	assert.Equal(t, parser.LevelWarn, vis.Entries[0].Level)

	m.Update(key("r"))
	assert.Len(t, sess.Visible().Entries, 4)
}

func TestModel_DebouncedSearch(t *testing.T) {
	sess := loadedSession(t)
	m := NewModel(sess, "app.log", time.Hour)

	m.Update(key("/"))
	require.True(t, m.search.Focused())

	_, cmd := m.Update(key("refused"))
	assert.NotNil(t, cmd)
	assert.Equal(t, "", sess.State().Search, "search applies only after the debounce")

	m.Update(searchMsg{seq: m.seq - 1, text: "stale"})
	assert.Equal(t, "", sess.State().Search)

	m.Update(searchMsg{seq: m.seq, text: "refused"})
	assert.Equal(t, "refused", sess.State().Search)
	vis := sess.Visible()
	require.Len(t, vis.Entries, 1)
	assert.Equal(t, "db.Pool", vis.Entries[0].Logger)

	// keys go to the input while it is focused
	m.Update(key("1"))
	assert.True(t, sess.State().Levels[parser.LevelInfo])

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.search.Focused())
}

func TestModel_EnterAppliesImmediately(t *testing.T) {
	sess := loadedSession(t)
	m := NewModel(sess, "app.log", time.Hour)

	m.Update(key("/"))
	m.Update(key("slow"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "slow", sess.State().Search)
	assert.Len(t, sess.Visible().Entries, 1)
}

func TestModel_GranularityCycle(t *testing.T) {
	sess := loadedSession(t)
	m := NewModel(sess, "app.log", time.Millisecond)

	require.Equal(t, timeline.Hour, sess.Granularity())
	m.Update(key("g"))
	assert.Equal(t, timeline.Hour.Next(), sess.Granularity())
}

func TestModel_TopAndAllLoggers(t *testing.T) {
	sess := loadedSession(t)
	m := NewModel(sess, "app.log", time.Millisecond)

	m.Update(key("t"))
	assert.ElementsMatch(t, []string{"db.Pool", "web.Server"}, sess.SelectedLoggers())

	m.Update(key("a"))
	assert.Nil(t, sess.State().Loggers)
}

func TestModel_BucketWindow(t *testing.T) {
	sess := loadedSession(t)
	m := NewModel(sess, "app.log", time.Millisecond)
	hour := func(h int) time.Time { return time.Date(2024, 1, 1, h, 0, 0, 0, time.UTC) }

	// without a cursor the latest bucket is selected
	m.Update(key("w"))
	require.NotNil(t, sess.State().Window)
	assert.Equal(t, hour(12), sess.State().Window.Start)
	assert.Equal(t, hour(13), sess.State().Window.End)
	require.Len(t, sess.Visible().Entries, 1)
	assert.Equal(t, "headers parsed", sess.Visible().Entries[0].Message)

	m.Update(key("["))
	m.Update(key("w"))
	assert.Equal(t, hour(11), sess.State().Window.Start)
	assert.Contains(t, m.View(), "window 2024-01-01 11:00 to 2024-01-01 12:00")

	m.Update(key("["))
	m.Update(key("["))
	assert.Equal(t, 0, m.cursor, "the cursor stops at the first bucket")
	m.Update(key("w"))
	assert.Len(t, sess.Visible().Entries, 2)

	m.Update(key("]"))
	m.Update(key("]"))
	m.Update(key("]"))
	assert.Equal(t, 2, m.cursor, "the cursor stops at the last bucket")

	m.Update(key("W"))
	assert.Nil(t, sess.State().Window)
	assert.Len(t, sess.Visible().Entries, 4)

	m.Update(key("g"))
	assert.Equal(t, -1, m.cursor, "a new granularity drops the cursor")
}

func TestModel_View(t *testing.T) {
	sess := loadedSession(t)
	m := NewModel(sess, "app.log", time.Millisecond)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	view := m.View()
	assert.Contains(t, view, "LogLens app.log")
	assert.Contains(t, view, "4 of 4 entries")
	assert.Contains(t, view, "connection refused")
	assert.Len(t, []rune(m.strip()), 3, "one cell per hour bucket")
}
