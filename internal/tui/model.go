// Package tui implements the interactive terminal explorer.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ccollicutt/loglens/pkg/filter"
	"github.com/ccollicutt/loglens/pkg/parser"
	"github.com/ccollicutt/loglens/pkg/session"
	"github.com/ccollicutt/loglens/pkg/timeline"
)

// maxRows caps how many visible entries are rendered into the viewport.
const maxRows = 5000

const topLoggers = 10

var sparks = []rune("▁▂▃▄▅▆▇█")

// searchMsg fires when the search input has been idle for the debounce
// interval. Only the message carrying the latest seq is applied.
type searchMsg struct {
	seq  int
	text string
}

type styles struct {
	header  lipgloss.Style
	status  lipgloss.Style
	off     lipgloss.Style
	strip   lipgloss.Style
	warning lipgloss.Style
	cursor  lipgloss.Style
}

func newStyles() styles {
	return styles{
		header:  lipgloss.NewStyle().Bold(true),
		status:  lipgloss.NewStyle().Faint(true),
		off:     lipgloss.NewStyle().Strikethrough(true).Faint(true),
		strip:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		cursor:  lipgloss.NewStyle().Reverse(true),
	}
}

// Model is the bubbletea model of the explorer.
type Model struct {
	sess     *session.Session
	debounce time.Duration
	title    string

	search   textinput.Model
	viewport viewport.Model
	styles   styles

	width  int
	height int
	seq    int

	// cursor is the timeline bucket picked with [ and ]; -1 means the
	// latest bucket.
	cursor int
}

// NewModel creates an explorer over the session's current dataset.
func NewModel(sess *session.Session, title string, debounce time.Duration) *Model {
	in := textinput.New()
	in.Prompt = "/"
	in.Placeholder = "search"
	in.CharLimit = 256

	m := &Model{
		sess:     sess,
		debounce: debounce,
		title:    title,
		search:   in,
		viewport: viewport.New(80, 20),
		styles:   newStyles(),
		cursor:   -1,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-6, 1)
		m.refresh()
		return m, nil

	case searchMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.applySearch(msg.text)
		return m, nil

	case tea.KeyMsg:
		if m.search.Focused() {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.search.Blur()
		return m, nil
	case "enter":
		m.search.Blur()
		m.seq++
		m.applySearch(m.search.Value())
		return m, nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}

	m.seq++
	seq, text := m.seq, m.search.Value()
	return m, tea.Batch(cmd, tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return searchMsg{seq: seq, text: text}
	}))
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/":
		return m, m.search.Focus()
	case "1", "2", "3", "4":
		m.toggleLevel(parser.Levels[key[0]-'1'])
	case "!", "@", "#", "$":
		m.sess.SelectOnlyLevel(parser.Levels[strings.Index("!@#$", key)])
		m.refresh()
	case "g":
		m.sess.SetGranularity(m.sess.Granularity().Next())
		m.cursor = -1
		m.refresh()
	case "[":
		m.moveCursor(-1)
	case "]":
		m.moveCursor(1)
	case "w":
		m.selectBucket()
	case "W":
		state := m.sess.State()
		state.Window = nil
		m.sess.Apply(state)
		m.refresh()
	case "t":
		m.selectLoggers(m.sess.TopLoggers(topLoggers))
	case "a":
		state := m.sess.State()
		state.Loggers = nil
		m.sess.Apply(state)
		m.refresh()
	case "r":
		m.search.SetValue("")
		m.seq++
		m.cursor = -1
		m.sess.Reset()
		m.refresh()
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// aggregation returns the timeline shown in the strip.
func (m *Model) aggregation() *timeline.Result {
	return m.sess.Timeline(m.sess.SelectedLoggers(), m.sess.Granularity())
}

// cursorIndex resolves the cursor against buckets, or -1 when there are
// none.
func (m *Model) cursorIndex(buckets []time.Time) int {
	if m.cursor < 0 || m.cursor >= len(buckets) {
		return len(buckets) - 1
	}
	return m.cursor
}

func (m *Model) moveCursor(delta int) {
	buckets := m.aggregation().Buckets
	if len(buckets) == 0 {
		return
	}
	m.cursor = min(max(m.cursorIndex(buckets)+delta, 0), len(buckets)-1)
}

// selectBucket restricts the visible entries to the bucket under the
// cursor.
func (m *Model) selectBucket() {
	res := m.aggregation()
	i := m.cursorIndex(res.Buckets)
	if i < 0 {
		return
	}
	start, end := res.Window(res.Buckets[i])

	state := m.sess.State()
	state.Window = &filter.Window{Start: start, End: end}
	m.sess.Apply(state)
	m.refresh()
}

func (m *Model) toggleLevel(level parser.Level) {
	state := m.sess.State()
	state.Levels[level] = !state.Levels[level]
	m.sess.Apply(state)
	m.refresh()
}

func (m *Model) selectLoggers(names []string) {
	state := m.sess.State()
	state.Loggers = make(map[string]bool, len(names))
	for _, name := range names {
		state.Loggers[name] = true
	}
	m.sess.Apply(state)
	m.refresh()
}

func (m *Model) applySearch(text string) {
	state := m.sess.State()
	state.Search = text
	m.sess.Apply(state)
	m.refresh()
}

// refresh re-renders the viewport from the session's visible subset.
func (m *Model) refresh() {
	vis := m.sess.Visible()
	rows := vis.Entries
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	var b strings.Builder
	for i, e := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Line())
	}
	m.viewport.SetContent(b.String())
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	vis := m.sess.Visible()
	state := m.sess.State()

	b.WriteString(m.styles.header.Render("LogLens " + m.title))
	b.WriteByte('\n')
	b.WriteString(m.levelBar(state))
	b.WriteString(m.styles.status.Render(fmt.Sprintf("  %d of %d entries  %d loggers  [%s]",
		len(vis.Entries), len(m.sess.Entries()), len(m.sess.SelectedLoggers()), m.sess.Granularity())))
	if w := state.Window; w != nil {
		layout := m.sess.Granularity().Layout()
		b.WriteString(m.styles.status.Render(fmt.Sprintf("  window %s to %s",
			w.Start.Format(layout), w.End.Format(layout))))
	}
	b.WriteByte('\n')
	b.WriteString(m.styles.strip.Render(m.strip()))
	b.WriteByte('\n')
	b.WriteString(m.search.View())
	if vis.SearchErr != nil {
		b.WriteString(m.styles.warning.Render("  search unavailable"))
	}
	b.WriteByte('\n')
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')
	b.WriteString(m.styles.status.Render("1-4 levels  !@#$ only  / search  g granularity  [ ] bucket  w window  W clear  t top  a all  r reset  q quit"))
	return b.String()
}

func (m *Model) levelBar(state filter.State) string {
	parts := make([]string, 0, len(parser.Levels))
	for i, l := range parser.Levels {
		label := fmt.Sprintf("%d:%s", i+1, l)
		if !state.Levels[l] {
			label = m.styles.off.Render(label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, " ")
}

// strip renders the timeline of the selected loggers as one row of
// sparkline cells. The cells that fit end at the latest bucket, or at the
// cursor when it lies further back. The cursor cell is highlighted.
func (m *Model) strip() string {
	res := m.aggregation()
	if res.Empty() {
		return "no timeline"
	}

	buckets := res.Buckets
	cursor := m.cursorIndex(buckets)
	if width := max(m.width, 20); len(buckets) > width {
		end := max(cursor+1, width)
		buckets = buckets[end-width : end]
		cursor -= end - width
	}

	peak := 0
	for _, b := range buckets {
		peak = max(peak, res.BucketTotal(b))
	}
	if peak == 0 {
		return "no timeline"
	}

	var out strings.Builder
	for i, b := range buckets {
		cell := string(sparks[res.BucketTotal(b)*(len(sparks)-1)/peak])
		if i == cursor && m.cursor >= 0 {
			cell = m.styles.cursor.Render(cell)
		}
		out.WriteString(cell)
	}
	return out.String()
}

var _ tea.Model = (*Model)(nil)
