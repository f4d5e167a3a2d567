package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ccollicutt/loglens/pkg/parser"
	"github.com/ccollicutt/loglens/pkg/session"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	barWidth   = 40
)

// TextFormatter formats reports as human-readable text. Colors are only
// emitted when the writer is a terminal that supports them.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

type styles struct {
	header lipgloss.Style
	label  lipgloss.Style
	faint  lipgloss.Style
	bar    lipgloss.Style
	levels map[parser.Level]lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header: r.NewStyle().Bold(true),
		label:  r.NewStyle().Bold(true),
		faint:  r.NewStyle().Faint(true),
		bar:    r.NewStyle().Foreground(lipgloss.Color("12")),
		levels: map[parser.Level]lipgloss.Style{
			parser.LevelError: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			parser.LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("11")),
			parser.LevelInfo:  r.NewStyle().Foreground(lipgloss.Color("10")),
			parser.LevelDebug: r.NewStyle().Faint(true),
		},
	}
}

func (s styles) level(l parser.Level) string {
	return s.levels[l].Render(string(l))
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	st := newStyles(w)

	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}

	if report.Summary != nil {
		f.formatSummary(st, report.Summary, w)
	}
	if report.Members != nil {
		f.formatMembers(st, report.Members, w)
	}
	if report.Timeline != nil {
		f.formatTimeline(st, report.Timeline, w)
	}
	if report.Entries != nil {
		f.formatEntries(st, report.Entries, w)
	}
	if len(report.Failures) > 0 && report.Summary == nil {
		f.formatFailures(st, report, w)
	}

	if f.opts.Verbose {
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}
	return nil
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	switch {
	case report.Summary != nil:
		fmt.Fprintf(w, "LogLens: %d entries, %d loggers, %d failures\n",
			report.Summary.Total, report.Summary.DistinctLoggers(), len(report.Summary.Failures))
	case report.Entries != nil:
		fmt.Fprintf(w, "LogLens: %d of %d entries matched\n", report.Entries.Matched, report.Entries.Total)
	case report.Timeline != nil:
		fmt.Fprintf(w, "LogLens: %d buckets (%s)\n", len(report.Timeline.Buckets), report.Timeline.Granularity)
	case report.Members != nil:
		fmt.Fprintf(w, "LogLens: %d members, %d selected\n", len(report.Members.Members), len(report.Members.Selected))
	}
	return nil
}

func (f *TextFormatter) formatSummary(st styles, sum *session.Summary, w io.Writer) {
	fmt.Fprintln(w, st.header.Render("=== LogLens Summary ==="))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s %s (%s)\n", st.label.Render("Source:"), sum.Source, sum.Kind)
	if f.opts.Verbose {
		fmt.Fprintf(w, "%s %s\n", st.label.Render("Dataset:"), sum.Dataset)
	}

	if sum.First.IsZero() {
		fmt.Fprintf(w, "%s no timestamped entries\n", st.label.Render("Period:"))
	} else {
		fmt.Fprintf(w, "%s %s to %s (%s)\n", st.label.Render("Period:"),
			sum.First.Format(timeLayout), sum.Last.Format(timeLayout), sum.Duration)
	}

	fmt.Fprintf(w, "%s %d", st.label.Render("Entries:"), sum.Total)
	if sum.Unparsed > 0 {
		fmt.Fprintf(w, " (%d with unparsed timestamps)", sum.Unparsed)
	}
	fmt.Fprintln(w)
	if !sum.Indexed {
		fmt.Fprintln(w, st.faint.Render("Full-text search unavailable"))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, st.label.Render("Levels:"))
	for _, lc := range sum.Levels {
		fmt.Fprintf(w, "  %s%s %8d  %5.1f%%\n", st.level(lc.Level),
			strings.Repeat(" ", 6-len(lc.Level)), lc.Count, lc.Percent)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s %d distinct\n", st.label.Render("Loggers:"), sum.DistinctLoggers())
	loggers := sum.Loggers
	if !f.opts.Verbose && len(loggers) > 10 {
		loggers = loggers[:10]
	}
	width := 0
	for _, lc := range loggers {
		width = max(width, len(lc.Logger))
	}
	for _, lc := range loggers {
		fmt.Fprintf(w, "  %-*s %8d\n", width, lc.Logger, lc.Count)
	}
	if len(loggers) < len(sum.Loggers) {
		fmt.Fprintf(w, "  %s\n", st.faint.Render(fmt.Sprintf("... %d more", len(sum.Loggers)-len(loggers))))
	}

	if len(sum.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %d\n", st.label.Render("Failures:"), len(sum.Failures))
		for _, fl := range sum.Failures {
			fmt.Fprintf(w, "  - %s: %s\n", fl.Name, fl.Reason)
		}
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatEntries(st styles, list *EntryList, w io.Writer) {
	for _, e := range list.Entries {
		fmt.Fprintf(w, "%s %s [%s] %s\n", e.RawTimestamp, st.level(e.Level), e.Logger, e.Message)
		if f.opts.Verbose {
			fmt.Fprintf(w, "    %s\n", st.faint.Render(fmt.Sprintf("%s:%d", e.Source, e.LineNum)))
		}
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "%d of %d entries matched", list.Matched, list.Total)
	if list.Truncated() {
		fmt.Fprintf(w, ", showing first %d", len(list.Entries))
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatTimeline(st styles, view *TimelineView, w io.Writer) {
	fmt.Fprintln(w, st.header.Render(fmt.Sprintf("=== Timeline (%s) ===", view.Granularity)))

	if len(view.Buckets) == 0 {
		fmt.Fprintln(w, "No entries for the selected loggers")
		fmt.Fprintln(w)
		return
	}

	peak := 0
	for _, b := range view.Buckets {
		peak = max(peak, b.Total)
	}

	layout := view.Granularity.Layout()
	for _, b := range view.Buckets {
		n := b.Total * barWidth / peak
		if n == 0 && b.Total > 0 {
			n = 1
		}
		fmt.Fprintf(w, "%-16s %s %d\n", b.Start.Format(layout),
			st.bar.Render(strings.Repeat("█", n))+strings.Repeat(" ", barWidth-n), b.Total)

		if f.opts.Verbose {
			for _, logger := range view.Loggers {
				if c := b.Counts[logger]; c > 0 {
					fmt.Fprintf(w, "    %s %d\n", logger, c)
				}
			}
		}
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatMembers(st styles, list *MemberList, w io.Writer) {
	fmt.Fprintln(w, st.header.Render("=== Members of "+list.Archive+" ==="))
	for _, m := range list.Members {
		mark := " "
		if list.IsSelected(m.Name) {
			mark = "*"
		}
		date := m.Date.Format("2006-01-02")
		if !m.HasDate {
			date = "no date   "
		}
		fmt.Fprintf(w, "%s %s %10d  %s\n", mark, date, m.Size, m.Name)
	}
	fmt.Fprintf(w, "%d members, %d selected\n", len(list.Members), len(list.Selected))
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatFailures(st styles, report *Report, w io.Writer) {
	fmt.Fprintf(w, "%s %d\n", st.label.Render("Failures:"), len(report.Failures))
	for _, fl := range report.Failures {
		fmt.Fprintf(w, "  - %s: %s\n", fl.Name, fl.Reason)
	}
}
