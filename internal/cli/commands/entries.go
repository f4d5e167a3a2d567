package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/pkg/filter"
	"github.com/ccollicutt/loglens/pkg/output"
	"github.com/ccollicutt/loglens/pkg/parser"
	"github.com/ccollicutt/loglens/pkg/session"
)

// EntriesOptions holds command-line options for the entries command.
type EntriesOptions struct {
	Source      SourceOptions
	Levels      []string
	OnlyLevel   string
	Loggers     []string
	Top         int
	From        string
	To          string
	Search      string
	Limit       int
	FailOnEmpty bool
}

// NewEntriesCommand creates the entries command.
func NewEntriesCommand(g *GlobalOptions) *cobra.Command {
	opts := &EntriesOptions{}

	cmd := &cobra.Command{
		Use:   "entries <source>...",
		Short: "Print the entries matching a set of filters",
		Long: `Load sources and print the entries that pass every filter, in
chronological order.

Filters combine with AND: levels, loggers, a time window and a full-text
search. The search is word based and matches stemmed forms, so
"connection" also finds "connections".

Examples:
  loglens entries app.log --level ERROR --level WARN
  loglens entries bundle.zip --search "timeout" --from 2024-01-01
  loglens entries app.log --top 5 --limit 50`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntries(cmd, args, g, opts)
		},
	}

	opts.Source.addFlags(cmd)
	cmd.Flags().StringSliceVarP(&opts.Levels, "level", "l", nil, "Show only these levels (can be repeated)")
	cmd.Flags().StringVar(&opts.OnlyLevel, "only-level", "", "Show only this level, overriding --level")
	cmd.Flags().StringSliceVar(&opts.Loggers, "logger", nil, "Show only these loggers (can be repeated)")
	cmd.Flags().IntVar(&opts.Top, "top", 0, "Show only the N loggers with the most entries")
	cmd.Flags().StringVar(&opts.From, "from", "", "Show entries at or after this time")
	cmd.Flags().StringVar(&opts.To, "to", "", "Show entries before this time (a bare date includes the whole day)")
	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "Full-text search")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "Print at most N entries (0 for all)")
	cmd.Flags().BoolVar(&opts.FailOnEmpty, "fail-on-empty", false, "Exit with status 1 when no entry matches")

	return cmd
}

func runEntries(cmd *cobra.Command, args []string, g *GlobalOptions, opts *EntriesOptions) error {
	// Validate flags before paying for the load.
	state, err := opts.baseState()
	if err != nil {
		return err
	}

	l, err := openSession(cmd, args, g, &opts.Source)
	if err != nil {
		return err
	}

	vis := applyEntryFilters(l.sess, state, opts.Top)
	if vis.SearchErr != nil {
		l.logger.Warn().Err(vis.SearchErr).Msg("search ignored")
	}

	report := &output.Report{
		Entries:  output.NewEntryList(len(l.sess.Entries()), vis.Entries, opts.Limit),
		Failures: l.sess.Failures(),
		Metadata: l.metadata(),
	}
	if err := writeReport(cmd, g, report); err != nil {
		return err
	}

	if len(report.Failures) > 0 || (opts.FailOnEmpty && len(vis.Entries) == 0) {
		setExitCode(1)
	}
	return nil
}

// baseState turns the flags into a filter state. Top loggers are resolved
// later because they depend on the loaded data.
func (o *EntriesOptions) baseState() (filter.State, error) {
	state := filter.NewState()

	if len(o.Levels) > 0 {
		state.Levels = make(map[parser.Level]bool, len(o.Levels))
		for _, s := range o.Levels {
			level, err := parser.ParseLevel(s)
			if err != nil {
				return state, err
			}
			state.Levels[level] = true
		}
	}
	if o.OnlyLevel != "" {
		level, err := parser.ParseLevel(o.OnlyLevel)
		if err != nil {
			return state, err
		}
		state.Levels = map[parser.Level]bool{level: true}
	}

	if len(o.Loggers) > 0 {
		state.Loggers = make(map[string]bool, len(o.Loggers))
		for _, name := range o.Loggers {
			state.Loggers[name] = true
		}
	}
	if o.Top < 0 {
		return state, fmt.Errorf("invalid --top %d (must be >= 0)", o.Top)
	}

	window, err := parseWindow(o.From, o.To)
	if err != nil {
		return state, err
	}
	state.Window = window
	state.Search = o.Search
	return state, nil
}

// applyEntryFilters applies state, narrowing the loggers to the top n at
// the selected levels when n > 0.
func applyEntryFilters(sess *session.Session, state filter.State, top int) filter.Visible {
	if top <= 0 {
		return sess.Apply(state)
	}

	levelsOnly := filter.NewState()
	levelsOnly.Levels = state.Levels
	sess.Apply(levelsOnly)

	names := sess.TopLoggers(top)
	state.Loggers = make(map[string]bool, len(names))
	for _, name := range names {
		state.Loggers[name] = true
	}
	return sess.Apply(state)
}

// parseWindow builds a time window from optional bounds. Nil means no
// window.
func parseWindow(from, to string) (*filter.Window, error) {
	if from == "" && to == "" {
		return nil, nil
	}

	w := &filter.Window{End: parser.Unparsed}
	var err error
	if from != "" {
		if w.Start, err = parseBound(from, false); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if w.End, err = parseBound(to, true); err != nil {
			return nil, err
		}
	}
	if !w.End.After(w.Start) {
		return nil, fmt.Errorf("empty time window %s to %s", from, to)
	}
	return w, nil
}
