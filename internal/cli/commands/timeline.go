package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/pkg/filter"
	"github.com/ccollicutt/loglens/pkg/output"
	"github.com/ccollicutt/loglens/pkg/timeline"
)

// TimelineOptions holds command-line options for the timeline command.
type TimelineOptions struct {
	Source      SourceOptions
	Granularity string
	Loggers     []string
	Top         int
	From        string
	To          string
}

// NewTimelineCommand creates the timeline command.
func NewTimelineCommand(g *GlobalOptions) *cobra.Command {
	opts := &TimelineOptions{}

	cmd := &cobra.Command{
		Use:   "timeline <source>...",
		Short: "Show entry counts over time",
		Long: `Load sources and count entries per logger in fixed time buckets.

The bucket width defaults to a day for archives and an hour for files.
Entries without a parseable timestamp are left out.

Examples:
  loglens timeline app.log --granularity minute
  loglens timeline bundle.zip --top 5 -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimeline(cmd, args, g, opts)
		},
	}

	opts.Source.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Granularity, "granularity", "g", "", "Bucket width (minute|hour|day)")
	cmd.Flags().StringSliceVar(&opts.Loggers, "logger", nil, "Count only these loggers (can be repeated)")
	cmd.Flags().IntVar(&opts.Top, "top", 0, "Count only the N loggers with the most entries")
	cmd.Flags().StringVar(&opts.From, "from", "", "Drop buckets before this time")
	cmd.Flags().StringVar(&opts.To, "to", "", "Drop buckets at or after this time")

	return cmd
}

func runTimeline(cmd *cobra.Command, args []string, g *GlobalOptions, opts *TimelineOptions) error {
	var gran timeline.Granularity
	if opts.Granularity != "" {
		var err error
		if gran, err = timeline.ParseGranularity(opts.Granularity); err != nil {
			return err
		}
	}
	if opts.Top < 0 {
		return fmt.Errorf("invalid --top %d (must be >= 0)", opts.Top)
	}
	window, err := parseWindow(opts.From, opts.To)
	if err != nil {
		return err
	}

	l, err := openSession(cmd, args, g, &opts.Source)
	if err != nil {
		return err
	}
	if gran == "" {
		gran = l.sess.Granularity()
	}

	loggers := opts.Loggers
	switch {
	case len(loggers) > 0:
	case opts.Top > 0:
		loggers = l.sess.TopLoggers(opts.Top)
	default:
		loggers = l.sess.Loggers()
	}

	view := output.NewTimelineView(l.sess.Timeline(loggers, gran))
	if window != nil {
		clampBuckets(view, *window)
	}

	report := &output.Report{
		Timeline: view,
		Failures: l.sess.Failures(),
		Metadata: l.metadata(),
	}
	if err := writeReport(cmd, g, report); err != nil {
		return err
	}

	if len(report.Failures) > 0 {
		setExitCode(1)
	}
	return nil
}

// clampBuckets keeps the buckets whose start lies inside w.
func clampBuckets(view *output.TimelineView, w filter.Window) {
	kept := view.Buckets[:0]
	for _, b := range view.Buckets {
		if w.Contains(b.Start) {
			kept = append(kept, b)
		}
	}
	view.Buckets = kept
}
