package commands

import (
	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/pkg/output"
)

// SummaryOptions holds command-line options for the summary command.
type SummaryOptions struct {
	Source      SourceOptions
	FailOnEmpty bool
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(g *GlobalOptions) *cobra.Command {
	opts := &SummaryOptions{}

	cmd := &cobra.Command{
		Use:   "summary <source>...",
		Short: "Summarize a log file or archive",
		Long: `Load a log file, several files, or a zip archive and print an overview:
the covered period, entry totals, the level breakdown and the busiest loggers.

Sources may be .log, .log.gz or .zip files, or glob patterns matching them.

Exit codes:
  0 - Loaded successfully
  1 - Some sources could not be read, or nothing was loaded with --fail-on-empty
  2 - Configuration or runtime error`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, args, g, opts)
		},
	}

	opts.Source.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.FailOnEmpty, "fail-on-empty", false, "Exit with status 1 when no entries were loaded")

	return cmd
}

func runSummary(cmd *cobra.Command, args []string, g *GlobalOptions, opts *SummaryOptions) error {
	l, err := openSession(cmd, args, g, &opts.Source)
	if err != nil {
		return err
	}

	sum := l.sess.Summary()
	report := &output.Report{
		Summary:  &sum,
		Metadata: l.metadata(),
	}
	if err := writeReport(cmd, g, report); err != nil {
		return err
	}

	if len(sum.Failures) > 0 || (opts.FailOnEmpty && sum.Total == 0) {
		setExitCode(1)
	}
	return nil
}
