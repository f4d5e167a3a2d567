// Package cli provides the command-line interface for LogLens.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/internal/cli/commands"
	"github.com/ccollicutt/loglens/pkg/session"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, session.ErrCancelled) {
			_, _ = fmt.Fprintln(os.Stderr, "Interrupted")
			return 2
		}
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	g := &commands.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "loglens",
		Short: "Load, filter and chart application logs",
		Long: `LogLens loads application logs from plain files, gzip files and zip
archives, merges them into one timeline and lets you slice them.

It provides:
  - Summaries of levels, loggers and the covered period
  - Filtering by level, logger, time window and full-text search
  - Per-logger histograms at minute, hour or day granularity
  - An interactive terminal explorer and a watch mode

Records look like:
  2024-01-01 10:00:00 ERROR [db.Pool] connection refused
Lines that do not start a record belong to the previous record.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.ConfigPath, "config", "c", "", "Configuration file (YAML)")
	flags.StringVarP(&g.Output, "output", "o", "text", "Output format (text|json)")
	flags.StringVar(&g.LogLevel, "log-level", "", "Diagnostic log level (debug|info|warn|error)")
	flags.BoolVarP(&g.Verbose, "verbose", "v", false, "Show more detail")
	flags.BoolVarP(&g.Quiet, "quiet", "q", false, "Print a one-line summary only")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Add subcommands
	rootCmd.AddCommand(commands.NewSummaryCommand(g))
	rootCmd.AddCommand(commands.NewEntriesCommand(g))
	rootCmd.AddCommand(commands.NewTimelineCommand(g))
	rootCmd.AddCommand(commands.NewMembersCommand(g))
	rootCmd.AddCommand(commands.NewExploreCommand(g))
	rootCmd.AddCommand(commands.NewWatchCommand(g))
	rootCmd.AddCommand(commands.NewDiagnoseCommand(g))
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
