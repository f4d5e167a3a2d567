package commands

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/internal/watch"
	"github.com/ccollicutt/loglens/pkg/output"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(g *GlobalOptions) *cobra.Command {
	src := &SourceOptions{}

	cmd := &cobra.Command{
		Use:   "watch <source>...",
		Short: "Reload and summarize sources whenever they change",
		Long: `Load sources, print a summary, then reload and print a new summary
each time one of the files is written or replaced. Changes that arrive
while a reload is still running are skipped.

Stop with Ctrl-C.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, g, src)
		},
	}

	src.addFlags(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, args []string, g *GlobalOptions, src *SourceOptions) error {
	l, err := openSession(cmd, args, g, src)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	summarize := func() {
		mu.Lock()
		defer mu.Unlock()
		sum := l.sess.Summary()
		if err := writeReport(cmd, g, &output.Report{Summary: &sum, Metadata: l.metadata()}); err != nil {
			l.logger.Error().Err(err).Msg("writing summary")
		}
	}
	summarize()

	w, err := watch.New(l.sess, l.req,
		watch.WithLogger(l.logger),
		watch.WithHandler(func(o watch.Outcome) {
			switch {
			case o.Skipped:
				mu.Lock()
				fmt.Fprintf(cmd.ErrOrStderr(), "%s changed while a load was running, skipped\n", o.Path)
				mu.Unlock()
			case o.Err != nil:
				l.logger.Error().Err(o.Err).Str("path", o.Path).Msg("reload failed")
			default:
				summarize()
			}
		}),
	)
	if err != nil {
		return err
	}

	l.logger.Info().Strs("files", w.Files()).Msg("watching for changes")
	return w.Run(commandContext(cmd))
}
