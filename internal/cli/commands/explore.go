package commands

import (
	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/internal/tui"
)

// NewExploreCommand creates the explore command.
func NewExploreCommand(g *GlobalOptions) *cobra.Command {
	src := &SourceOptions{}

	cmd := &cobra.Command{
		Use:   "explore <source>...",
		Short: "Browse logs interactively",
		Long: `Load sources and open an interactive terminal explorer.

Keys:
  1-4       toggle INFO, WARN, ERROR, DEBUG
  ! @ # $   show only INFO, WARN, ERROR, DEBUG
  /         search (applied when typing pauses, or on enter)
  g         cycle the timeline granularity
  [ ]       move between timeline buckets
  w / W     show only the bucket's time window / clear the window
  t / a     top 10 loggers / all loggers
  r         reset every filter
  q         quit`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openSession(cmd, args, g, src)
			if err != nil {
				return err
			}
			return tui.Run(commandContext(cmd), l.sess, l.req.Name(), l.cfg.SearchDebounce,
				cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	src.addFlags(cmd)
	return cmd
}
