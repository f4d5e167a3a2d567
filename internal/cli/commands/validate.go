package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a LogLens configuration file without loading any logs.

Checks:
  - YAML syntax
  - Known encodings
  - Archive include and skip pattern syntax
  - Granularity, debounce and log level values`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(commandContext(cmd), configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	granularity := "by source type"
	if g, ok := cfg.GranularityOverride(); ok {
		granularity = string(g)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Encodings:       %s\n", strings.Join(cfg.Encodings, ", "))
	fmt.Fprintf(out, "  Heartbeat:       every %d lines\n", cfg.HeartbeatLines)
	fmt.Fprintf(out, "  Granularity:     %s\n", granularity)
	fmt.Fprintf(out, "  Search debounce: %s\n", cfg.SearchDebounce)
	fmt.Fprintf(out, "  Log level:       %s\n", cfg.Level())

	fmt.Fprintf(out, "\nArchive members:\n")
	fmt.Fprintf(out, "  Prefixes: %s\n", strings.Join(cfg.Archive.Prefixes, ", "))
	fmt.Fprintf(out, "  Include:  %s\n", strings.Join(cfg.Archive.Include, ", "))
	fmt.Fprintf(out, "  Skip:     %s\n", strings.Join(cfg.Archive.Skip, ", "))

	return nil
}
