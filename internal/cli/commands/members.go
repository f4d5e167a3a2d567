package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/pkg/loader"
	"github.com/ccollicutt/loglens/pkg/output"
)

// MembersOptions holds command-line options for the members command.
type MembersOptions struct {
	From string
	To   string
	Type string
}

// NewMembersCommand creates the members command.
func NewMembersCommand(g *GlobalOptions) *cobra.Command {
	opts := &MembersOptions{}

	cmd := &cobra.Command{
		Use:   "members <archive.zip>",
		Short: "List the log members of a zip archive",
		Long: `List the .log and .log.gz members of a zip archive with the date taken
from their names, and mark the members a load would pick by default.

Members without a date in their name sort as tomorrow, so date ranges
that end today leave them out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMembers(cmd, args[0], g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "Select members dated on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "Select members dated on or before this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Type, "type", "all", "Member type (all|app|error)")

	return cmd
}

func runMembers(cmd *cobra.Command, path string, g *GlobalOptions, opts *MembersOptions) error {
	start := time.Now()
	if !loader.IsArchive(path) {
		return fmt.Errorf("%s is not a zip archive", path)
	}

	cfg, err := loadConfig(commandContext(cmd), g)
	if err != nil {
		return err
	}
	sel, err := selection(cfg, opts.From, opts.To, opts.Type)
	if err != nil {
		return err
	}

	ld := loader.New(
		loader.WithSelection(sel),
		loader.WithLogger(newLogger(cfg, cmd.ErrOrStderr())),
	)
	members, err := ld.ListMembers(path)
	if err != nil {
		return err
	}

	report := &output.Report{
		Members: &output.MemberList{
			Archive:  path,
			Members:  members,
			Selected: sel.Select(members),
		},
		Metadata: output.Metadata{
			Source:      path,
			GeneratedAt: time.Now(),
			Duration:    time.Since(start),
		},
	}
	return writeReport(cmd, g, report)
}
