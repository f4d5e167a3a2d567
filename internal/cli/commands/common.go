package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/pkg/config"
	"github.com/ccollicutt/loglens/pkg/loader"
	"github.com/ccollicutt/loglens/pkg/output"
	"github.com/ccollicutt/loglens/pkg/parser"
	"github.com/ccollicutt/loglens/pkg/session"
)

// ExitCode is set by commands to indicate the result.
var ExitCode = 0

const dateLayout = "2006-01-02"

// GlobalOptions holds the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	Output     string
	LogLevel   string
	Verbose    bool
	Quiet      bool
}

// SourceOptions holds the flags that choose archive members.
type SourceOptions struct {
	Members    []string
	MemberFrom string
	MemberTo   string
	MemberType string
}

func (o *SourceOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&o.Members, "member", nil, "Load only these archive members (can be repeated)")
	cmd.Flags().StringVar(&o.MemberFrom, "member-from", "", "Only load archive members dated on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&o.MemberTo, "member-to", "", "Only load archive members dated on or before this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&o.MemberType, "member-type", "all", "Archive member type (all|app|error)")
}

// setExitCode raises the exit code; a lower code never hides a higher one.
func setExitCode(code int) {
	if code > ExitCode {
		ExitCode = code
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig reads the config file named by --config, if any, and applies
// the --log-level flag on top of it.
func loadConfig(ctx context.Context, g *GlobalOptions) (*config.Config, error) {
	cfg, err := config.Load(ctx, g.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("validating config: %w", err)
		}
	}
	return cfg, nil
}

// newLogger builds the console logger used for diagnostics on w.
func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(cfg.Level()).
		With().Timestamp().Logger()
}

// selection combines the configured archive selection with the member
// flags.
func selection(cfg *config.Config, from, to, memberType string) (loader.Selection, error) {
	sel := loader.Selection{
		Prefixes: cfg.Archive.Prefixes,
		Include:  cfg.Archive.Include,
		Skip:     cfg.Archive.Skip,
		Type:     loader.MemberAll,
	}

	var err error
	if sel.From, err = parseDate(from); err != nil {
		return sel, fmt.Errorf("invalid from date: %w", err)
	}
	if sel.To, err = parseDate(to); err != nil {
		return sel, fmt.Errorf("invalid to date: %w", err)
	}
	if !sel.From.IsZero() && !sel.To.IsZero() && sel.To.Before(sel.From) {
		return sel, errors.New("to date is before from date")
	}
	if memberType != "" {
		if sel.Type, err = loader.ParseMemberType(memberType); err != nil {
			return sel, err
		}
	}
	return sel, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

// parseBound parses an entry timestamp bound. A bare date is accepted; as
// an upper bound it covers the whole day.
func parseBound(s string, upper bool) (time.Time, error) {
	if t, err := time.Parse(parser.TimestampLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (use YYYY-MM-DD or YYYY-MM-DD HH:MM:SS)", s)
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

// buildRequest expands the path arguments into a load request.
func buildRequest(args []string, src *SourceOptions) (loader.Request, error) {
	files, err := parser.ExpandGlobs(args)
	if err != nil {
		return loader.Request{}, fmt.Errorf("expanding sources: %w", err)
	}
	if len(files) == 0 {
		return loader.Request{}, fmt.Errorf("no log files matched %v", args)
	}

	req := loader.Request{Members: src.Members}
	if len(files) == 1 {
		req.Path = files[0]
	} else {
		req.Paths = files
	}
	return req, nil
}

// loaded is a session holding a completely loaded source.
type loaded struct {
	cfg     *config.Config
	logger  zerolog.Logger
	sess    *session.Session
	req     loader.Request
	started time.Time
}

// openSession loads the sources named by args and waits for the load to
// finish.
func openSession(cmd *cobra.Command, args []string, g *GlobalOptions, src *SourceOptions) (*loaded, error) {
	ctx := commandContext(cmd)

	cfg, err := loadConfig(ctx, g)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	sel, err := selection(cfg, src.MemberFrom, src.MemberTo, src.MemberType)
	if err != nil {
		return nil, err
	}
	req, err := buildRequest(args, src)
	if err != nil {
		return nil, err
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithLoaderOptions(
			loader.WithEncodings(cfg.Encodings...),
			loader.WithHeartbeatLines(cfg.HeartbeatLines),
			loader.WithSelection(sel),
		),
		session.WithNotify(func(ev session.Event) {
			if ev.Type == session.EventProgress {
				logger.Debug().
					Str("stage", string(ev.Progress.Stage)).
					Str("detail", ev.Progress.Detail).
					Int("done", ev.Progress.Done).
					Int("total", ev.Progress.Total).
					Float64("fraction", ev.Progress.Fraction()).
					Msg("loading")
			}
		}),
	}
	if gran, ok := cfg.GranularityOverride(); ok {
		opts = append(opts, session.WithGranularity(gran))
	}

	l := &loaded{
		cfg:     cfg,
		logger:  logger,
		sess:    session.New(opts...),
		req:     req,
		started: time.Now(),
	}

	job, err := l.sess.Load(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := job.Wait(); err != nil {
		return nil, err
	}
	return l, nil
}

// metadata describes the run for a report.
func (l *loaded) metadata() output.Metadata {
	return output.Metadata{
		Source:      l.req.Name(),
		GeneratedAt: time.Now(),
		Duration:    time.Since(l.started),
	}
}

// writeReport renders report with the formatter chosen by --output.
func writeReport(cmd *cobra.Command, g *GlobalOptions, report *output.Report) error {
	formatter, err := output.NewFormatter(g.Output, output.FormatOptions{
		Verbose: g.Verbose,
		Quiet:   g.Quiet,
	})
	if err != nil {
		return err
	}
	if err := formatter.Format(commandContext(cmd), report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}
