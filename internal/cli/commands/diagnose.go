package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/pkg/config"
	"github.com/ccollicutt/loglens/pkg/index"
	"github.com/ccollicutt/loglens/pkg/loader"
	"github.com/ccollicutt/loglens/pkg/parser"
	"github.com/ccollicutt/loglens/pkg/stats"
)

// recordFormat describes the line layout the parser recognises.
const recordFormat = "YYYY-MM-DD HH:MM:SS LEVEL [logger] message"

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand(g *GlobalOptions) *cobra.Command {
	src := &SourceOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <source>...",
		Short: "Diagnose why a source loads badly",
		Long: `Diagnose common problems with a configuration and a log source.

This command checks:
- Config file syntax and values
- Source file existence and archive members
- Text encoding chosen for each source
- Record format and timestamp parsing
- Full-text search availability

Example:
  loglens diagnose app.log
  loglens diagnose --config loglens.yaml -v bundle.zip`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := runDiagnose(commandContext(cmd), args, g, src)
			printDiagnostics(cmd.OutOrStdout(), results, g.Verbose)
			for _, r := range results {
				if r.Status == "error" {
					setExitCode(1)
				}
			}
			return nil
		},
	}

	src.addFlags(cmd)
	return cmd
}

func runDiagnose(ctx context.Context, args []string, g *GlobalOptions, src *SourceOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	// 1. Configuration
	cfg, result := checkConfig(ctx, g)
	results = append(results, result)
	if result.Status == "error" {
		return results
	}

	// 2. Sources
	req, result := checkSources(args, src)
	results = append(results, result)
	if result.Status == "error" {
		return results
	}

	sel, err := selection(cfg, src.MemberFrom, src.MemberTo, src.MemberType)
	if err != nil {
		return append(results, DiagnosticResult{
			Check:   "Member Selection",
			Status:  "error",
			Message: err.Error(),
		})
	}
	ld := loader.New(
		loader.WithEncodings(cfg.Encodings...),
		loader.WithSelection(sel),
	)

	// 3. Archive members
	if req.Path != "" && loader.IsArchive(req.Path) {
		result := checkMembers(ld, sel, req)
		results = append(results, result)
		if result.Status == "error" {
			return results
		}
	}

	// 4. Load, encodings and record format
	res, result := checkLoad(ctx, ld, req)
	results = append(results, result)
	if res == nil {
		return results
	}
	results = append(results, checkRecords(res)...)

	// 5. Timestamps and search
	entries := parser.Merge(res.PerSource)
	results = append(results, checkTimestamps(entries))
	results = append(results, checkSearch(ctx, entries))

	return results
}

func checkConfig(ctx context.Context, g *GlobalOptions) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Configuration",
	}

	if g.ConfigPath != "" {
		info, err := os.Stat(g.ConfigPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			result.Status = "error"
			result.Message = fmt.Sprintf("Config file not found: %s", g.ConfigPath)
			result.Suggests = []string{"Check the file path is correct, or drop --config to use the defaults"}
			return nil, result
		case err != nil:
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot access config file: %v", err)
			result.Suggests = []string{"Check file permissions"}
			return nil, result
		case info.IsDir():
			result.Status = "error"
			result.Message = "Path is a directory, not a file"
			return nil, result
		}
	}

	cfg, err := loadConfig(ctx, g)
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{"Check YAML syntax - ensure proper indentation (use spaces, not tabs)"}
		}
		return nil, result
	}

	result.Status = "ok"
	if g.ConfigPath == "" {
		result.Message = "Using built-in defaults"
	} else {
		result.Message = fmt.Sprintf("Loaded %s", g.ConfigPath)
	}
	result.Details = []string{
		fmt.Sprintf("Encodings: %s", strings.Join(cfg.Encodings, ", ")),
		fmt.Sprintf("Member prefixes: %s", strings.Join(cfg.Archive.Prefixes, ", ")),
	}
	return cfg, result
}

func checkSources(args []string, src *SourceOptions) (loader.Request, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Sources",
	}

	req, err := buildRequest(args, src)
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()
		result.Suggests = []string{"Quote glob patterns so the shell does not expand them"}
		return req, result
	}

	paths := req.Paths
	if req.Path != "" {
		paths = []string{req.Path}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot access %s: %v", p, err)
			return req, result
		}
		if info.Size() == 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("%s is empty", p)
		}
		result.Details = append(result.Details, fmt.Sprintf("%s (%d bytes)", p, info.Size()))
	}

	if result.Status == "" {
		result.Status = "ok"
		result.Message = fmt.Sprintf("%d source file(s) found", len(paths))
	}
	return req, result
}

func checkMembers(ld *loader.Loader, sel loader.Selection, req loader.Request) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Archive Members",
	}

	members, err := ld.ListMembers(req.Path)
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()
		result.Suggests = []string{"Check the archive is a complete, valid zip file"}
		return result
	}

	selected := req.Members
	if selected == nil {
		selected = sel.Select(members)
	}

	switch {
	case len(members) == 0:
		result.Status = "error"
		result.Message = "Archive contains no .log or .log.gz members"
	case len(selected) == 0:
		result.Status = "error"
		result.Message = fmt.Sprintf("None of the %d log members is selected", len(members))
		result.Suggests = []string{
			"Use 'loglens members " + req.Path + "' to list the members",
			"Widen --member-from/--member-to or set --member-type all",
		}
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("%d of %d log members selected", len(selected), len(members))
	}
	result.Details = selected
	return result
}

func checkLoad(ctx context.Context, ld *loader.Loader, req loader.Request) (*loader.Result, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Load",
	}

	res, err := ld.Load(ctx, req)
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()
		var decodeErr *loader.DecodeError
		if errors.As(err, &decodeErr) {
			result.Suggests = []string{
				"Add the file's encoding to the encodings list in the config",
				fmt.Sprintf("Supported encodings: %s", strings.Join(config.SupportedEncodings, ", ")),
			}
		}
		return nil, result
	}
	if res.Cancelled {
		result.Status = "error"
		result.Message = "Load was cancelled"
		return nil, result
	}

	for i, source := range res.Sources {
		result.Details = append(result.Details, fmt.Sprintf("%s: %s", source, res.Encodings[i]))
	}
	for _, f := range res.Failures {
		result.Details = append(result.Details, fmt.Sprintf("%s: FAILED (%s)", f.Name, f.Reason))
	}

	if len(res.Failures) > 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Loaded %d source(s), %d could not be read", len(res.Sources), len(res.Failures))
	} else {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Loaded %d entries from %d source(s)", res.Count(), len(res.Sources))
	}
	return res, result
}

func checkRecords(res *loader.Result) []DiagnosticResult {
	results := []DiagnosticResult{}

	for i, source := range res.Sources {
		if len(res.PerSource[i]) > 0 {
			continue
		}
		results = append(results, DiagnosticResult{
			Check:   fmt.Sprintf("Record Format: %s", source),
			Status:  "warning",
			Message: "No line starts a log record",
			Suggests: []string{
				"Records must look like: " + recordFormat,
			},
		})
	}

	if len(results) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Record Format",
			Status:  "ok",
			Message: "Every source contains log records",
		})
	}
	return results
}

func checkTimestamps(entries []*parser.Entry) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Timestamps",
	}

	sum := stats.Summarize(entries)
	switch {
	case sum.Total == 0:
		result.Status = "warning"
		result.Message = "No entries to check"
	case sum.Unparsed > 0:
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d of %d entries have an invalid timestamp", sum.Unparsed, sum.Total)
		result.Suggests = []string{"These entries sort last and are left out of timelines"}
		for _, e := range entries {
			if !e.HasTimestamp() {
				result.Details = append(result.Details, truncate(e.Line(), 80))
				if len(result.Details) == 3 {
					break
				}
			}
		}
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("All timestamps valid, %s to %s",
			sum.First.Format(parser.TimestampLayout), sum.Last.Format(parser.TimestampLayout))
	}
	return result
}

func checkSearch(ctx context.Context, entries []*parser.Entry) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Full-Text Search",
	}

	idx, err := index.Build(ctx, entries)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Index unavailable: %v", err)
		result.Suggests = []string{"Filtering still works; only --search is disabled"}
		return result
	}
	defer idx.Close()

	result.Status = "ok"
	result.Message = fmt.Sprintf("Indexed %d entries with %s", idx.Len(), idx.Module())
	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, verbose bool) {
	fmt.Fprintln(w, "=== LogLens Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before loading this source.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nThe source loads but has warnings.")
	} else {
		fmt.Fprintln(w, "\nEverything looks good!")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
