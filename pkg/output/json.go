package output

import (
	"context"
	"encoding/json"
	"io"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format renders the report as indented JSON. In quiet mode it writes the
// counts of the text formatter's one-line form as a single compact object.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	if f.opts.Quiet {
		return encoder.Encode(quietCounts(report))
	}

	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func quietCounts(report *Report) map[string]any {
	switch {
	case report.Summary != nil:
		return map[string]any{
			"total":    report.Summary.Total,
			"loggers":  report.Summary.DistinctLoggers(),
			"failures": len(report.Summary.Failures),
		}
	case report.Entries != nil:
		return map[string]any{"total": report.Entries.Total, "matched": report.Entries.Matched}
	case report.Timeline != nil:
		return map[string]any{"granularity": report.Timeline.Granularity, "buckets": len(report.Timeline.Buckets)}
	case report.Members != nil:
		return map[string]any{"members": len(report.Members.Members), "selected": len(report.Members.Selected)}
	}
	return map[string]any{}
}
