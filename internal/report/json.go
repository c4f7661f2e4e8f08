package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/linkrot/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic
// processing.
//
// Design decision: We use standard encoding/json rather than a
// third-party JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It's sufficient for our needs
// 3. It provides consistent behavior across Go versions
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each
// level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in JSON format.
func (w *JSONWriter) Write(report *model.Report) (int, error) {
	return w.writeJSON(newJSONReport(report))
}

// writeJSON marshals the given value to JSON and writes it to the
// output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// jsonReport is the wire shape of a crawl report.
//
// Design decision: We map the report to dedicated row structs rather
// than marshaling model.Report directly because this allows us to
// flatten targets, render durations in milliseconds, and keep the wire
// format stable when the core data structure changes.
type jsonReport struct {
	// Seeds are the URLs the crawl started from.
	Seeds []string `json:"seeds"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// ElapsedMS is the wall-clock duration of the crawl in
	// milliseconds.
	ElapsedMS float64 `json:"elapsed_ms"`

	// Total is the number of links checked.
	Total int `json:"total"`

	// Broken lists the links that failed.
	Broken []jsonResult `json:"broken"`

	// OK lists the links that answered.
	OK []jsonResult `json:"ok"`
}

// jsonResult is the wire shape of one checked link.
type jsonResult struct {
	URL        string  `json:"url"`
	Home       string  `json:"home"`
	StatusCode int     `json:"status_code"`
	ElapsedMS  float64 `json:"elapsed_ms"`
	Error      string  `json:"error,omitempty"`
	ErrorKind  string  `json:"error_kind,omitempty"`
}

func newJSONReport(report *model.Report) *jsonReport {
	out := &jsonReport{
		Seeds:     report.Seeds,
		StartedAt: report.StartedAt,
		ElapsedMS: report.ElapsedMillis(),
		Total:     report.Total(),
		Broken:    make([]jsonResult, 0, len(report.Failures)),
		OK:        make([]jsonResult, 0, len(report.Successes)),
	}

	for _, res := range report.Failures {
		out.Broken = append(out.Broken, newJSONResult(res))
	}
	for _, res := range report.Successes {
		out.OK = append(out.OK, newJSONResult(res))
	}
	return out
}

func newJSONResult(res *model.FetchResult) jsonResult {
	return jsonResult{
		URL:        res.Target.URL,
		Home:       res.Target.Home,
		StatusCode: res.StatusCode,
		ElapsedMS:  res.ElapsedMillis(),
		Error:      res.ErrorMessage(),
		ErrorKind:  res.ErrorKind(),
	}
}

// versionedJSONReport wraps the report with tool metadata.
//
// Design decision: We wrap the report rather than adding a version
// field to jsonReport because this allows consumers that only want the
// crawl data to unmarshal the inner object unchanged.
type versionedJSONReport struct {
	// Version is the linkrot version that generated this report.
	Version string `json:"version"`

	// Report is the full crawl report.
	Report *jsonReport `json:"report"`
}

// FullJSONWriter outputs complete reports with a metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the linkrot version string.
	version string
}

// NewFullJSONWriter creates a writer for complete reports with
// metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the report wrapped with metadata.
func (w *FullJSONWriter) Write(report *model.Report) (int, error) {
	return w.writeJSON(&versionedJSONReport{
		Version: w.version,
		Report:  newJSONReport(report),
	})
}
