package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/linkrot/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showAll lists healthy links too, not just the broken ones.
	showAll bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowAll configures the writer to list healthy links alongside
// the broken ones.
func WithShowAll(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showAll = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given
// writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeBrokenLinks(&sb, report)
	if w.showAll {
		w.writeHealthyLinks(&sb, report)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                           LINKROT REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Seeds:          %s\n", strings.Join(report.Seeds, ", ")))
	sb.WriteString(fmt.Sprintf("Crawl Date:     %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Links Checked:  %d\n", report.Total()))
	sb.WriteString(fmt.Sprintf("Elapsed:        %.2f ms\n", report.ElapsedMillis()))
	sb.WriteString("\n")
}

// writeSummary writes the health summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.Report) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  OK:       %d\n", report.OKCount()))
	sb.WriteString(fmt.Sprintf("  BROKEN:   %d\n", report.BrokenCount()))
	sb.WriteString("\n")
}

// writeBrokenLinks lists every broken link with where it was found and
// why it failed.
func (w *SimpleWriter) writeBrokenLinks(sb *strings.Builder, report *model.Report) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("BROKEN LINKS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if report.BrokenCount() == 0 {
		sb.WriteString("  None. Every checked link answered.\n\n")
		return
	}

	for _, res := range report.Failures {
		sb.WriteString(fmt.Sprintf("  [%d] %s\n", res.StatusCode, res.Target.URL))
		sb.WriteString(fmt.Sprintf("        found on %s\n", res.Target.Home))
		if msg := res.ErrorMessage(); msg != "" {
			sb.WriteString(fmt.Sprintf("        %s\n", msg))
		}
		sb.WriteString("\n")
	}
}

// writeHealthyLinks lists the links that answered, with timing.
func (w *SimpleWriter) writeHealthyLinks(sb *strings.Builder, report *model.Report) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("HEALTHY LINKS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if report.OKCount() == 0 {
		sb.WriteString("  None.\n\n")
		return
	}

	for _, res := range report.Successes {
		sb.WriteString(fmt.Sprintf("  [%d] %s (%.2f ms)\n", res.StatusCode, res.Target.URL, res.ElapsedMillis()))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
