package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/linkrot/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation, pull request comments,
// and CI artifacts.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeBrokenLinks(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("Linkrot Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seeds", "`" + strings.Join(report.Seeds, "`, `") + "`"},
			{"Crawl Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Links Checked", strconv.Itoa(report.Total())},
			{"Elapsed", strconv.FormatFloat(report.ElapsedMillis(), 'f', 2, 64) + " ms"},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.Report) string {
	if report.HasFailures() {
		return "❌ " + strconv.Itoa(report.BrokenCount()) + " broken"
	}
	return "✅ All links healthy"
}

// writeSummary writes the link health summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	md.H2("Link Health")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"🟢 OK", strconv.Itoa(report.OKCount())},
			{"🔴 Broken", strconv.Itoa(report.BrokenCount())},
			{"**Total**", "**" + strconv.Itoa(report.Total()) + "**"},
		},
	})
	md.PlainText("")

	if report.Total() > 0 {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of the link health split.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.Report) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Link Health"),
		piechart.WithShowData(true),
	)

	if report.OKCount() > 0 {
		chart.LabelAndIntValue("OK", uint64(report.OKCount()))
	}
	if report.BrokenCount() > 0 {
		chart.LabelAndIntValue("Broken", uint64(report.BrokenCount()))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the crawl outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.Report) {
	switch {
	case report.HasFailures():
		md.Cautionf(
			"%d broken link(s) found. Readers following them today hit an error page.",
			report.BrokenCount(),
		)
	case report.Total() == 0:
		md.Note("Nothing was checked; the crawl had no reachable targets.")
	default:
		md.Tip("No broken links detected.")
	}
	md.PlainText("")
}

// writeBrokenLinks writes the broken links table.
func (w *MarkdownWriter) writeBrokenLinks(md *markdown.Markdown, report *model.Report) {
	md.H2("Broken Links")
	md.PlainText("")

	if report.BrokenCount() == 0 {
		md.PlainText("No broken links.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Failures))
	for i, res := range report.Failures {
		msg := res.ErrorMessage()
		if msg == "" {
			msg = "-"
		}

		rows[i] = []string{
			strconv.Itoa(res.StatusCode),
			truncateString(res.Target.URL, 60),
			truncateString(res.Target.Home, 40),
			truncateString(msg, 50),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Status", "URL", "Found On", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [linkrot](https://github.com/nao1215/linkrot)*")
}

// truncateString truncates a string to maxLen characters with
// ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
