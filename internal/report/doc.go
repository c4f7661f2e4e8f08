// Package report provides report generation and output functionality.
//
// This package contains writers for different output formats:
//   - StreamWriter: One line per checked link, emitted live during the crawl
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown for docs and CI artifacts
//
// Design decision: We separate report writing from report data
// structures (which are in the model package) to follow the single
// responsibility principle. This allows adding new output formats
// without modifying the core data structures.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output. StreamWriter
// is the exception: it consumes results one at a time while the crawl
// is still running, so it implements the crawler's ResultWriter
// contract instead.
package report
