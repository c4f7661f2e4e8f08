package report

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/nao1215/linkrot/internal/model"
)

// StreamWriter emits one line per checked link as results arrive, so a
// long crawl shows progress instead of silence. It satisfies the
// crawler's ResultWriter contract.
//
// Failures use the workflow-command form many CI systems annotate:
//
//	::error ::ResponseError: 404 - https://example.com/missing
//
// Successes report status and timing:
//
//	200 - https://example.com/about - 12.34 ms
type StreamWriter struct {
	// mu serializes lines; independent crawls in batch mode share one
	// StreamWriter across goroutines.
	mu  sync.Mutex
	out io.Writer
}

// NewStreamWriter creates a StreamWriter that writes to output.
func NewStreamWriter(output io.Writer) *StreamWriter {
	return &StreamWriter{out: output}
}

// WriteResult writes the line for one completed fetch.
func (w *StreamWriter) WriteResult(res *model.FetchResult) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if res.OK() {
		fmt.Fprintf(w.out, "%d - %s - %.2f ms\n", res.StatusCode, res.Target.URL, res.ElapsedMillis())
		return
	}

	// A real status is more useful than the error text that restates
	// it; the text stands in only when no status exists.
	detail := res.ErrorMessage()
	if res.StatusCode > 0 {
		detail = strconv.Itoa(res.StatusCode)
	}
	fmt.Fprintf(w.out, "::error ::%s: %s - %s\n", res.ErrorKind(), detail, res.Target.URL)
}
