package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/linkrot/internal/model"
	"golang.org/x/net/html/charset"
)

// exchange captures what the strategy layer needs from one completed
// HTTP exchange.
type exchange struct {
	status      int
	contentType string
	body        string
}

// retrier executes the requests of one budgeted fetch operation,
// retrying transport failures with exponential backoff.
//
// The budget (attempt count and total time) lives on the retrier, not
// on the individual call, so a strategy can substitute one method for
// another mid-operation and the substitution draws from the same
// budget instead of starting a fresh one.
type retrier struct {
	client      *http.Client
	userAgent   string
	maxTries    int
	maxTime     time.Duration
	backoff     time.Duration
	maxBodySize int64
	logger      *slog.Logger

	// tries counts attempts consumed across all do calls.
	tries int

	// deadline bounds the whole operation; set on first use.
	deadline time.Time
}

// do issues method on url until a response arrives or the budget runs
// out. The returned exchange is non-nil whenever any response was
// received, even a failing one, so callers always see the last known
// status. Transport failures are retried; HTTP error statuses surface
// immediately as a ResponseError.
//
// When wantBody is set and the response declares an HTML content type,
// the body is read (capped at maxBodySize, transcoded to UTF-8) into
// the exchange.
func (r *retrier) do(ctx context.Context, method, url string, wantBody bool) (*exchange, error) {
	if r.deadline.IsZero() {
		r.deadline = time.Now().Add(r.maxTime)
	}

	var lastErr error
	for r.tries < r.maxTries && time.Now().Before(r.deadline) {
		r.tries++

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			// A URL that cannot form a request will not improve with
			// retries.
			return nil, &model.TransportError{Err: err}
		}
		req.Header.Set("User-Agent", r.userAgent)

		resp, err := r.client.Do(req)
		if err != nil {
			lastErr = &model.TransportError{Err: err}
			r.logger.Debug("request failed",
				"method", method,
				"url", url,
				"try", r.tries,
				"error", err,
			)
			if !r.wait(ctx) {
				break
			}
			continue
		}

		ex := &exchange{
			status:      resp.StatusCode,
			contentType: resp.Header.Get("Content-Type"),
		}

		if resp.StatusCode >= http.StatusBadRequest {
			resp.Body.Close()
			// Failing statuses surface immediately; the strategy layer
			// decides whether a 405 warrants a method substitution.
			return ex, &model.ResponseError{StatusCode: resp.StatusCode}
		}

		if wantBody && hasHTML(ex.contentType) {
			body, err := r.readBody(resp)
			resp.Body.Close()
			if err != nil {
				// The status arrived but the document did not.
				return ex, &model.TransportError{Err: err}
			}
			ex.body = body
			return ex, nil
		}

		resp.Body.Close()
		return ex, nil
	}

	if lastErr == nil {
		lastErr = &model.TransportError{Err: ErrBudgetExhausted}
	}
	return nil, lastErr
}

// wait sleeps the next backoff delay. It reports false when the budget
// (attempts, total time, or context) has no room for another try.
func (r *retrier) wait(ctx context.Context) bool {
	if r.tries >= r.maxTries {
		return false
	}

	delay := r.backoff << (r.tries - 1)
	if time.Now().Add(delay).After(r.deadline) {
		return false
	}

	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

// readBody drains at most maxBodySize bytes of the response (zero
// lifts the cap), converting the declared charset to UTF-8 so the HTML
// parser sees clean input.
func (r *retrier) readBody(resp *http.Response) (string, error) {
	limited := io.Reader(resp.Body)
	if r.maxBodySize > 0 {
		limited = io.LimitReader(resp.Body, r.maxBodySize)
	}

	decoded, err := charset.NewReader(limited, resp.Header.Get("Content-Type"))
	if err != nil {
		// Unknown encoding: fall back to the raw bytes.
		decoded = limited
	}

	b, err := io.ReadAll(decoded)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// hasHTML reports whether a Content-Type header declares an HTML
// document ("text/html", "application/xhtml+xml", ...).
func hasHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "html")
}
