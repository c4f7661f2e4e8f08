package model

import "time"

// Status code markers for FetchResult beyond real HTTP statuses.
const (
	// StatusNone means no request was ever attempted for the target.
	StatusNone = 0

	// StatusTransportFailure means every request failed before a
	// response arrived, so no HTTP status exists for the target.
	StatusTransportFailure = -1
)

// FetchResult is the outcome of checking one target.
//
// The fetch strategy creates the result when it starts on a target and
// fills it in as requests complete. Once handed back to the scheduler
// the result is treated as immutable.
type FetchResult struct {
	// Target is the crawl target this result describes.
	Target Target `json:"target"`

	// StatusCode is the HTTP status of the last request that produced a
	// response: the GET when one was issued, otherwise the HEAD.
	// StatusNone if no request ran, StatusTransportFailure if requests
	// ran but none produced a response.
	StatusCode int `json:"status_code"`

	// Elapsed spans the start of the first request attempt through the
	// completion of the last, including retries and backoff waits.
	Elapsed time.Duration `json:"-"`

	// Err records why the target counts as broken. Nil for reachable
	// targets.
	Err error `json:"-"`

	// Body holds the fetched document for on-site HTML responses and is
	// empty in every other case. Link expansion reads from here.
	Body string `json:"-"`
}

// OK reports whether the target was reachable.
func (r *FetchResult) OK() bool {
	return r.Err == nil
}

// ElapsedMillis returns the elapsed time in milliseconds.
func (r *FetchResult) ElapsedMillis() float64 {
	return float64(r.Elapsed) / float64(time.Millisecond)
}

// ErrorMessage returns the failure text, or "" for reachable targets.
func (r *FetchResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ErrorKind names the failure class for log lines. Empty for reachable
// targets.
func (r *FetchResult) ErrorKind() string {
	if r.Err == nil {
		return ""
	}
	return ErrorKind(r.Err)
}
