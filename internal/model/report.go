package model

import "time"

// Report is the aggregated result of one crawl run.
//
// Results are partitioned into reachable and broken as they arrive, in
// completion order within a wave with waves concatenated in dispatch
// order. That ordering matches the order progress lines were emitted
// during the run.
type Report struct {
	// Seeds are the URLs the run started from.
	Seeds []string `json:"seeds"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Successes holds every reachable target in arrival order.
	Successes []*FetchResult `json:"-"`

	// Failures holds every broken target in arrival order.
	Failures []*FetchResult `json:"-"`

	// Elapsed is the wall-clock duration of the whole run.
	Elapsed time.Duration `json:"-"`
}

// NewReport creates an empty report for a run over the given seeds.
func NewReport(seeds []string) *Report {
	return &Report{
		Seeds:     seeds,
		StartedAt: time.Now(),
	}
}

// Add records a completed fetch, filing it under Successes or Failures
// by the presence of an error. Arrival order is preserved.
func (r *Report) Add(res *FetchResult) {
	if res.OK() {
		r.Successes = append(r.Successes, res)
		return
	}
	r.Failures = append(r.Failures, res)
}

// Total returns the number of targets checked.
func (r *Report) Total() int {
	return len(r.Successes) + len(r.Failures)
}

// BrokenCount returns the number of broken targets.
func (r *Report) BrokenCount() int {
	return len(r.Failures)
}

// OKCount returns the number of reachable targets.
func (r *Report) OKCount() int {
	return len(r.Successes)
}

// HasFailures reports whether any target was broken.
func (r *Report) HasFailures() bool {
	return len(r.Failures) > 0
}

// ElapsedMillis returns the run duration in milliseconds.
func (r *Report) ElapsedMillis() float64 {
	return float64(r.Elapsed) / float64(time.Millisecond)
}
