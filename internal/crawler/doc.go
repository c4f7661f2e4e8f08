// Package crawler implements the wave-based crawl engine behind linkrot.
//
// # Architecture
//
// The package is designed around the Seeker type, which drives a
// breadth-first crawl in discrete waves: every target known at the start
// of a wave is fetched concurrently, completions are consumed in the
// order they arrive, and links discovered during a wave form the next
// wave. A wave must fully drain before the next one is dispatched.
//
// Design decision: One coordinator goroutine owns all crawl state
// (visited set, next wave, report) and workers only fetch, because:
//  1. Workers never share memory, so no locks guard crawl state
//  2. Completion-order consumption falls out of a single results channel
//  3. The wave barrier is a counted receive loop, not extra machinery
//
// # Components
//
//   - Seeker: the wave scheduler and frontier owner
//   - Strategy: per-target state machine deciding HEAD vs. GET
//   - retrier: bounded exponential backoff around individual requests
//   - LinkExtractor: collects href/src references from HTML documents
//   - LinkAcceptor: prefix-based filter applied to resolved links
//   - Batch: runs independent crawls for several sites concurrently
//
// # Fetch strategies
//
// Two strategies exist and are chosen per run. The head-first strategy
// probes with HEAD and follows with GET only for on-site targets, so
// external sites see the lightest possible traffic. The get-on-site
// strategy skips the HEAD probe for on-site targets, halving request
// count on sites known to dislike HEAD. Servers answering HEAD with
// 405 Method Not Allowed get a GET substituted on the same retry
// budget under either strategy.
//
// # Resource model
//
// Concurrency per wave is unbounded: a page with thousands of links
// dispatches thousands of simultaneous requests in the next wave. This
// is acceptable for the document sites linkrot targets but is worth
// knowing before pointing it at a large crawl frontier.
//
// # Usage
//
//	strategy, err := crawler.NewStrategy(crawler.KindHeadThenGet, client)
//	if err != nil {
//		return err
//	}
//	seeker := crawler.NewSeeker(strategy, crawler.WithMaxDepth(2))
//	report, err := seeker.Seek(ctx, []string{"https://example.test"})
package crawler
