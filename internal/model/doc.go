// Package model defines the core data structures used throughout linkrot.
//
// This package contains the following main types:
//   - Target: A URL queued for checking, tied to the seed it was discovered under
//   - FetchResult: The outcome of checking one target, with status and timing
//   - Report: The aggregated result of a whole crawl run
//   - ResponseError / TransportError: The two failure classes a check can end in
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, report, database) need to use these
// types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
