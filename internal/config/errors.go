package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to
// use errors.Is() for programmatic error handling while still
// providing human-readable messages. Using errors.New() here rather
// than fmt.Errorf() because we don't need to include dynamic values in
// these messages.
var (
	// ErrNoTarget is returned when no seed URL is specified.
	ErrNoTarget = errors.New("no target specified: provide at least one URL to check")

	// ErrInvalidMaxTries is returned when the retry attempt cap is
	// below one. Zero attempts would mean nothing is ever fetched.
	ErrInvalidMaxTries = errors.New("invalid max tries: must be at least 1")

	// ErrInvalidMaxTime is returned when the per-operation time budget
	// is not positive.
	ErrInvalidMaxTime = errors.New("invalid max time: must be positive")

	// ErrInvalidTimeout is returned when the per-request timeout is not
	// positive. A zero timeout would cause immediate failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDepth is returned when the crawl depth is below -1.
	// Use -1 for an unbounded crawl and 0 to check the seeds only.
	ErrInvalidDepth = errors.New("invalid depth: must be -1 (unbounded) or greater")

	// ErrInvalidMaxBodySize is returned when the max body size is
	// negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not
	// positive. A batch size of zero would mean no concurrent crawls,
	// effectively stopping independent mode.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used at
	// a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidStrategy is returned when the strategy name matches no
	// known fetch plan.
	ErrInvalidStrategy = errors.New("invalid strategy: use \"head-then-get\" or \"get-on-site\"")
)
