package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/linkrot/internal/crawler"
	"github.com/nao1215/linkrot/internal/model"
)

// Default configuration values. Fetch-level defaults are shared with
// the crawler package so the library and the CLI cannot drift apart.
const (
	// DefaultMaxTries is the attempt cap per fetch operation.
	DefaultMaxTries = crawler.DefaultMaxTries

	// DefaultMaxTime bounds the total duration of one fetch operation,
	// retries and backoff included.
	DefaultMaxTime = crawler.DefaultMaxTime

	// DefaultMaxDepth of -1 crawls without a depth bound. The visited
	// set still guarantees termination on any finite site, so unbounded
	// is a safe default for a link checker.
	DefaultMaxDepth = model.UnlimitedDepth

	// DefaultTimeout is the per-request timeout of the HTTP client.
	// This applies to individual requests, not the overall crawl.
	DefaultTimeout = crawler.DefaultTimeout

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = crawler.DefaultMaxBodySize

	// DefaultUserAgent mimics an ordinary browser. Some sites answer
	// bot agents with 403 regardless of link health, which would turn
	// healthy links into false positives.
	DefaultUserAgent = crawler.DefaultUserAgent

	// DefaultStrategy probes with HEAD before committing to GET, the
	// cheapest plan for link checking.
	DefaultStrategy = string(crawler.KindHeadThenGet)

	// DefaultBatchSize is the number of concurrent crawls when
	// --independent processes multiple seeds. Higher values increase
	// throughput but multiply the per-wave fan-out.
	DefaultBatchSize = crawler.DefaultConcurrency

	// AppName is the application name used for XDG directory paths.
	AppName = "linkrot"
)

// DefaultExcludePrefixes rejects references that are not fetchable
// over HTTP.
var DefaultExcludePrefixes = crawler.DefaultExcludePrefixes

// Config holds all configuration options for linkrot.
// This struct is designed to be populated from CLI flags and passed
// through the application via dependency injection rather than global
// state.
//
// Design decision: We use a single flat struct instead of nested
// structs (e.g., CrawlConfig, ReportConfig) for simplicity. The number
// of options is manageable, and nesting would add complexity without
// significant benefit.
type Config struct {
	// Targets is the list of seed URLs to crawl.
	// Must contain at least one URL.
	Targets []string

	// MaxTries is the attempt cap per fetch operation. Only transport
	// failures consume retries; a failing HTTP status is final.
	MaxTries int

	// MaxTime bounds the total duration of one fetch operation,
	// retries and backoff included.
	MaxTime time.Duration

	// MaxDepth is the maximum expansion depth past the seeds.
	// 0 checks the seeds only; -1 removes the bound.
	MaxDepth int

	// Timeout is the per-request timeout of the HTTP client.
	Timeout time.Duration

	// MaxBodySize is the maximum response body size in bytes to read
	// for link extraction. Larger documents are truncated.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// ExcludePrefixes lists URL prefixes that never enter the crawl.
	ExcludePrefixes []string

	// Strategy names the fetch plan: "head-then-get" or "get-on-site".
	Strategy string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of the
	// human-readable format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output with tables,
	// alerts, and a pie chart. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// ShowAll includes healthy links in the human-readable report
	// listing, not just the broken ones.
	ShowAll bool

	// SaveHistory indicates whether to save crawl results to the
	// database for historical comparison.
	SaveHistory bool

	// DBDir is the directory path for storing the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/linkrot on
	// Linux).
	DBDir string

	// Independent runs one crawl per seed instead of a single crawl
	// spanning all seeds. Each crawl gets its own visited set and
	// report.
	Independent bool

	// BatchSize is the number of concurrent crawls in independent
	// mode.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .linkrot in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config
	// file. Populated by LoadConfigFile and consulted when building
	// crawls.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., retry budget,
// user agent). This also serves as documentation of what the defaults
// are.
func NewConfig() *Config {
	return &Config{
		MaxTries:        DefaultMaxTries,
		MaxTime:         DefaultMaxTime,
		MaxDepth:        DefaultMaxDepth,
		Timeout:         DefaultTimeout,
		MaxBodySize:     DefaultMaxBodySize,
		UserAgent:       DefaultUserAgent,
		ExcludePrefixes: append([]string(nil), DefaultExcludePrefixes...),
		Strategy:        DefaultStrategy,
		BatchSize:       DefaultBatchSize,
		DBDir:           XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for linkrot.
// On Linux: ~/.local/share/linkrot
// On macOS: ~/Library/Application Support/linkrot
// On Windows: %LOCALAPPDATA%\linkrot
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkrot.
// On Linux: ~/.config/linkrot
// On macOS: ~/Library/Application Support/linkrot
// On Windows: %APPDATA%\linkrot
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for linkrot.
// On Linux: ~/.cache/linkrot
// On macOS: ~/Library/Caches/linkrot
// On Windows: %LOCALAPPDATA%\linkrot\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	// At least one attempt, or nothing is ever fetched
	if c.MaxTries < 1 {
		return ErrInvalidMaxTries
	}

	if c.MaxTime <= 0 {
		return ErrInvalidMaxTime
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// -1 means unbounded; anything below is a typo
	if c.MaxDepth < model.UnlimitedDepth {
		return ErrInvalidDepth
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	switch crawler.Kind(c.Strategy) {
	case crawler.KindHeadThenGet, crawler.KindGetOnSite:
	default:
		return ErrInvalidStrategy
	}

	return nil
}

// SiteOverrides returns the per-site overrides for rawURL's host,
// merged with the config file defaults. The zero SiteConfig comes back
// when no config file was loaded or the URL has no usable host.
func (c *Config) SiteOverrides(rawURL string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return c.SiteConfigs.Defaults
	}
	return c.SiteConfigs.GetSiteConfig(u.Host)
}
