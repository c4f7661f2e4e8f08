package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nao1215/linkrot/internal/config"
	"github.com/nao1215/linkrot/internal/crawler"
	"github.com/nao1215/linkrot/internal/database"
	"github.com/nao1215/linkrot/internal/log"
	"github.com/nao1215/linkrot/internal/model"
	"github.com/nao1215/linkrot/internal/report"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <url> [url...]",
		Short: "Crawl websites and report broken links",
		Long: `Check crawls websites starting from the given seed URLs and reports
every broken link it finds.

It fetches each page, extracts the links from the HTML, and follows
links that stay on the seed site. Off-site links are checked but never
crawled. A link counts as broken when the server answers with HTTP
status 400 or above, or when the request keeps failing on the wire
after all retries.

The command returns a non-zero exit status when broken links are
found, so it can gate CI pipelines directly.

Examples:
  # Check a site
  linkrot check https://example.com/

  # Check several sites through one shared crawl
  linkrot check https://example.com/ https://blog.example.com/

  # Crawl each seed independently, four crawls at a time
  linkrot check --independent --batch 4 https://a.example/ https://b.example/

  # Check the seed pages only, without following links
  linkrot check --depth 0 https://example.com/

  # Write a Markdown report to a file
  linkrot check --markdown -o report.md https://example.com/

  # Save the run for later comparison with 'linkrot compare'
  linkrot check --save https://example.com/

Configuration file (.linkrot) example:
  defaults:
    excludePrefixes:
      - "mailto:"
      - "tel:"
  sites:
    example.com:
      depth: 2
      strategy: get-on-site`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheckCmd,
	}

	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"How many link levels to follow below the seeds (0 checks seeds only, -1 for no limit)")
	cmd.Flags().Int("max-tries", config.DefaultMaxTries,
		"Maximum attempts per link before giving up")
	cmd.Flags().Duration("max-time", config.DefaultMaxTime,
		"Total time budget per link across all attempts")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout per HTTP request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size to read, in bytes (0 for no limit)")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().StringSliceP("exclude-prefix", "x", config.DefaultExcludePrefixes,
		"Skip links starting with this prefix (repeatable)")
	cmd.Flags().String("strategy", config.DefaultStrategy,
		"Fetch strategy: head-then-get or get-on-site")
	cmd.Flags().Bool("independent", false,
		"Crawl each seed independently instead of through one shared crawl")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Concurrent crawls in independent mode")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkrot in current or home directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output report in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output report in Markdown format")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to a file instead of stdout")
	cmd.Flags().BoolP("all", "a", false,
		"Include healthy links in the report")
	cmd.Flags().BoolP("save", "s", false,
		"Save the run to the history database for later comparison")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCheck(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its root.
func getVerboseFlag(cmd *cobra.Command) bool {
	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil {
		return verbose
	}
	if verbose, err := cmd.Root().PersistentFlags().GetBool("verbose"); err == nil {
		return verbose
	}
	return false
}

// buildConfig builds the crawl configuration from command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Targets = args
	cfg.Verbose = getVerboseFlag(cmd)

	depth, err := cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}
	cfg.MaxDepth = depth

	maxTries, err := cmd.Flags().GetInt("max-tries")
	if err != nil {
		return nil, err
	}
	cfg.MaxTries = maxTries

	maxTime, err := cmd.Flags().GetDuration("max-time")
	if err != nil {
		return nil, err
	}
	cfg.MaxTime = maxTime

	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}
	cfg.Timeout = timeout

	maxBodySize, err := cmd.Flags().GetInt64("max-body-size")
	if err != nil {
		return nil, err
	}
	cfg.MaxBodySize = maxBodySize

	userAgent, err := cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}
	cfg.UserAgent = userAgent

	excludePrefixes, err := cmd.Flags().GetStringSlice("exclude-prefix")
	if err != nil {
		return nil, err
	}
	cfg.ExcludePrefixes = excludePrefixes

	strategy, err := cmd.Flags().GetString("strategy")
	if err != nil {
		return nil, err
	}
	cfg.Strategy = strategy

	independent, err := cmd.Flags().GetBool("independent")
	if err != nil {
		return nil, err
	}
	cfg.Independent = independent

	batchSize, err := cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}
	cfg.BatchSize = batchSize

	jsonReport, err := cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	cfg.JSONReport = jsonReport

	markdownReport, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}
	cfg.MarkdownReport = markdownReport

	reportFile, err := cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}
	cfg.ReportFile = reportFile

	showAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return nil, err
	}
	cfg.ShowAll = showAll

	saveHistory, err := cmd.Flags().GetBool("save")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = saveHistory

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = configPath

	// An explicitly requested config file must exist; the default
	// lookup is allowed to come up empty.
	explicitConfigPath := cfg.ConfigFilePath != ""
	foundPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case foundPath != "":
		siteConfigs, err := config.LoadConfigFile(foundPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", foundPath, err)
		}
		cfg.SiteConfigs = siteConfigs
	case explicitConfigPath:
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	return cfg, nil
}

// normalizeSeed validates a seed URL and fills in the https scheme when
// the user typed a bare host.
func normalizeSeed(raw string) (string, error) {
	seed := strings.TrimSpace(raw)
	if seed == "" {
		return "", errors.New("empty URL")
	}
	if !strings.Contains(seed, "://") {
		seed = "https://" + seed
	}

	u, err := url.Parse(seed)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("missing host")
	}
	return seed, nil
}

// runCheck crawls the configured seeds and reports the results.
func runCheck(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.Targets) == 0 {
		return errors.New("no seed URL provided (specify one or more URLs as arguments)")
	}
	for i, target := range cfg.Targets {
		seed, err := normalizeSeed(target)
		if err != nil {
			return fmt.Errorf("invalid seed URL %q: %w", target, err)
		}
		cfg.Targets[i] = seed
	}

	logger.Info("starting crawl",
		"seeds", len(cfg.Targets),
		"strategy", cfg.Strategy,
		"depth", cfg.MaxDepth,
		"independent", cfg.Independent)

	var db *database.HistoryDB
	if cfg.SaveHistory {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	// When the formatted report goes to stdout, move the per-link
	// progress lines to stderr so stdout stays parseable.
	progressOut := io.Writer(os.Stdout)
	if (cfg.JSONReport || cfg.MarkdownReport) && cfg.ReportFile == "" {
		progressOut = os.Stderr
	}
	progress := report.NewStreamWriter(progressOut)

	if cfg.Independent && len(cfg.Targets) > 1 {
		return runIndependentChecks(ctx, cfg, db, progress, logger)
	}
	return runSharedCheck(ctx, cfg, db, progress, logger)
}

// runSharedCheck crawls all seeds through one shared frontier, so a
// link reachable from two seeds is checked once.
func runSharedCheck(ctx context.Context, cfg *config.Config, db *database.HistoryDB, progress crawler.ResultWriter, logger *slog.Logger) error {
	site := siteForRun(cfg, logger)

	strategy, err := buildStrategy(cfg, site, logger)
	if err != nil {
		return err
	}
	seeker := newSeekerFactory(cfg, site, strategy, progress, logger)()

	rep, seekErr := seeker.Seek(ctx, cfg.Targets)
	if seekErr != nil {
		logger.Warn("crawl interrupted", "error", seekErr)
	}
	if rep == nil {
		return seekErr
	}

	out, err := openReportOutput(cfg)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := writeReport(cfg, out, rep); err != nil {
		return err
	}
	if err := saveReport(ctx, db, rep, logger); err != nil {
		return err
	}
	if seekErr != nil {
		return seekErr
	}
	return brokenLinksError(rep.BrokenCount())
}

// runIndependentChecks crawls every seed in its own crawl and writes
// one report per seed.
func runIndependentChecks(ctx context.Context, cfg *config.Config, db *database.HistoryDB, progress crawler.ResultWriter, logger *slog.Logger) error {
	if cfg.SiteConfigs != nil && len(cfg.SiteConfigs.Sites) > 0 {
		logger.Warn("independent mode applies config file defaults only; per-site settings are skipped",
			"sites", len(cfg.SiteConfigs.Sites))
	}
	var site config.SiteConfig
	if cfg.SiteConfigs != nil {
		site = cfg.SiteConfigs.Defaults
	}

	strategy, err := buildStrategy(cfg, site, logger)
	if err != nil {
		return err
	}

	batch := crawler.NewBatch(newSeekerFactory(cfg, site, strategy, progress, logger),
		crawler.WithConcurrency(cfg.BatchSize),
		crawler.WithBatchLogger(logger))

	reports, runErr := batch.Run(ctx, cfg.Targets)
	if runErr != nil {
		logger.Warn("batch interrupted", "error", runErr)
	}

	out, err := openReportOutput(cfg)
	if err != nil {
		return err
	}
	defer out.Close()

	broken := 0
	for _, rep := range reports {
		if rep == nil {
			continue
		}
		if err := writeReport(cfg, out, rep); err != nil {
			return err
		}
		if err := saveReport(ctx, db, rep, logger); err != nil {
			return err
		}
		broken += rep.BrokenCount()
	}
	if runErr != nil {
		return runErr
	}
	return brokenLinksError(broken)
}

// siteForRun resolves which config file settings apply to this run.
// Site settings are keyed by host, so they only apply when a single
// seed pins the host down; multi-seed runs get the defaults.
func siteForRun(cfg *config.Config, logger *slog.Logger) config.SiteConfig {
	if len(cfg.Targets) == 1 {
		return cfg.SiteOverrides(cfg.Targets[0])
	}
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	if len(cfg.SiteConfigs.Sites) > 0 {
		logger.Warn("multiple seeds share one crawl; per-site settings are skipped",
			"seeds", len(cfg.Targets))
	}
	return cfg.SiteConfigs.Defaults
}

// buildStrategy builds the fetch strategy, letting config file
// settings override the flag values.
func buildStrategy(cfg *config.Config, site config.SiteConfig, logger *slog.Logger) (crawler.Strategy, error) {
	kind := crawler.Kind(cfg.Strategy)
	if site.Strategy != "" {
		kind = crawler.Kind(site.Strategy)
	}

	userAgent := cfg.UserAgent
	if site.UserAgent != "" {
		userAgent = site.UserAgent
	}

	return crawler.NewStrategy(kind, crawler.NewHTTPClient(cfg.Timeout),
		crawler.WithUserAgent(userAgent),
		crawler.WithMaxTries(cfg.MaxTries),
		crawler.WithMaxTime(cfg.MaxTime),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithLogger(logger))
}

// newSeekerFactory returns a constructor for crawl seekers sharing one
// strategy. The strategy and acceptor hold no per-crawl state, so the
// seekers they serve may run concurrently.
func newSeekerFactory(cfg *config.Config, site config.SiteConfig, strategy crawler.Strategy, progress crawler.ResultWriter, logger *slog.Logger) func() *crawler.Seeker {
	depth := cfg.MaxDepth
	if site.Depth != nil {
		depth = *site.Depth
	}

	prefixes := cfg.ExcludePrefixes
	if len(site.ExcludePrefixes) > 0 {
		prefixes = site.ExcludePrefixes
	}
	acceptor := crawler.NewLinkAcceptor(crawler.WithExcludePrefixes(prefixes...))

	return func() *crawler.Seeker {
		return crawler.NewSeeker(strategy,
			crawler.WithMaxDepth(depth),
			crawler.WithAcceptor(acceptor),
			crawler.WithProgress(progress),
			crawler.WithSeekerLogger(logger))
	}
}

// openReportOutput resolves the report destination. The caller owns
// closing the returned writer.
func openReportOutput(cfg *config.Config) (io.WriteCloser, error) {
	if cfg.ReportFile == "" {
		return nopWriteCloser{os.Stdout}, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// writeReport renders one report in the configured format.
func writeReport(cfg *config.Config, w io.Writer, rep *model.Report) error {
	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(w)
	default:
		writer = report.NewSimpleWriter(w, report.WithShowAll(cfg.ShowAll))
	}

	if _, err := writer.Write(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// saveReport persists the report when history saving is enabled.
// A nil db means saving is off.
func saveReport(ctx context.Context, db *database.HistoryDB, rep *model.Report, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	runID, err := db.SaveReport(ctx, rep)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	logger.Info("saved run to history", "runID", runID, "broken", rep.BrokenCount())
	return nil
}

// brokenLinksError turns a broken link count into the command result.
// A non-nil error makes the process exit non-zero, which is what CI
// pipelines key on.
func brokenLinksError(n int) error {
	switch {
	case n == 0:
		return nil
	case n == 1:
		return errors.New("1 broken link found")
	default:
		return fmt.Errorf("%d broken links found", n)
	}
}
