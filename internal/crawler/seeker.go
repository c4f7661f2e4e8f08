package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/linkrot/internal/model"
)

// ResultWriter receives each fetch result as it completes, before the
// crawl finishes. Implemented by report.StreamWriter for live output.
type ResultWriter interface {
	WriteResult(result *model.FetchResult)
}

// Seeker drives a breadth-first crawl: it fetches each wave of targets
// concurrently, waits for the whole wave, and builds the next wave
// from the links of the on-site documents that came back.
//
// A Seeker runs one Seek at a time; the visited set is reset on entry.
type Seeker struct {
	strategy  Strategy
	extractor *LinkExtractor
	acceptor  *LinkAcceptor
	maxDepth  int
	visited   map[string]struct{}
	progress  ResultWriter
	logger    *slog.Logger
}

// SeekerOption configures a Seeker.
type SeekerOption func(*Seeker)

// WithMaxDepth bounds how many waves past the seeds the crawl may
// expand. Zero checks the seeds only; model.UnlimitedDepth removes the
// bound.
func WithMaxDepth(depth int) SeekerOption {
	return func(s *Seeker) {
		s.maxDepth = depth
	}
}

// WithAcceptor replaces the default link acceptor.
func WithAcceptor(acceptor *LinkAcceptor) SeekerOption {
	return func(s *Seeker) {
		s.acceptor = acceptor
	}
}

// WithProgress streams each result to w as it completes.
func WithProgress(w ResultWriter) SeekerOption {
	return func(s *Seeker) {
		s.progress = w
	}
}

// WithSeekerLogger sets the crawl progress logger.
func WithSeekerLogger(logger *slog.Logger) SeekerOption {
	return func(s *Seeker) {
		s.logger = logger
	}
}

// NewSeeker builds a Seeker around strategy. Without options the crawl
// is unbounded in depth, rejects DefaultExcludePrefixes, and reports
// progress nowhere.
func NewSeeker(strategy Strategy, opts ...SeekerOption) *Seeker {
	s := &Seeker{
		strategy:  strategy,
		extractor: NewLinkExtractor(),
		acceptor:  NewLinkAcceptor(),
		maxDepth:  model.UnlimitedDepth,
		visited:   make(map[string]struct{}),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seek crawls from seeds and returns the aggregated report. Duplicate
// seeds collapse into one target. When ctx is cancelled the partial
// report is returned along with the context error; waves already in
// flight finish first, so no completed fetch is lost.
func (s *Seeker) Seek(ctx context.Context, seeds []string) (*model.Report, error) {
	start := time.Now()
	report := model.NewReport(seeds)
	defer func() { report.Elapsed = time.Since(start) }()

	clear(s.visited)
	wave := make([]model.Target, 0, len(seeds))
	for _, seed := range seeds {
		if _, ok := s.visited[seed]; ok {
			continue
		}
		s.visited[seed] = struct{}{}
		wave = append(wave, model.NewSeedTarget(seed, s.maxDepth))
	}

	for len(wave) > 0 {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		s.logger.Debug("crawling wave", "targets", len(wave))

		// The channel holds the whole wave, so fetch goroutines never
		// block on send and always exit.
		results := make(chan *model.FetchResult, len(wave))
		for _, target := range wave {
			target := target
			go func() {
				results <- s.strategy.Fetch(ctx, target)
			}()
		}

		var next []model.Target
		for range wave {
			res := <-results
			s.record(report, res)
			next = s.expand(next, res)
		}
		wave = next
	}

	return report, nil
}

// record books the result and streams it to the progress writer.
func (s *Seeker) record(report *model.Report, res *model.FetchResult) {
	report.Add(res)
	if s.progress != nil {
		s.progress.WriteResult(res)
	}
	s.logger.Debug("fetched",
		"url", res.Target.URL,
		"status", res.StatusCode,
		"elapsed_ms", res.ElapsedMillis(),
	)
}

// expand queues the links of res for the next wave. Only expandable
// targets contribute; off-site pages and non-HTML responses arrived
// with an empty body and fall through.
func (s *Seeker) expand(next []model.Target, res *model.FetchResult) []model.Target {
	if res.Body == "" || !res.Target.Expandable() {
		return next
	}

	s.extractor.Reset()
	for _, link := range s.extractor.Extract(res.Body) {
		resolved, ok := resolveLink(res.Target.Home, link)
		if !ok || !s.acceptor.Accept(resolved) {
			continue
		}
		if _, seen := s.visited[resolved]; seen {
			continue
		}
		s.visited[resolved] = struct{}{}
		next = append(next, res.Target.Child(resolved))
	}
	return next
}

// resolveLink turns a raw document reference into a crawlable URL.
// Relative references resolve against home; absolute ones pass through
// untouched, so the visited set keys on the exact strings the
// documents carry.
func resolveLink(home, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if ref.Host != "" {
		return raw, true
	}

	base, err := url.Parse(home)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}
