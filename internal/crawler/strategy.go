package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/linkrot/internal/model"
)

// Defaults applied by NewStrategy when no option overrides them.
const (
	// DefaultUserAgent identifies requests as an ordinary browser.
	// Some sites answer bots with 403 regardless of link health.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/60.0.3112.113 Safari/537.36"

	// DefaultMaxTries is the attempt cap per fetch operation.
	DefaultMaxTries = 4

	// DefaultMaxTime bounds the total duration of one fetch operation,
	// retries and backoff included.
	DefaultMaxTime = 30 * time.Second

	// DefaultMaxBodySize caps how much of an HTML document is read for
	// link extraction.
	DefaultMaxBodySize = 5 << 20

	// DefaultTimeout is the per-request timeout of the HTTP client.
	DefaultTimeout = 10 * time.Second

	// defaultBackoff is the first retry delay; it doubles per attempt.
	defaultBackoff = 100 * time.Millisecond
)

// Kind selects a fetch strategy.
type Kind string

const (
	// KindHeadThenGet probes every target with HEAD and follows up
	// with GET only when needed: on a 405 rejection, or to pull the
	// document of an on-site page.
	KindHeadThenGet Kind = "head-then-get"

	// KindGetOnSite issues GET directly for on-site targets and falls
	// back to the HEAD probe for everything off-site.
	KindGetOnSite Kind = "get-on-site"
)

// Strategy fetches one target and reports what happened. Fetch never
// returns nil; transport failures and failing statuses are recorded on
// the result itself so the caller can aggregate without special cases.
type Strategy interface {
	Fetch(ctx context.Context, target model.Target) *model.FetchResult
}

// fetcher holds the configuration shared by all strategies.
type fetcher struct {
	client      *http.Client
	userAgent   string
	maxTries    int
	maxTime     time.Duration
	maxBodySize int64
	backoff     time.Duration
	logger      *slog.Logger
}

// Option configures a fetch strategy.
type Option func(*fetcher)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *fetcher) {
		f.userAgent = ua
	}
}

// WithMaxTries sets the attempt cap per fetch operation.
func WithMaxTries(n int) Option {
	return func(f *fetcher) {
		f.maxTries = n
	}
}

// WithMaxTime bounds the total duration of one fetch operation.
func WithMaxTime(d time.Duration) Option {
	return func(f *fetcher) {
		f.maxTime = d
	}
}

// WithMaxBodySize caps how many bytes of an HTML document are read.
func WithMaxBodySize(n int64) Option {
	return func(f *fetcher) {
		f.maxBodySize = n
	}
}

// WithLogger sets the logger used for per-attempt debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(f *fetcher) {
		f.logger = logger
	}
}

// NewStrategy builds the strategy named by kind. A nil client gets the
// tuned default from NewHTTPClient.
func NewStrategy(kind Kind, client *http.Client, opts ...Option) (Strategy, error) {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}

	f := &fetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxTries:    DefaultMaxTries,
		maxTime:     DefaultMaxTime,
		maxBodySize: DefaultMaxBodySize,
		backoff:     defaultBackoff,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	switch kind {
	case KindHeadThenGet:
		return &headFirst{fetcher: f}, nil
	case KindGetOnSite:
		return &getOnSite{fetcher: f, head: &headFirst{fetcher: f}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}
}

// newRetrier starts a fresh budget for one fetch operation.
func (f *fetcher) newRetrier() *retrier {
	return &retrier{
		client:      f.client,
		userAgent:   f.userAgent,
		maxTries:    f.maxTries,
		maxTime:     f.maxTime,
		backoff:     f.backoff,
		maxBodySize: f.maxBodySize,
		logger:      f.logger,
	}
}

// get issues the document GET for target, recording status, body, and
// error on out. The body is requested only for on-site targets; link
// rot on someone else's site is theirs to crawl.
func (f *fetcher) get(ctx context.Context, r *retrier, target model.Target, out *model.FetchResult) {
	ex, err := r.do(ctx, http.MethodGet, target.URL, target.OnSite())
	if ex != nil {
		out.StatusCode = ex.status
		out.Body = ex.body
	}
	if err != nil {
		out.Err = err
		if out.StatusCode == model.StatusNone {
			out.StatusCode = model.StatusTransportFailure
		}
	}
}

// headFirst probes with HEAD before committing to a document GET.
type headFirst struct {
	*fetcher
}

// Fetch checks target with a HEAD probe. A 405 rejection substitutes
// GET on the same retry budget, since the server has already answered
// and the operation should not start over. A successful probe of an
// on-site target is followed by the document GET on a fresh budget.
func (s *headFirst) Fetch(ctx context.Context, target model.Target) *model.FetchResult {
	start := time.Now()
	out := &model.FetchResult{Target: target}
	defer func() { out.Elapsed = time.Since(start) }()

	r := s.newRetrier()
	ex, err := r.do(ctx, http.MethodHead, target.URL, false)
	if ex != nil {
		out.StatusCode = ex.status
	}
	if err != nil {
		var respErr *model.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusMethodNotAllowed {
			s.get(ctx, r, target, out)
			return out
		}
		out.Err = err
		if out.StatusCode == model.StatusNone {
			out.StatusCode = model.StatusTransportFailure
		}
		return out
	}

	if target.OnSite() {
		s.get(ctx, s.newRetrier(), target, out)
	}
	return out
}

// getOnSite skips the HEAD probe for on-site targets, trading one
// round trip for the document the crawl needs anyway.
type getOnSite struct {
	*fetcher
	head *headFirst
}

// Fetch issues GET directly when target is on-site and delegates
// off-site targets to the HEAD probe.
func (s *getOnSite) Fetch(ctx context.Context, target model.Target) *model.FetchResult {
	if !target.OnSite() {
		return s.head.Fetch(ctx, target)
	}

	start := time.Now()
	out := &model.FetchResult{Target: target}
	defer func() { out.Elapsed = time.Since(start) }()

	s.get(ctx, s.newRetrier(), target, out)
	return out
}
