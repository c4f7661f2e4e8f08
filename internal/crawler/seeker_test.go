package crawler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/linkrot/internal/model"
)

func htmlPage(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, body)
	}
}

func newTestSeeker(client *http.Client, opts ...SeekerOption) *Seeker {
	return NewSeeker(&headFirst{fetcher: newTestFetcher(client)}, opts...)
}

// pathCounter tallies requests per method and path.
type pathCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newPathCounter() *pathCounter {
	return &pathCounter{counts: make(map[string]int)}
}

func (c *pathCounter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.counts[r.Method+" "+r.URL.Path]++
		c.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (c *pathCounter) get(method, path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[method+" "+path]
}

func TestSeekerSeek(t *testing.T) {
	t.Parallel()

	t.Run("reports every reachable link once", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			htmlPage(`<a href="/about">about</a><a href="/missing">missing</a>`)(w, r)
		})
		mux.Handle("/about", htmlPage(`<p>about</p>`))
		srv := httptest.NewServer(mux)
		defer srv.Close()

		report, err := newTestSeeker(srv.Client()).Seek(context.Background(), []string{srv.URL})
		if err != nil {
			t.Fatalf("expected clean crawl, got %v", err)
		}

		if report.Total() != 3 {
			t.Errorf("expected 3 results, got %d", report.Total())
		}
		if report.OKCount() != 2 {
			t.Errorf("expected 2 successes, got %d", report.OKCount())
		}
		if report.BrokenCount() != 1 {
			t.Fatalf("expected 1 broken link, got %d", report.BrokenCount())
		}

		broken := report.Failures[0]
		if broken.Target.URL != srv.URL+"/missing" {
			t.Errorf("expected broken link %q, got %q", srv.URL+"/missing", broken.Target.URL)
		}
		if broken.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", broken.StatusCode)
		}
		if report.Elapsed <= 0 {
			t.Error("expected positive crawl duration")
		}
	})

	t.Run("cycle terminates and each page is fetched once", func(t *testing.T) {
		t.Parallel()

		counter := newPathCounter()
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			htmlPage(`<a href="/loop">loop</a><a href="/loop">again</a>`)(w, r)
		})
		mux.Handle("/loop", htmlPage(`<a href="/">home</a>`))
		srv := httptest.NewServer(counter.middleware(mux))
		defer srv.Close()

		report, err := newTestSeeker(srv.Client()).Seek(context.Background(), []string{srv.URL})
		if err != nil {
			t.Fatalf("expected clean crawl, got %v", err)
		}

		if report.Total() != 2 {
			t.Errorf("expected 2 results for a two-page cycle, got %d", report.Total())
		}
		if got := counter.get(http.MethodGet, "/loop"); got != 1 {
			t.Errorf("expected /loop fetched once, got %d", got)
		}
	})

	t.Run("depth zero checks the seeds only", func(t *testing.T) {
		t.Parallel()

		counter := newPathCounter()
		mux := http.NewServeMux()
		mux.Handle("/", htmlPage(`<a href="/about">about</a>`))
		srv := httptest.NewServer(counter.middleware(mux))
		defer srv.Close()

		seeker := newTestSeeker(srv.Client(), WithMaxDepth(0))
		report, err := seeker.Seek(context.Background(), []string{srv.URL})
		if err != nil {
			t.Fatalf("expected clean crawl, got %v", err)
		}

		if report.Total() != 1 {
			t.Errorf("expected seeds only, got %d results", report.Total())
		}
		if got := counter.get(http.MethodHead, "/about"); got != 0 {
			t.Errorf("expected /about untouched at depth 0, got %d probes", got)
		}
	})

	t.Run("depth bounds the expansion chain", func(t *testing.T) {
		t.Parallel()

		counter := newPathCounter()
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			htmlPage(`<a href="/b">b</a>`)(w, r)
		})
		mux.Handle("/b", htmlPage(`<a href="/c">c</a>`))
		mux.Handle("/c", htmlPage(`<a href="/d">d</a>`))
		mux.Handle("/d", htmlPage(`<p>leaf</p>`))
		srv := httptest.NewServer(counter.middleware(mux))
		defer srv.Close()

		seeker := newTestSeeker(srv.Client(), WithMaxDepth(2))
		report, err := seeker.Seek(context.Background(), []string{srv.URL})
		if err != nil {
			t.Fatalf("expected clean crawl, got %v", err)
		}

		if report.Total() != 3 {
			t.Errorf("expected 3 results at depth 2, got %d", report.Total())
		}
		if got := counter.get(http.MethodHead, "/d"); got != 0 {
			t.Errorf("expected /d beyond the depth bound, got %d probes", got)
		}
	})

	t.Run("off-site pages are checked but never expanded", func(t *testing.T) {
		t.Parallel()

		otherCounter := newPathCounter()
		otherMux := http.NewServeMux()
		otherMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			htmlPage(`<a href="/other-leaf">leaf</a>`)(w, r)
		})
		other := httptest.NewServer(otherCounter.middleware(otherMux))
		defer other.Close()

		mux := http.NewServeMux()
		mux.Handle("/", htmlPage(`<a href="`+other.URL+`">elsewhere</a>`))
		srv := httptest.NewServer(mux)
		defer srv.Close()

		report, err := newTestSeeker(srv.Client()).Seek(context.Background(), []string{srv.URL})
		if err != nil {
			t.Fatalf("expected clean crawl, got %v", err)
		}

		if report.Total() != 2 {
			t.Errorf("expected 2 results, got %d", report.Total())
		}
		if got := otherCounter.get(http.MethodGet, "/"); got != 0 {
			t.Errorf("expected no document GET on the off-site host, got %d", got)
		}
		if got := otherCounter.get(http.MethodHead, "/other-leaf"); got != 0 {
			t.Errorf("expected off-site links to stay unexpanded, got %d probes", got)
		}
	})

	t.Run("crawl survives servers that reject HEAD", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			htmlPage(`<a href="/about">about</a>`)(w, r)
		})
		mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			htmlPage(`<p>about</p>`)(w, r)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		report, err := newTestSeeker(srv.Client()).Seek(context.Background(), []string{srv.URL})
		if err != nil {
			t.Fatalf("expected clean crawl, got %v", err)
		}

		if report.BrokenCount() != 0 {
			t.Errorf("expected no broken links, got %d", report.BrokenCount())
		}
		if report.Total() != 2 {
			t.Errorf("expected 2 results, got %d", report.Total())
		}
	})

	t.Run("one dead link does not sink the wave", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			htmlPage(`<a href="/dead">dead</a><a href="/about">about</a>`)(w, r)
		})
		mux.Handle("/about", htmlPage(`<p>about</p>`))
		mux.HandleFunc("/dead", func(w http.ResponseWriter, r *http.Request) {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err != nil {
				t.Errorf("hijack failed: %v", err)
				return
			}
			conn.Close()
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		report, err := newTestSeeker(srv.Client()).Seek(context.Background(), []string{srv.URL})
		if err != nil {
			t.Fatalf("expected crawl to finish, got %v", err)
		}

		if report.OKCount() != 2 {
			t.Errorf("expected 2 successes, got %d", report.OKCount())
		}
		if report.BrokenCount() != 1 {
			t.Fatalf("expected 1 broken link, got %d", report.BrokenCount())
		}
		if got := report.Failures[0].StatusCode; got != model.StatusTransportFailure {
			t.Errorf("expected status %d for the dead link, got %d", model.StatusTransportFailure, got)
		}
	})

	t.Run("excluded prefixes never enter the frontier", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.Handle("/", htmlPage(`<a href="mailto:team@example.com">mail</a><a href="/about">about</a>`))
		srv := httptest.NewServer(mux)
		defer srv.Close()

		report, err := newTestSeeker(srv.Client()).Seek(context.Background(), []string{srv.URL})
		if err != nil {
			t.Fatalf("expected clean crawl, got %v", err)
		}

		if report.Total() != 2 {
			t.Errorf("expected the mailto link to be skipped, got %d results", report.Total())
		}
		for _, res := range report.Successes {
			if strings.HasPrefix(res.Target.URL, "mailto:") {
				t.Errorf("mailto target was fetched: %q", res.Target.URL)
			}
		}
	})

	t.Run("duplicate seeds collapse", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.Handle("/", htmlPage(`<p>home</p>`))
		srv := httptest.NewServer(mux)
		defer srv.Close()

		report, err := newTestSeeker(srv.Client()).Seek(context.Background(), []string{srv.URL, srv.URL})
		if err != nil {
			t.Fatalf("expected clean crawl, got %v", err)
		}
		if report.Total() != 1 {
			t.Errorf("expected duplicate seeds to collapse, got %d results", report.Total())
		}
	})

	t.Run("no seeds yields an empty report", func(t *testing.T) {
		t.Parallel()

		report, err := newTestSeeker(http.DefaultClient).Seek(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected vacuous success, got %v", err)
		}
		if report.Total() != 0 {
			t.Errorf("expected empty report, got %d results", report.Total())
		}
	})

	t.Run("cancelled context returns the partial report", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		report, err := newTestSeeker(http.DefaultClient).Seek(ctx, []string{"http://127.0.0.1:0/"})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if report == nil {
			t.Fatal("expected a partial report alongside the error")
		}
		if report.Total() != 0 {
			t.Errorf("expected no results before the first wave, got %d", report.Total())
		}
	})

	t.Run("progress writer sees every result", func(t *testing.T) {
		t.Parallel()

		var progress resultCollector
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			htmlPage(`<a href="/about">about</a>`)(w, r)
		})
		mux.Handle("/about", htmlPage(`<p>about</p>`))
		srv := httptest.NewServer(mux)
		defer srv.Close()

		seeker := newTestSeeker(srv.Client(), WithProgress(&progress))
		report, err := seeker.Seek(context.Background(), []string{srv.URL})
		if err != nil {
			t.Fatalf("expected clean crawl, got %v", err)
		}

		if len(progress.results) != report.Total() {
			t.Errorf("expected %d streamed results, got %d", report.Total(), len(progress.results))
		}
	})
}

// resultCollector implements ResultWriter for tests. The seeker calls
// WriteResult from its own goroutine only, so no locking is needed.
type resultCollector struct {
	results []*model.FetchResult
}

func (c *resultCollector) WriteResult(res *model.FetchResult) {
	c.results = append(c.results, res)
}

func TestResolveLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		home string
		raw  string
		want string
		ok   bool
	}{
		{
			name: "relative path resolves against home",
			home: "https://example.com/docs/",
			raw:  "guide.html",
			want: "https://example.com/docs/guide.html",
			ok:   true,
		},
		{
			name: "rooted path resolves against host",
			home: "https://example.com/docs/",
			raw:  "/about",
			want: "https://example.com/about",
			ok:   true,
		},
		{
			name: "sibling document replaces the page segment",
			home: "https://example.com/docs/page.html",
			raw:  "other.html",
			want: "https://example.com/docs/other.html",
			ok:   true,
		},
		{
			name: "absolute url passes through untouched",
			home: "https://example.com",
			raw:  "https://other.example/page",
			want: "https://other.example/page",
			ok:   true,
		},
		{
			name: "protocol-relative url passes through untouched",
			home: "https://example.com",
			raw:  "//cdn.example.com/lib.js",
			want: "//cdn.example.com/lib.js",
			ok:   true,
		},
		{
			name: "mailto survives resolution for the acceptor to reject",
			home: "https://example.com",
			raw:  "mailto:team@example.com",
			want: "mailto:team@example.com",
			ok:   true,
		},
		{
			name: "fragment resolves to the page with fragment",
			home: "https://example.com/",
			raw:  "#section",
			want: "https://example.com/#section",
			ok:   true,
		},
		{
			name: "query-only reference keeps the page path",
			home: "https://example.com/search",
			raw:  "?q=go",
			want: "https://example.com/search?q=go",
			ok:   true,
		},
		{
			name: "surrounding whitespace is trimmed",
			home: "https://example.com/",
			raw:  "  /about  ",
			want: "https://example.com/about",
			ok:   true,
		},
		{
			name: "empty reference is dropped",
			home: "https://example.com/",
			raw:  "   ",
			ok:   false,
		},
		{
			name: "unparseable reference is dropped",
			home: "https://example.com/",
			raw:  "http://[::1]:namedport",
			ok:   false,
		},
		{
			name: "unparseable home drops relative references",
			home: "://missing-scheme",
			raw:  "/about",
			ok:   false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := resolveLink(tt.home, tt.raw)
			if ok != tt.ok {
				t.Fatalf("resolveLink(%q, %q) ok = %v, expected %v", tt.home, tt.raw, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("resolveLink(%q, %q) = %q, expected %q", tt.home, tt.raw, got, tt.want)
			}
		})
	}
}
