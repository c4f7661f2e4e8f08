package crawler

import (
	"context"
	"log/slog"

	"github.com/nao1215/linkrot/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency caps how many independent crawls Batch runs at
// once.
const DefaultConcurrency = 4

// Batch runs an independent crawl per seed for site lists that share
// nothing but the invocation. Each crawl gets its own Seeker, so the
// visited sets and reports stay disjoint.
type Batch struct {
	newSeeker   func() *Seeker
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithConcurrency caps the number of crawls in flight.
func WithConcurrency(n int) BatchOption {
	return func(b *Batch) {
		b.concurrency = n
	}
}

// WithBatchLogger sets the batch progress logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *Batch) {
		b.logger = logger
	}
}

// NewBatch builds a Batch. newSeeker is called once per seed, so the
// crawls must not share mutable state through it.
func NewBatch(newSeeker func() *Seeker, opts ...BatchOption) *Batch {
	b := &Batch{
		newSeeker:   newSeeker,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run crawls every seed independently and returns one report per seed,
// in input order. The first crawl error cancels the remaining crawls;
// reports finished by then are still returned.
func (b *Batch) Run(ctx context.Context, seeds []string) ([]*model.Report, error) {
	reports := make([]*model.Report, len(seeds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, seed := range seeds {
		i, seed := i, seed
		g.Go(func() error {
			b.logger.Debug("starting crawl", "seed", seed)
			report, err := b.newSeeker().Seek(ctx, []string{seed})
			reports[i] = report
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}
