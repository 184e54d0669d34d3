package matching

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"sourcelink/internal/logging"
	"sourcelink/internal/services"
)

const (
	defaultQueryTimeout = 10 * time.Second
	defaultConcurrency  = DefaultMaxQueries
)

// Searcher is a content source's search function. Implementations may return
// unrelated results and may fail or stall.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// SearchFunc adapts a plain function to Searcher.
type SearchFunc func(ctx context.Context, query string) ([]Candidate, error)

// Search implements Searcher.
func (f SearchFunc) Search(ctx context.Context, query string) ([]Candidate, error) {
	return f(ctx, query)
}

// AggregatorOptions bound the fan-out of one Gather call.
type AggregatorOptions struct {
	Concurrency  int
	QueryTimeout time.Duration
}

// Aggregator runs search queries against one source and merges the results.
type Aggregator struct {
	searcher    Searcher
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

// GatherStats summarizes one Gather call.
type GatherStats struct {
	Queries   int
	Failed    int
	Returned  int
	Duplicate int
}

// NewAggregator constructs an aggregator for searcher.
func NewAggregator(searcher Searcher, opts AggregatorOptions, logger *slog.Logger) *Aggregator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = defaultQueryTimeout
	}
	return &Aggregator{
		searcher:    searcher,
		concurrency: opts.Concurrency,
		timeout:     opts.QueryTimeout,
		logger:      logging.NewComponentLogger(logger, "aggregator"),
	}
}

// Gather runs every query concurrently, each under its own timeout. A failed
// query contributes no candidates and never fails the call. Results are
// flattened in query order and de-duplicated by source ID, first occurrence
// winning. An empty result means nothing was found.
func (a *Aggregator) Gather(ctx context.Context, queries []string) ([]Candidate, GatherStats) {
	stats := GatherStats{Queries: len(queries)}
	if len(queries) == 0 {
		return nil, stats
	}
	logger := logging.WithContext(ctx, a.logger)

	results := make([][]Candidate, len(queries))
	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for idx, query := range queries {
		idx, query := idx, query
		g.Go(func() error {
			start := time.Now()
			candidates, err := a.search(ctx, query)
			if err != nil {
				failed.Add(1)
				logging.WarnWithContext(logger, "source query failed",
					"source_query_failed",
					logging.String("query", query),
					logging.Duration("elapsed", time.Since(start)),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the source is reachable and its search URL is correct"),
					logging.String(logging.FieldImpact, "query contributes no candidates"))
				return nil
			}
			logger.Debug("source query completed",
				logging.String("query", query),
				logging.Int("results", len(candidates)),
				logging.Duration("elapsed", time.Since(start)))
			results[idx] = candidates
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	var merged []Candidate
	for _, batch := range results {
		for _, cand := range batch {
			stats.Returned++
			id := strings.TrimSpace(cand.SourceID)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				stats.Duplicate++
				continue
			}
			seen[id] = struct{}{}
			cand.SourceID = id
			merged = append(merged, cand)
		}
	}
	stats.Failed = int(failed.Load())

	logger.Info("candidates gathered",
		logging.Int("queries", stats.Queries),
		logging.Int("failed_queries", stats.Failed),
		logging.Int("candidates", len(merged)),
		logging.Int("duplicates", stats.Duplicate))
	return merged, stats
}

type searchResult struct {
	candidates []Candidate
	err        error
}

// search bounds one query by the aggregator timeout even when the searcher
// ignores its context; a late result is discarded.
func (a *Aggregator) search(ctx context.Context, query string) ([]Candidate, error) {
	queryCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan searchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- searchResult{err: services.Wrap(services.ErrSourceUnavailable, "aggregator", "search", fmt.Sprintf("search panicked: %v", r), nil)}
			}
		}()
		candidates, err := a.searcher.Search(queryCtx, query)
		done <- searchResult{candidates: candidates, err: err}
	}()

	select {
	case res := <-done:
		return res.candidates, res.err
	case <-queryCtx.Done():
		return nil, services.Wrap(services.ErrTimeout, "aggregator", "search", fmt.Sprintf("query %q", query), queryCtx.Err())
	}
}
