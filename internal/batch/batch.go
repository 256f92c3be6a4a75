// Package batch implements the batch dispatcher: fan queries into
// bounded-concurrency routing calls while preserving input order in
// the output, isolating a single query's failure from the rest of the
// batch.
package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arohandas/introute/models"
)

// Router is the narrow routing surface the dispatcher fans out over.
// internal/router.Router satisfies this; tests can supply a fake.
type Router interface {
	Route(ctx context.Context, query string) (models.RoutingDecision, bool, error)
}

// Result is one query's outcome within a batch. Err is non-nil only
// when routing that single query failed; it never aborts the batch.
type Result struct {
	Query    string
	Decision models.RoutingDecision
	CacheHit bool
	Err      error
}

// BatchResult is the aggregate outcome of one Dispatch call.
type BatchResult struct {
	Results          []Result
	TotalQueries     int
	CacheHits        int
	ProcessingTimeMS int64
}

// Dispatcher fans queries into concurrent Router.Route calls bounded
// by maxConcurrency.
type Dispatcher struct {
	router         Router
	maxConcurrency int
}

// New builds a Dispatcher. maxConcurrency is clamped to at least 1;
// the configured default lives in config.BatchConfig, not here.
func New(router Router, maxConcurrency int) *Dispatcher {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Dispatcher{router: router, maxConcurrency: maxConcurrency}
}

// Dispatch routes every query, preserving input order in the output
// slice regardless of completion order. A single query's routing
// error is captured in its Result rather than propagated, and so is
// ctx's cancellation for queries not yet started; Dispatch itself
// returns a nil error.
func (d *Dispatcher) Dispatch(ctx context.Context, queries []string) (BatchResult, error) {
	start := time.Now()
	results := make([]Result, len(queries))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(d.maxConcurrency)

	for i, query := range queries {
		i, query := i, query
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Query: query, Err: err}
				return nil
			}
			decision, cacheHit, err := d.router.Route(gctx, query)
			results[i] = Result{Query: query, Decision: decision, CacheHit: cacheHit, Err: err}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return BatchResult{}, err
	}

	out := BatchResult{
		Results:          results,
		TotalQueries:     len(queries),
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
	for _, r := range results {
		if r.CacheHit {
			out.CacheHits++
		}
	}
	return out, nil
}
