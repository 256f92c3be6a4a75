// Package decisionlog implements the append-only decision log: every
// completed routing decision is recorded once, later amended in place
// by feedback, and aggregated into time-windowed analytics reports.
package decisionlog

import (
	"context"
	"fmt"
	"time"

	"github.com/arohandas/introute/models"
)

// DecisionStore persists RoutingDecision records keyed by request ID
// and supports amending one in place plus range queries over
// CreatedAt. Implementations must treat Amend on an unknown
// request_id as a non-fatal no-op, matching the Feedback API's
// "absent request_id is a non-fatal no-op" contract.
type DecisionStore interface {
	Append(ctx context.Context, decision models.RoutingDecision) error
	Amend(ctx context.Context, requestID string, feedback models.Feedback) error
	Query(ctx context.Context, since time.Time) ([]models.RoutingDecision, error)
	Get(ctx context.Context, requestID string) (models.RoutingDecision, bool, error)
}

// Period is one of the four recognized analytics aggregation windows.
type Period string

const (
	Period1Hour   Period = "1h"
	Period24Hours Period = "24h"
	Period7Days   Period = "7d"
	Period30Days  Period = "30d"
)

// Duration maps a Period to the lookback window it names.
func (p Period) Duration() (time.Duration, error) {
	switch p {
	case Period1Hour:
		return time.Hour, nil
	case Period24Hours:
		return 24 * time.Hour, nil
	case Period7Days:
		return 7 * 24 * time.Hour, nil
	case Period30Days:
		return 30 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("decisionlog: unrecognized time period %q", p)
	}
}

// Report aggregates decisions within a time window for the Admin
// analytics() operation.
type Report struct {
	TimePeriod          Period                  `json:"time_period"`
	TotalDecisions      int64                   `json:"total_decisions"`
	CacheHits           int64                   `json:"cache_hits"`
	CacheHitRate        float64                 `json:"cache_hit_rate"`
	AvgProcessingTimeMS float64                 `json:"avg_processing_time_ms"`
	ByBackend           map[models.Backend]int64  `json:"by_backend"`
	ByCategory          map[models.Category]int64 `json:"by_category"`
}

// Log is the Feedback Integrator's view onto a DecisionStore: it
// records fresh decisions, amends them with feedback, and builds
// analytics reports over arbitrary windows.
type Log struct {
	store DecisionStore
}

// New wraps store with the Feedback Integrator's bookkeeping.
func New(store DecisionStore) *Log {
	return &Log{store: store}
}

// Record appends a freshly completed routing decision. The decision
// log is the source of truth for analytics regardless of whether the
// decision came from a cache hit or a fresh classification.
func (l *Log) Record(ctx context.Context, decision models.RoutingDecision) error {
	return l.store.Append(ctx, decision)
}

// Amend applies a Feedback submission to the decision it refers to.
// An unknown request_id is a non-fatal no-op per the Feedback API
// contract; implementations are trusted to honor that, so Amend
// itself never special-cases "not found".
func (l *Log) Amend(ctx context.Context, feedback models.Feedback) error {
	return l.store.Amend(ctx, feedback.RequestID, feedback)
}

// Get returns the decision recorded under requestID, if any. The
// Feedback Integrator uses this to recover the agent/category a piece
// of feedback applies to, since Feedback itself only carries the
// request ID.
func (l *Log) Get(ctx context.Context, requestID string) (models.RoutingDecision, bool, error) {
	return l.store.Get(ctx, requestID)
}

// Analytics aggregates every decision recorded within period into a
// Report.
func (l *Log) Analytics(ctx context.Context, period Period) (Report, error) {
	window, err := period.Duration()
	if err != nil {
		return Report{}, err
	}

	decisions, err := l.store.Query(ctx, time.Now().Add(-window))
	if err != nil {
		return Report{}, fmt.Errorf("decisionlog: analytics query failed: %w", err)
	}

	report := Report{
		TimePeriod: period,
		ByBackend:  make(map[models.Backend]int64),
		ByCategory: make(map[models.Category]int64),
	}

	var totalProcessingTime time.Duration
	for _, d := range decisions {
		report.TotalDecisions++
		if d.CacheHit {
			report.CacheHits++
		}
		report.ByBackend[d.Backend]++
		report.ByCategory[d.Classification.Category]++
		totalProcessingTime += d.ProcessingTime
	}

	if report.TotalDecisions > 0 {
		report.CacheHitRate = float64(report.CacheHits) / float64(report.TotalDecisions)
		report.AvgProcessingTimeMS = float64(totalProcessingTime.Milliseconds()) / float64(report.TotalDecisions)
	}

	return report, nil
}
