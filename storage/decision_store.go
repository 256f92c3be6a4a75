package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arohandas/introute/models"
)

// DecisionLogStore implements internal/decisionlog.DecisionStore
// against the decision_log table.
type DecisionLogStore struct {
	db *DB
}

// NewDecisionLogStore adapts db to internal/decisionlog.DecisionStore.
func NewDecisionLogStore(db *DB) *DecisionLogStore {
	return &DecisionLogStore{db: db}
}

// Append inserts a new decision-log row. request_id is the primary
// key; a duplicate append for the same request_id overwrites rather
// than erroring, matching the cache's race-tolerant write semantics.
func (s *DecisionLogStore) Append(ctx context.Context, decision models.RoutingDecision) error {
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO decision_log (
			request_id, query_text, category, complexity, confidence,
			backend, agent_id, reason, forced, cache_hit, cache_tier,
			created_at, processing_time_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO UPDATE SET
			query_text = excluded.query_text,
			category = excluded.category,
			complexity = excluded.complexity,
			confidence = excluded.confidence,
			backend = excluded.backend,
			agent_id = excluded.agent_id,
			reason = excluded.reason,
			forced = excluded.forced,
			cache_hit = excluded.cache_hit,
			cache_tier = excluded.cache_tier,
			processing_time_ms = excluded.processing_time_ms
	`,
		decision.RequestID, decision.Query, decision.Classification.Category, decision.Classification.Complexity,
		decision.Classification.Confidence, decision.Backend, decision.AgentID, decision.Reason,
		decision.Forced, decision.CacheHit, decision.CacheTier,
		decision.Timestamp, decision.ProcessingTime.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("storage: append decision %s: %w", decision.RequestID, err)
	}
	return nil
}

// Amend applies a Feedback submission to the row named by requestID.
// Per the Feedback API contract an unknown request_id is a non-fatal
// no-op: the UPDATE simply touches zero rows.
func (s *DecisionLogStore) Amend(ctx context.Context, requestID string, feedback models.Feedback) error {
	verdict := "negative"
	if feedback.Success {
		verdict = "positive"
	}

	_, err := s.db.conn.ExecContext(ctx, `
		UPDATE decision_log
		SET verdict = ?, comment = ?, corrected_backend = ?
		WHERE request_id = ?
	`, verdict, feedback.Notes, nullableBackend(feedback.CorrectedBackend), requestID)
	if err != nil {
		return fmt.Errorf("storage: amend decision %s: %w", requestID, err)
	}
	return nil
}

// Get returns the single decision recorded under requestID, if any.
func (s *DecisionLogStore) Get(ctx context.Context, requestID string) (models.RoutingDecision, bool, error) {
	row := s.db.conn.QueryRowContext(ctx, `
		SELECT request_id, query_text, category, complexity, confidence,
		       backend, agent_id, reason, forced, cache_hit, cache_tier,
		       created_at, processing_time_ms
		FROM decision_log WHERE request_id = ?
	`, requestID)

	var (
		d                models.RoutingDecision
		agentID          sql.NullString
		cacheTier        sql.NullString
		processingTimeMS int64
	)
	err := row.Scan(&d.RequestID, &d.Query, &d.Classification.Category, &d.Classification.Complexity,
		&d.Classification.Confidence, &d.Backend, &agentID, &d.Reason, &d.Forced, &d.CacheHit, &cacheTier,
		&d.Timestamp, &processingTimeMS)
	if err == sql.ErrNoRows {
		return models.RoutingDecision{}, false, nil
	}
	if err != nil {
		return models.RoutingDecision{}, false, fmt.Errorf("storage: get decision %s: %w", requestID, err)
	}
	d.AgentID = agentID.String
	d.CacheTier = models.CacheTier(cacheTier.String)
	d.ProcessingTime = time.Duration(processingTimeMS) * time.Millisecond
	return d, true, nil
}

// Query returns every decision recorded since since, for analytics
// aggregation over a time window.
func (s *DecisionLogStore) Query(ctx context.Context, since time.Time) ([]models.RoutingDecision, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT request_id, query_text, category, complexity, confidence,
		       backend, agent_id, reason, forced, cache_hit, cache_tier,
		       created_at, processing_time_ms
		FROM decision_log WHERE created_at >= ?
		ORDER BY created_at ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("storage: query decision log since %s: %w", since, err)
	}
	defer rows.Close()

	var out []models.RoutingDecision
	for rows.Next() {
		var (
			d                 models.RoutingDecision
			agentID           sql.NullString
			cacheTier         sql.NullString
			processingTimeMS  int64
		)
		if err := rows.Scan(&d.RequestID, &d.Query, &d.Classification.Category, &d.Classification.Complexity,
			&d.Classification.Confidence, &d.Backend, &agentID, &d.Reason, &d.Forced, &d.CacheHit, &cacheTier,
			&d.Timestamp, &processingTimeMS); err != nil {
			return nil, fmt.Errorf("storage: scan decision log row: %w", err)
		}
		d.AgentID = agentID.String
		d.CacheTier = models.CacheTier(cacheTier.String)
		d.ProcessingTime = time.Duration(processingTimeMS) * time.Millisecond
		out = append(out, d)
	}
	return out, rows.Err()
}

func nullableBackend(b models.Backend) any {
	if b == "" {
		return nil
	}
	return b
}
