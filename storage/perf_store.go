package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arohandas/introute/models"
)

// PerfStore implements internal/selector.PerfStore against the
// performance_records table, keyed by (agent_id, task_type).
type PerfStore struct {
	db *DB
}

// NewPerfStore adapts db to internal/selector.PerfStore.
func NewPerfStore(db *DB) *PerfStore {
	return &PerfStore{db: db}
}

// Load returns the record for (agentID, task), or a zero-valued record
// (TotalExecutions == 0) when none exists yet — an untried agent, not
// an error.
func (s *PerfStore) Load(ctx context.Context, agentID string, task models.TaskType) (models.AgentPerformance, error) {
	var (
		perf          models.AgentPerformance
		lastExecution sql.NullTime
	)
	err := s.db.conn.QueryRowContext(ctx, `
		SELECT agent_id, task_type, total_executions, successful_executions,
		       average_latency_ms, average_quality_score, last_execution
		FROM performance_records WHERE agent_id = ? AND task_type = ?`,
		agentID, task,
	).Scan(&perf.AgentID, &perf.TaskType, &perf.TotalExecutions, &perf.SuccessfulExecutions,
		&perf.AverageLatencyMS, &perf.AverageQualityScore, &lastExecution)

	if err == sql.ErrNoRows {
		return models.AgentPerformance{AgentID: agentID, TaskType: task}, nil
	}
	if err != nil {
		return models.AgentPerformance{}, fmt.Errorf("storage: load performance for %s/%s: %w", agentID, task, err)
	}
	if lastExecution.Valid {
		perf.LastExecution = lastExecution.Time
	}
	return perf, nil
}

// Save upserts perf, keyed by (AgentID, TaskType).
func (s *PerfStore) Save(ctx context.Context, perf models.AgentPerformance) error {
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO performance_records (
			agent_id, task_type, total_executions, successful_executions,
			average_latency_ms, average_quality_score, last_execution
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id, task_type) DO UPDATE SET
			total_executions = excluded.total_executions,
			successful_executions = excluded.successful_executions,
			average_latency_ms = excluded.average_latency_ms,
			average_quality_score = excluded.average_quality_score,
			last_execution = excluded.last_execution
	`,
		perf.AgentID, perf.TaskType, perf.TotalExecutions, perf.SuccessfulExecutions,
		perf.AverageLatencyMS, perf.AverageQualityScore, nullableTime(perf.LastExecution),
	)
	if err != nil {
		return fmt.Errorf("storage: save performance for %s/%s: %w", perf.AgentID, perf.TaskType, err)
	}
	return nil
}

// All returns every task-type record on file for agentID, for the
// selector's PerformanceReport aggregation.
func (s *PerfStore) All(ctx context.Context, agentID string) ([]models.AgentPerformance, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT agent_id, task_type, total_executions, successful_executions,
		       average_latency_ms, average_quality_score, last_execution
		FROM performance_records WHERE agent_id = ?`, agentID)
	if err != nil {
		return nil, fmt.Errorf("storage: list performance for %s: %w", agentID, err)
	}
	defer rows.Close()

	var out []models.AgentPerformance
	for rows.Next() {
		var (
			perf          models.AgentPerformance
			lastExecution sql.NullTime
		)
		if err := rows.Scan(&perf.AgentID, &perf.TaskType, &perf.TotalExecutions, &perf.SuccessfulExecutions,
			&perf.AverageLatencyMS, &perf.AverageQualityScore, &lastExecution); err != nil {
			return nil, fmt.Errorf("storage: scan performance row: %w", err)
		}
		if lastExecution.Valid {
			perf.LastExecution = lastExecution.Time
		}
		out = append(out, perf)
	}
	return out, rows.Err()
}
