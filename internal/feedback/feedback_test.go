package feedback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arohandas/introute/internal/decisionlog"
	"github.com/arohandas/introute/models"
)

type memStore struct {
	mu        sync.Mutex
	decisions map[string]models.RoutingDecision
}

func newMemStore() *memStore {
	return &memStore{decisions: make(map[string]models.RoutingDecision)}
}

func (m *memStore) Append(_ context.Context, decision models.RoutingDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[decision.RequestID] = decision
	return nil
}

func (m *memStore) Amend(_ context.Context, requestID string, feedback models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.decisions[requestID]
	if !ok {
		return nil
	}
	return nil
}

func (m *memStore) Get(_ context.Context, requestID string) (models.RoutingDecision, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[requestID]
	return d, ok, nil
}

func (m *memStore) Query(_ context.Context, since time.Time) ([]models.RoutingDecision, error) {
	return nil, nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []models.OutcomeRecord
	err      error
}

func (f *fakeRecorder) RecordOutcome(_ context.Context, outcome models.OutcomeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.outcomes = append(f.outcomes, outcome)
	return nil
}

func TestSubmit_RecordsOutcomeForAgentOnKnownDecision(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.Append(ctx, models.RoutingDecision{
		RequestID:      "req-1",
		AgentID:        "AGENT-006",
		Classification: models.Classification{Category: models.CategoryDocumentLookup},
		Timestamp:      time.Now(),
	}))

	log := decisionlog.New(store)
	recorder := &fakeRecorder{}
	sink := NewMemoryCalibrationSink()
	integrator := New(log, recorder, sink)

	err := integrator.Submit(ctx, models.Feedback{
		RequestID:    "req-1",
		Success:      true,
		QualityScore: 0.9,
		LatencyMS:    120,
		Timestamp:    time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, recorder.outcomes, 1)
	assert.Equal(t, "AGENT-006", recorder.outcomes[0].AgentID)
	assert.Equal(t, models.TaskAnswerGeneration, recorder.outcomes[0].TaskType)
	assert.True(t, recorder.outcomes[0].Success)
	assert.Empty(t, sink.Entries())
}

func TestSubmit_UnknownRequestIDIsNoOp(t *testing.T) {
	ctx := context.Background()
	log := decisionlog.New(newMemStore())
	integrator := New(log, &fakeRecorder{}, NewMemoryCalibrationSink())

	err := integrator.Submit(ctx, models.Feedback{RequestID: "missing", Success: true})
	assert.NoError(t, err)
}

func TestSubmit_CorrectedBackendReachesCalibrationSink(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.Append(ctx, models.RoutingDecision{
		RequestID:      "req-2",
		AgentID:        "AGENT-006",
		Classification: models.Classification{Category: models.CategoryMultiStep},
		Backend:        models.BackendMultiAgentSequential,
		Timestamp:      time.Now(),
	}))

	log := decisionlog.New(store)
	sink := NewMemoryCalibrationSink()
	integrator := New(log, &fakeRecorder{}, sink)

	require.NoError(t, integrator.Submit(ctx, models.Feedback{
		RequestID:        "req-2",
		Success:          false,
		CorrectedBackend: models.BackendAdaptiveIterative,
		Notes:            "should have gone adaptive",
		Timestamp:        time.Now(),
	}))

	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.CategoryMultiStep, entries[0].Category)
	assert.Equal(t, models.BackendAdaptiveIterative, entries[0].CorrectedBackend)
}

func TestSubmit_NoAgentIDSkipsOutcomeRecording(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.Append(ctx, models.RoutingDecision{
		RequestID: "req-3",
		Timestamp: time.Now(),
	}))

	log := decisionlog.New(store)
	recorder := &fakeRecorder{}
	integrator := New(log, recorder, NewMemoryCalibrationSink())

	require.NoError(t, integrator.Submit(ctx, models.Feedback{RequestID: "req-3", Success: true}))
	assert.Empty(t, recorder.outcomes)
}
