package selector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arohandas/introute/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPerfStore is a trivial in-memory PerfStore for tests.
type memPerfStore struct {
	mu      sync.Mutex
	records map[string]models.AgentPerformance
}

func newMemPerfStore() *memPerfStore {
	return &memPerfStore{records: make(map[string]models.AgentPerformance)}
}

func (m *memPerfStore) Load(_ context.Context, agentID string, task models.TaskType) (models.AgentPerformance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if perf, ok := m.records[cacheKey(agentID, task)]; ok {
		return perf, nil
	}
	return models.AgentPerformance{AgentID: agentID, TaskType: task}, nil
}

func (m *memPerfStore) Save(_ context.Context, perf models.AgentPerformance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[cacheKey(perf.AgentID, perf.TaskType)] = perf
	return nil
}

func (m *memPerfStore) All(_ context.Context, agentID string) ([]models.AgentPerformance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AgentPerformance
	for _, perf := range m.records {
		if perf.AgentID == agentID {
			out = append(out, perf)
		}
	}
	return out, nil
}

func TestBackendFor_ResearchHighConfidence(t *testing.T) {
	backend, confidence, reason := BackendFor(models.CategoryResearch, models.NewFeatureSet(), models.ComplexityModerate)
	assert.Equal(t, models.BackendAdaptiveIterative, backend)
	assert.Equal(t, 0.90, confidence)
	assert.NotEmpty(t, reason)
}

func TestBackendFor_ConversationalDirect(t *testing.T) {
	backend, _, _ := BackendFor(models.CategoryConversational, models.NewFeatureSet(), models.ComplexitySimple)
	assert.Equal(t, models.BackendDirectRetrieval, backend)
}

func TestBackendFor_MultiDocumentAnalysisIsMultiAgent(t *testing.T) {
	features := models.NewFeatureSet(models.FeatureMultiDocument)
	backend, _, _ := BackendFor(models.CategoryDocumentAnalysis, features, models.ComplexityModerate)
	assert.Equal(t, models.BackendMultiAgentSequential, backend)
}

func TestSelect_NoEligibleAgentsErrors(t *testing.T) {
	s := New(newMemPerfStore(), 0.1, 5, false)
	all := EligibleAgents(models.TaskQueryRouting)
	_, err := s.Select(context.Background(), models.TaskQueryRouting, all)
	assert.Error(t, err)
}

func TestSelect_ReturnsEligibleAgent(t *testing.T) {
	s := New(newMemPerfStore(), 0, 5, false) // epsilon 0: always exploit
	result, err := s.Select(context.Background(), models.TaskSummarization, nil)
	require.NoError(t, err)
	assert.Contains(t, EligibleAgents(models.TaskSummarization), result.AgentID)
	assert.LessOrEqual(t, len(result.Alternatives), 3)
}

func TestRecordOutcome_EWMAUpdatesPerformance(t *testing.T) {
	store := newMemPerfStore()
	s := New(store, 0, 5, false)

	ctx := context.Background()
	err := s.RecordOutcome(ctx, models.OutcomeRecord{
		AgentID: "AGENT-002", TaskType: models.TaskSummarization,
		Success: true, LatencyMS: 1000, Quality: 0.8, Timestamp: time.Now(),
	})
	require.NoError(t, err)

	perf := s.performance(ctx, "AGENT-002", models.TaskSummarization)
	assert.Equal(t, int64(1), perf.TotalExecutions)
	assert.Equal(t, 1000.0, perf.AverageLatencyMS)
	assert.Equal(t, 0.8, perf.AverageQualityScore)

	err = s.RecordOutcome(ctx, models.OutcomeRecord{
		AgentID: "AGENT-002", TaskType: models.TaskSummarization,
		Success: true, LatencyMS: 0, Quality: 0.0, Timestamp: time.Now(),
	})
	require.NoError(t, err)

	perf = s.performance(ctx, "AGENT-002", models.TaskSummarization)
	assert.Equal(t, int64(2), perf.TotalExecutions)
	assert.InDelta(t, 700.0, perf.AverageLatencyMS, 0.01) // 0.3*0 + 0.7*1000
}

func TestSetEpsilon_RejectsOutOfRange(t *testing.T) {
	s := New(newMemPerfStore(), 0.1, 5, false)
	assert.Error(t, s.SetEpsilon(-0.1))
	assert.Error(t, s.SetEpsilon(1.1))
	assert.NoError(t, s.SetEpsilon(0.5))
	assert.Equal(t, 0.5, s.Epsilon())
}

func TestListWorkers_PrimaryFirst(t *testing.T) {
	workers := ListWorkers(models.TaskSummarization)
	require.NotEmpty(t, workers)
	assert.True(t, workers[0].IsPrimary(models.TaskSummarization))
}
