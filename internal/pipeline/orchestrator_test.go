package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arohandas/introute/config"
	"github.com/arohandas/introute/internal/classifier"
	"github.com/arohandas/introute/internal/selector"
	"github.com/arohandas/introute/models"
)

type fakeRetriever struct {
	sources []models.RetrievedSource
	err     error
	calls   int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, _ models.RetrievalParams) ([]models.RetrievedSource, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sources, nil
}

type fakeGenerator struct {
	answer string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, _ []models.RetrievedSource, _ models.Classification, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

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
	if perf, ok := m.records[agentID+":"+string(task)]; ok {
		return perf, nil
	}
	return models.AgentPerformance{AgentID: agentID, TaskType: task}, nil
}

func (m *memPerfStore) Save(_ context.Context, perf models.AgentPerformance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[perf.AgentID+":"+string(perf.TaskType)] = perf
	return nil
}

func (m *memPerfStore) All(_ context.Context, agentID string) ([]models.AgentPerformance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AgentPerformance
	for _, rec := range m.records {
		if rec.AgentID == agentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func testConfig() config.PipelineConfig {
	return config.DefaultPipelineConfig()
}

func newTestOrchestrator(retriever Retriever, generator Generator) *Orchestrator {
	sel := selector.New(newMemPerfStore(), 0.1, 5, false)
	return New(classifier.New(), nil, retriever, generator, sel, testConfig(), nil)
}

func TestExecute_HappyPathRunsAllNineStages(t *testing.T) {
	sources := []models.RetrievedSource{
		{ID: "doc-1", Content: "Paris is the capital of France and its largest city.", Score: 0.9},
		{ID: "doc-2", Content: "France is a country in Western Europe.", Score: 0.8},
	}
	retriever := &fakeRetriever{sources: sources}
	generator := &fakeGenerator{answer: "Paris is the capital of France."}
	orch := newTestOrchestrator(retriever, generator)

	result, err := orch.Execute(context.Background(), "What is the capital of France?", Options{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	assert.Len(t, result.StageResults, len(models.Stages))
	for i, sr := range result.StageResults {
		assert.Equal(t, models.Stages[i], sr.Stage)
	}
	assert.NotEmpty(t, result.SelectedAgent)
	assert.Equal(t, "Paris is the capital of France.", result.Answer)
	assert.Equal(t, 1, retriever.calls)
}

func TestExecute_FatalRetrievalFailureAbortsPipeline(t *testing.T) {
	retriever := &fakeRetriever{err: fmt.Errorf("retriever unavailable")}
	generator := &fakeGenerator{answer: "unused"}
	orch := newTestOrchestrator(retriever, generator)

	result, err := orch.Execute(context.Background(), "Summarize this document", Options{})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.True(t, result.RequiresHumanReview)
	require.NotEmpty(t, result.ReviewReasons)
	assert.Contains(t, result.ReviewReasons[0], "retrieval")
	assert.Empty(t, result.Answer)
}

func TestExecute_LowQualityRetrievalTriggersRetryWithWidenedParams(t *testing.T) {
	retriever := &fakeRetriever{sources: []models.RetrievedSource{{ID: "doc-1", Content: "weak match", Score: 0.1}}}
	generator := &fakeGenerator{answer: "An answer grounded in weak match."}
	orch := newTestOrchestrator(retriever, generator)

	result, err := orch.Execute(context.Background(), "Research the history of a niche topic across many sources", Options{})
	require.NoError(t, err)

	assert.True(t, result.UsedFallback)
	assert.Equal(t, 2, retriever.calls)
	// The first attempt's gate verdict stands even after the retry.
	assert.False(t, result.QualityGatePassed)
	assert.True(t, result.RetrievalMetrics.Retried)
	assert.Greater(t, result.RetrievalParams.TopK, 10)

	// The retry replaces the original retrieval stage result in place:
	// still at most one entry per stage, still in the fixed order.
	require.LessOrEqual(t, len(result.StageResults), len(models.Stages))
	for i, sr := range result.StageResults {
		assert.Equal(t, models.Stages[i], sr.Stage)
	}
	for _, sr := range result.StageResults {
		if sr.Stage == models.StageRetrieval {
			assert.Equal(t, true, sr.Data["retried"])
		}
	}
}

func TestExecute_DisabledStageIsSkippedEntirely(t *testing.T) {
	retriever := &fakeRetriever{sources: []models.RetrievedSource{{ID: "doc-1", Content: "some relevant content here", Score: 0.9}}}
	generator := &fakeGenerator{answer: "Some relevant content here."}
	sel := selector.New(newMemPerfStore(), 0.1, 5, false)
	cfg := config.DefaultPipelineConfig()
	cfg.EnableGroundingEvaluation = false
	orch := New(classifier.New(), nil, retriever, generator, sel, cfg, nil)

	result, err := orch.Execute(context.Background(), "What is this about?", Options{})
	require.NoError(t, err)

	for _, sr := range result.StageResults {
		assert.NotEqual(t, models.StageGroundingEvaluation, sr.Stage)
	}
	assert.Len(t, result.StageResults, len(models.Stages)-1)
}

func TestExecute_CancelledContextReportsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	retriever := &fakeRetriever{err: context.Canceled}
	generator := &fakeGenerator{answer: "unused"}
	orch := newTestOrchestrator(retriever, generator)

	cancel()
	result, err := orch.Execute(ctx, "Anything", Options{})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.ReviewReasons, "cancelled")
}

func TestExecute_ForceBackendShortCircuitsAgentSelection(t *testing.T) {
	retriever := &fakeRetriever{sources: []models.RetrievedSource{{ID: "doc-1", Content: "some content", Score: 0.9}}}
	generator := &fakeGenerator{answer: "Some content answer."}
	orch := newTestOrchestrator(retriever, generator)

	result, err := orch.Execute(context.Background(), "What is this?", Options{ForceBackend: models.BackendMultiAgentSequential})
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Intent.Confidence)
}

func TestExecute_UngroundedAnswerFlagsHumanReview(t *testing.T) {
	retriever := &fakeRetriever{sources: []models.RetrievedSource{{ID: "doc-1", Content: "completely unrelated source text", Score: 0.9}}}
	generator := &fakeGenerator{answer: "The moon is made of green cheese and nobody can prove otherwise."}
	orch := newTestOrchestrator(retriever, generator)

	result, err := orch.Execute(context.Background(), "Tell me something", Options{})
	require.NoError(t, err)
	assert.True(t, result.RequiresHumanReview)
}

func TestExecute_AutoCorrectedForbiddenPatternDoesNotFlagHumanReview(t *testing.T) {
	sources := []models.RetrievedSource{
		{ID: "doc-1", Content: "Paris is the capital of France and its largest city.", Score: 0.9},
	}
	retriever := &fakeRetriever{sources: sources}
	generator := &fakeGenerator{answer: "[TODO] Paris is the capital of France and its largest city."}
	orch := newTestOrchestrator(retriever, generator)

	result, err := orch.Execute(context.Background(), "What is the capital of France?", Options{})
	require.NoError(t, err)

	require.True(t, result.ValidationResult.Corrected)
	assert.NotContains(t, result.Answer, "[TODO]")
	assert.False(t, result.RequiresHumanReview)
}

func TestExecute_GeneratorFailureIsFatal(t *testing.T) {
	retriever := &fakeRetriever{sources: []models.RetrievedSource{{ID: "doc-1", Content: "content", Score: 0.9}}}
	generator := &fakeGenerator{err: fmt.Errorf("generator timed out")}
	orch := newTestOrchestrator(retriever, generator)

	result, err := orch.Execute(context.Background(), "Explain something", Options{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.ReviewReasons[len(result.ReviewReasons)-1], "generator timed out")
}
