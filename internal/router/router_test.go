package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arohandas/introute/internal/cache"
	"github.com/arohandas/introute/internal/classifier"
	"github.com/arohandas/introute/internal/decisionlog"
	"github.com/arohandas/introute/internal/feedback"
	"github.com/arohandas/introute/internal/selector"
	"github.com/arohandas/introute/models"
)

// memCacheStore is a minimal in-memory cache.Store for these tests.
type memCacheStore struct {
	mu      sync.Mutex
	entries map[string]models.CacheEntry
}

func newMemCacheStore() *memCacheStore {
	return &memCacheStore{entries: make(map[string]models.CacheEntry)}
}

func (m *memCacheStore) GetByHash(_ context.Context, hash string) (models.CacheEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[hash]
	return entry, ok, nil
}

func (m *memCacheStore) Save(_ context.Context, entry models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ExactHash] = entry
	return nil
}

func (m *memCacheStore) IncrementHit(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.entries[hash]
	entry.HitCount++
	m.entries[hash] = entry
	return nil
}

func (m *memCacheStore) Stats(_ context.Context) (models.CacheStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.CacheStats{TotalEntries: int64(len(m.entries))}, nil
}

func (m *memCacheStore) Prune(_ context.Context, now time.Time, expiredOnly bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for hash, entry := range m.entries {
		if !expiredOnly || !entry.Active(now) {
			delete(m.entries, hash)
			removed++
		}
	}
	return removed, nil
}

func (m *memCacheStore) All(_ context.Context) ([]models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CacheEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, entry)
	}
	return out, nil
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

type memDecisionStore struct {
	mu        sync.Mutex
	decisions map[string]models.RoutingDecision
}

func newMemDecisionStore() *memDecisionStore {
	return &memDecisionStore{decisions: make(map[string]models.RoutingDecision)}
}

func (m *memDecisionStore) Append(_ context.Context, decision models.RoutingDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[decision.RequestID] = decision
	return nil
}

func (m *memDecisionStore) Amend(_ context.Context, _ string, _ models.Feedback) error {
	return nil
}

func (m *memDecisionStore) Get(_ context.Context, requestID string) (models.RoutingDecision, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[requestID]
	return d, ok, nil
}

func (m *memDecisionStore) Query(_ context.Context, _ time.Time) ([]models.RoutingDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RoutingDecision, 0, len(m.decisions))
	for _, d := range m.decisions {
		out = append(out, d)
	}
	return out, nil
}

func newTestRouter(t *testing.T) (*Router, *memDecisionStore) {
	t.Helper()
	c := classifier.New()
	routingCache, err := cache.New(context.Background(), newMemCacheStore(), time.Hour, 0.9, false)
	require.NoError(t, err)
	sel := selector.New(newMemPerfStore(), 0.1, 5, false)
	decisionStore := newMemDecisionStore()
	log := decisionlog.New(decisionStore)
	integrator := feedback.New(log, sel, feedback.NewMemoryCalibrationSink())
	r := New(c, nil, nil, routingCache, sel, log, integrator, false, 4)
	return r, decisionStore
}

func TestRoute_CacheMissClassifiesAndLogsDecision(t *testing.T) {
	r, store := newTestRouter(t)

	decision, cacheHit, err := r.Route(context.Background(), "What is the refund policy?")
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.NotEmpty(t, decision.Backend)
	assert.NotEmpty(t, decision.RequestID)

	logged, ok, err := store.Get(context.Background(), decision.RequestID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, decision.Backend, logged.Backend)
}

func TestRoute_SecondIdenticalQueryHitsCache(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	_, firstHit, err := r.Route(ctx, "Summarize the quarterly report")
	require.NoError(t, err)
	assert.False(t, firstHit)

	decision, secondHit, err := r.Route(ctx, "Summarize the quarterly report")
	require.NoError(t, err)
	assert.True(t, secondHit)
	assert.True(t, decision.CacheHit)
	assert.Equal(t, models.CacheTierExact, decision.CacheTier)
}

func TestRouteWithOptions_ForceBackendSkipsClassificationAndCache(t *testing.T) {
	r, store := newTestRouter(t)

	decision, cacheHit, err := r.RouteWithOptions(context.Background(), "anything at all", Options{
		ForceBackend: models.BackendMultiAgentSequential,
	})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.True(t, decision.Forced)
	assert.Equal(t, models.BackendMultiAgentSequential, decision.Backend)
	assert.Equal(t, 1.0, decision.Classification.Confidence)
	assert.Equal(t, "backend forced by request", decision.Reason)

	// Forced decisions are still logged...
	_, ok, err := store.Get(context.Background(), decision.RequestID)
	require.NoError(t, err)
	assert.True(t, ok)

	// ...but never cached: an identical unforced query after it is still a miss.
	_, secondCacheHit, err := r.Route(context.Background(), "anything at all")
	require.NoError(t, err)
	assert.False(t, secondCacheHit)
}

func TestClassify_DoesNotTouchCacheOrDecisionLog(t *testing.T) {
	r, store := newTestRouter(t)

	result := r.Classify(context.Background(), "Extract the company names from this filing")
	assert.Equal(t, models.CategoryEntityExtraction, result.Category)
	assert.NotEmpty(t, result.SuggestedBackend)

	decisions, err := store.Query(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, decisions)
}

func TestRouteBatch_RoutesEveryQuery(t *testing.T) {
	r, _ := newTestRouter(t)

	result, err := r.RouteBatch(context.Background(), []string{
		"What is the refund policy?",
		"Summarize this 50-page contract and compare it to last year's",
		"Hi there",
	})
	require.NoError(t, err)
	assert.Len(t, result.Results, 3)
	for _, res := range result.Results {
		assert.NoError(t, res.Err)
	}
}

func TestFeedback_AmendsDecisionAndRecordsOutcome(t *testing.T) {
	r, store := newTestRouter(t)
	ctx := context.Background()

	decision, _, err := r.Route(ctx, "What is the refund policy?")
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, models.RoutingDecision{
		RequestID: decision.RequestID,
		AgentID:   "AGENT-001",
		Timestamp: time.Now(),
	}))

	result, err := r.Feedback(ctx, models.Feedback{
		RequestID: decision.RequestID,
		Success:   true,
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestFeedback_UnknownRequestIDReportsNotOK(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	result, err := r.Feedback(ctx, models.Feedback{
		RequestID: "does-not-exist",
		Success:   true,
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, result.OK)
}

func TestRoute_EmptyQueryIsAnInputError(t *testing.T) {
	r, store := newTestRouter(t)

	_, _, err := r.Route(context.Background(), "   ")
	require.Error(t, err)

	// Input errors surface before classification or logging.
	decisions, qerr := store.Query(context.Background(), time.Time{})
	require.NoError(t, qerr)
	assert.Empty(t, decisions)
}

func TestRouteWithOptions_UnknownForcedBackendIsAnInputError(t *testing.T) {
	r, _ := newTestRouter(t)

	_, _, err := r.RouteWithOptions(context.Background(), "anything", Options{
		ForceBackend: models.Backend("teleportation"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleportation")
}

func TestPruneCacheAndCacheStats(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	_, _, err := r.Route(ctx, "What is the refund policy?")
	require.NoError(t, err)

	stats, err := r.CacheStats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalEntries, int64(1))

	removed, err := r.PruneCache(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	removed, err = r.PruneCache(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
