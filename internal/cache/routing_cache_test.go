package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arohandas/introute/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu      sync.Mutex
	entries map[string]models.CacheEntry
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]models.CacheEntry)}
}

func (m *memStore) GetByHash(_ context.Context, hash string) (models.CacheEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[hash]
	return entry, ok, nil
}

func (m *memStore) Save(_ context.Context, entry models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ExactHash] = entry
	return nil
}

func (m *memStore) IncrementHit(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.entries[hash]
	entry.HitCount++
	m.entries[hash] = entry
	return nil
}

func (m *memStore) Stats(_ context.Context) (models.CacheStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := models.CacheStats{TotalEntries: int64(len(m.entries))}
	now := time.Now()
	for _, entry := range m.entries {
		if entry.Active(now) {
			stats.ActiveEntries++
		} else {
			stats.ExpiredEntries++
		}
		stats.TotalHits += entry.HitCount
	}
	return stats, nil
}

func (m *memStore) Prune(_ context.Context, now time.Time, expiredOnly bool) (int64, error) {
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

func (m *memStore) All(_ context.Context) ([]models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CacheEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, entry)
	}
	return out, nil
}

func TestRoutingCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	rc, err := New(ctx, store, time.Hour, 0.85, true)
	require.NoError(t, err)

	result, err := rc.GetByHash(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, result.Hit)

	fp := models.Fingerprint{ExactHash: "abc123", NormalizedText: "what is the refund policy"}
	classification := models.Classification{Category: models.CategoryDocumentLookup, Complexity: models.ComplexitySimple, Confidence: 0.9}
	require.NoError(t, rc.Save(ctx, fp, classification, models.BackendDirectRetrieval, "", nil))

	result, err = rc.GetByHash(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, result.Hit)
	assert.Equal(t, models.CacheTierExact, result.Tier)
	assert.Equal(t, models.CategoryDocumentLookup, result.Entry.Classification.Category)
}

func TestRoutingCache_ExpiredEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	rc, err := New(ctx, store, -time.Hour, 0.85, true) // negative TTL: expires immediately
	require.NoError(t, err)

	fp := models.Fingerprint{ExactHash: "expired", NormalizedText: "q"}
	require.NoError(t, rc.Save(ctx, fp, models.Classification{}, models.BackendDirectRetrieval, "", nil))

	result, err := rc.GetByHash(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, result.Hit)
}

func TestRoutingCache_SimilarityHitReturnsVerbatimClassification(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	rc, err := New(ctx, store, time.Hour, 0.85, true)
	require.NoError(t, err)

	cached := models.Classification{Category: models.CategoryResearch, Complexity: models.ComplexityComplex, Confidence: 0.9}
	fp := models.Fingerprint{ExactHash: "h1", NormalizedText: "latest industry regulation", Embedding: []float32{1, 0, 0}}
	require.NoError(t, rc.Save(ctx, fp, cached, models.BackendAdaptiveIterative, "", nil))

	result, err := rc.GetBySimilarity(ctx, []float32{1, 0, 0})
	require.NoError(t, err)
	require.True(t, result.Hit)
	assert.Equal(t, models.CacheTierSimilarity, result.Tier)
	assert.Equal(t, cached.Category, result.Entry.Classification.Category)
	assert.Equal(t, cached.Confidence, result.Entry.Classification.Confidence)
}

func TestRoutingCache_SimilarityBelowThresholdIsMiss(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	rc, err := New(ctx, store, time.Hour, 0.85, true)
	require.NoError(t, err)

	fp := models.Fingerprint{ExactHash: "h1", NormalizedText: "q", Embedding: []float32{1, 0, 0}}
	require.NoError(t, rc.Save(ctx, fp, models.Classification{}, models.BackendDirectRetrieval, "", nil))

	// Orthogonal vector: cosine similarity 0, well under threshold.
	result, err := rc.GetBySimilarity(ctx, []float32{0, 1, 0})
	require.NoError(t, err)
	assert.False(t, result.Hit)
}

func TestRoutingCache_SimilarityExactlyAtThresholdHits(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	rc, err := New(ctx, store, time.Hour, 1.0, true)
	require.NoError(t, err)

	fp := models.Fingerprint{ExactHash: "h1", NormalizedText: "q", Embedding: []float32{1, 0}}
	require.NoError(t, rc.Save(ctx, fp, models.Classification{}, models.BackendDirectRetrieval, "", nil))

	result, err := rc.GetBySimilarity(ctx, []float32{1, 0}) // identical vector -> similarity 1.0
	require.NoError(t, err)
	assert.True(t, result.Hit)
}

func TestRoutingCache_PruneIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	rc, err := New(ctx, store, -time.Hour, 0.85, true)
	require.NoError(t, err)

	fp := models.Fingerprint{ExactHash: "h1", NormalizedText: "q"}
	require.NoError(t, rc.Save(ctx, fp, models.Classification{}, models.BackendDirectRetrieval, "", nil))

	removed, err := rc.Prune(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = rc.Prune(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}

func TestRoutingCache_StatsComputesAverageHits(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	rc, err := New(ctx, store, time.Hour, 0.85, false)
	require.NoError(t, err)

	require.NoError(t, rc.Save(ctx, models.Fingerprint{ExactHash: "h1", NormalizedText: "a"}, models.Classification{}, models.BackendDirectRetrieval, "", nil))
	require.NoError(t, rc.Save(ctx, models.Fingerprint{ExactHash: "h2", NormalizedText: "b"}, models.Classification{}, models.BackendDirectRetrieval, "", nil))

	for i := 0; i < 3; i++ {
		_, err := rc.GetByHash(ctx, "h1")
		require.NoError(t, err)
	}

	stats, err := rc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalEntries)
	assert.Equal(t, int64(3), stats.TotalHits)
	assert.InDelta(t, 1.5, stats.AverageHitsPerEntry, 1e-9)
}

func TestRoutingCache_DisabledSemanticCacheSkipsSimilarity(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	rc, err := New(ctx, store, time.Hour, 0.85, false)
	require.NoError(t, err)

	fp := models.Fingerprint{ExactHash: "h1", NormalizedText: "q", Embedding: []float32{1, 0, 0}}
	require.NoError(t, rc.Save(ctx, fp, models.Classification{}, models.BackendDirectRetrieval, "", nil))

	result, err := rc.GetBySimilarity(ctx, []float32{1, 0, 0})
	require.NoError(t, err)
	assert.False(t, result.Hit)
}
