package cache

import (
	"context"
	"time"

	"github.com/arohandas/introute/models"
)

// RoutingCache is the two-tier cache façade: an exact-hash lookup
// against Store, falling back to an approximate lookup against
// SimilarityIndex when the caller supplies an embedding and the
// similarity tier is enabled. A similarity-tier hit returns its
// matched entry's classification verbatim — it is never re-scored or
// blended with anything computed for the current query.
type RoutingCache struct {
	store               Store
	index               SimilarityIndex
	ttl                 time.Duration
	similarityThreshold float64
	useSemanticCache    bool
}

// Option configures a RoutingCache at construction.
type Option func(*RoutingCache)

// WithSimilarityIndex swaps in a non-default SimilarityIndex (e.g. a
// Qdrant-backed one) in place of MemorySimilarityIndex.
func WithSimilarityIndex(index SimilarityIndex) Option {
	return func(c *RoutingCache) { c.index = index }
}

// New builds a RoutingCache backed by store, seeding the similarity
// index from every entry store already has (so a restart doesn't lose
// similarity-tier recall).
func New(ctx context.Context, store Store, ttl time.Duration, similarityThreshold float64, useSemanticCache bool, opts ...Option) (*RoutingCache, error) {
	c := &RoutingCache{
		store:               store,
		index:               NewMemorySimilarityIndex(),
		ttl:                 ttl,
		similarityThreshold: similarityThreshold,
		useSemanticCache:    useSemanticCache,
	}
	for _, opt := range opts {
		opt(c)
	}

	if useSemanticCache {
		entries, err := store.All(ctx)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if len(entry.Embedding) == 0 {
				continue
			}
			if err := c.index.Add(ctx, entry.ExactHash, entry.Embedding); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// GetByHash is the tier-1 lookup: an exact match on the normalized
// query's SHA-256 hash. Expired entries are treated as misses.
func (c *RoutingCache) GetByHash(ctx context.Context, hash string) (models.CacheLookupResult, error) {
	entry, found, err := c.store.GetByHash(ctx, hash)
	if err != nil {
		return models.CacheLookupResult{}, err
	}
	if !found || !entry.Active(time.Now()) {
		return models.CacheLookupResult{}, nil
	}

	if err := c.store.IncrementHit(ctx, hash); err != nil {
		return models.CacheLookupResult{}, err
	}
	entry.HitCount++
	entry.LastHitAt = time.Now()

	return models.CacheLookupResult{Entry: entry, Tier: models.CacheTierExact, Similarity: 1.0, Hit: true}, nil
}

// GetBySimilarity is the tier-2 lookup: nearest cached embedding by
// cosine similarity, accepted only if it clears the configured
// threshold and the matched entry hasn't expired. Disabled entirely
// when useSemanticCache is false or the caller has no embedding.
func (c *RoutingCache) GetBySimilarity(ctx context.Context, embedding []float32) (models.CacheLookupResult, error) {
	if !c.useSemanticCache || len(embedding) == 0 {
		return models.CacheLookupResult{}, nil
	}

	hash, score, found, err := c.index.Nearest(ctx, embedding)
	if err != nil {
		return models.CacheLookupResult{}, err
	}
	if !found || score < c.similarityThreshold {
		return models.CacheLookupResult{}, nil
	}

	entry, found, err := c.store.GetByHash(ctx, hash)
	if err != nil {
		return models.CacheLookupResult{}, err
	}
	if !found || !entry.Active(time.Now()) {
		return models.CacheLookupResult{}, nil
	}

	if err := c.store.IncrementHit(ctx, hash); err != nil {
		return models.CacheLookupResult{}, err
	}
	entry.HitCount++
	entry.LastHitAt = time.Now()

	return models.CacheLookupResult{Entry: entry, Tier: models.CacheTierSimilarity, Similarity: score, Hit: true}, nil
}

// Save writes a fresh classification into both tiers: the persistent
// store (exact-hash tier, always) and the similarity index (only when
// an embedding and semantic caching are both available). The TTL is
// fixed at write time from the cache's configured duration; the entry
// is marked active independent of that TTL, per CacheEntry's two
// independently-settable active/expiry conditions.
func (c *RoutingCache) Save(ctx context.Context, fp models.Fingerprint, classification models.Classification, backend models.Backend, reasoning string, suggestedTools []string) error {
	now := time.Now()
	entry := models.CacheEntry{
		ExactHash:      fp.ExactHash,
		NormalizedText: fp.NormalizedText,
		Embedding:      fp.Embedding,
		Classification: classification,
		Backend:        backend,
		Reasoning:      reasoning,
		SuggestedTools: suggestedTools,
		CreatedAt:      now,
		ExpiresAt:      now.Add(c.ttl),
		IsActive:       true,
	}

	if err := c.store.Save(ctx, entry); err != nil {
		return err
	}

	if c.useSemanticCache && len(fp.Embedding) > 0 {
		if err := c.index.Add(ctx, fp.ExactHash, fp.Embedding); err != nil {
			return err
		}
	}
	return nil
}

// Stats reports current occupancy for the admin analytics surface.
func (c *RoutingCache) Stats(ctx context.Context) (models.CacheStats, error) {
	stats, err := c.store.Stats(ctx)
	if err != nil {
		return models.CacheStats{}, err
	}
	if stats.TotalEntries > 0 {
		stats.AverageHitsPerEntry = float64(stats.TotalHits) / float64(stats.TotalEntries)
	}
	return stats, nil
}

// Prune deletes entries from both the store and the similarity index,
// returning how many rows were removed. With expiredOnly it only
// removes entries that have expired; with expiredOnly=false it removes
// every entry. Calling Prune(true) again immediately after removes
// zero rows (idempotent).
func (c *RoutingCache) Prune(ctx context.Context, expiredOnly bool) (int64, error) {
	before, err := c.store.All(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	removed, err := c.store.Prune(ctx, now, expiredOnly)
	if err != nil {
		return 0, err
	}

	if c.useSemanticCache {
		for _, entry := range before {
			// Mirror the store's own delete predicate: expiry only, never
			// the is_active flag, which prune does not consult.
			if !expiredOnly || !entry.ExpiresAt.After(now) {
				if err := c.index.Remove(ctx, entry.ExactHash); err != nil {
					return removed, err
				}
			}
		}
	}
	return removed, nil
}
