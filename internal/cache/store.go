// Package cache implements the two-tier routing cache: an exact-hash
// tier backed by a persistent CacheStore, and an approximate,
// embedding-similarity tier backed by a pluggable SimilarityIndex
// (in-memory brute force by default, optionally an ANN backend).
package cache

import (
	"context"
	"time"

	"github.com/arohandas/introute/models"
)

// Store persists cache entries keyed by exact hash. Implementations
// must tolerate concurrent Save calls racing on the same hash: the
// loser of the race is expected to be a harmless no-op or overwrite,
// never a duplicate row or an error.
type Store interface {
	GetByHash(ctx context.Context, hash string) (models.CacheEntry, bool, error)
	Save(ctx context.Context, entry models.CacheEntry) error
	IncrementHit(ctx context.Context, hash string) error
	Stats(ctx context.Context) (models.CacheStats, error)
	// Prune deletes every entry whose ExpiresAt is at or before now, or every
	// entry regardless of expiry when expiredOnly is false, and returns
	// how many rows were removed. Calling Prune(expiredOnly=true) twice
	// in a row with nothing newly expired removes zero rows both times.
	Prune(ctx context.Context, now time.Time, expiredOnly bool) (int64, error)
	// All returns every entry currently stored, active or not, for
	// rebuilding a SimilarityIndex at startup.
	All(ctx context.Context) ([]models.CacheEntry, error)
}

// SimilarityIndex finds the nearest cached embedding to a query
// embedding. found=false means "no candidates at all", distinct from
// a genuine low-similarity match with found=true.
type SimilarityIndex interface {
	Add(ctx context.Context, hash string, embedding []float32) error
	Remove(ctx context.Context, hash string) error
	Nearest(ctx context.Context, embedding []float32) (hash string, score float64, found bool, err error)
}
