package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/arohandas/introute/models"
)

// Normalize lowercases, trims, and collapses interior whitespace so that
// "  What  IS this " and "what is this" hash identically.
func Normalize(query string) string {
	fields := strings.Fields(strings.ToLower(query))
	return strings.Join(fields, " ")
}

// Hash returns the hex-encoded SHA-256 digest of the normalized query.
// It is the exact-match cache key.
func Hash(query string) string {
	normalized := Normalize(query)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Fingerprint builds the cache lookup key for a query. The embedding is
// left nil here; callers that want similarity-tier lookup attach one
// via WithEmbedding after calling an Embedder.
func Fingerprint(query string) models.Fingerprint {
	normalized := Normalize(query)
	sum := sha256.Sum256([]byte(normalized))
	return models.Fingerprint{
		NormalizedText: normalized,
		ExactHash:      hex.EncodeToString(sum[:]),
	}
}

// WithEmbedding returns a copy of fp carrying the given embedding.
func WithEmbedding(fp models.Fingerprint, embedding []float32) models.Fingerprint {
	fp.Embedding = embedding
	return fp
}
