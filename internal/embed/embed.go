// Package embed implements the Embedder collaborator: turning query
// text into the vector the similarity-tier cache and retrieval
// pipeline consume. Embedding failure is always non-fatal to the
// caller — the router falls back to exact-hash-only lookups.
package embed

import "context"

// Embedder is the outbound collaborator contract for turning text into
// a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
