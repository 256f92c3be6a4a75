package cache

import (
	"context"
	"sync"
)

// MemorySimilarityIndex is a brute-force cosine-similarity index kept
// entirely in memory. It's the default similarity backend and the
// fallback when no ANN backend (e.g. Qdrant) is configured; adequate
// for routing-cache sizes, which stay small relative to a document
// corpus.
type MemorySimilarityIndex struct {
	mu         sync.RWMutex
	hashes     []string
	embeddings [][]float32
	positions  map[string]int
}

// NewMemorySimilarityIndex returns an empty index.
func NewMemorySimilarityIndex() *MemorySimilarityIndex {
	return &MemorySimilarityIndex{positions: make(map[string]int)}
}

// Add inserts or replaces the embedding for hash.
func (idx *MemorySimilarityIndex) Add(_ context.Context, hash string, embedding []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if pos, ok := idx.positions[hash]; ok {
		idx.embeddings[pos] = embedding
		return nil
	}

	idx.positions[hash] = len(idx.hashes)
	idx.hashes = append(idx.hashes, hash)
	idx.embeddings = append(idx.embeddings, embedding)
	return nil
}

// Remove drops hash from the index, swapping the last element into its
// slot to avoid an O(n) shift.
func (idx *MemorySimilarityIndex) Remove(_ context.Context, hash string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	pos, ok := idx.positions[hash]
	if !ok {
		return nil
	}

	last := len(idx.hashes) - 1
	idx.hashes[pos] = idx.hashes[last]
	idx.embeddings[pos] = idx.embeddings[last]
	idx.positions[idx.hashes[pos]] = pos

	idx.hashes = idx.hashes[:last]
	idx.embeddings = idx.embeddings[:last]
	delete(idx.positions, hash)
	return nil
}

// Nearest returns the closest embedding by cosine similarity.
func (idx *MemorySimilarityIndex) Nearest(_ context.Context, embedding []float32) (string, float64, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	i, score := FindMostSimilar(embedding, idx.embeddings)
	if i == -1 {
		return "", 0, false, nil
	}
	return idx.hashes[i], score, true, nil
}
