package cache

import "math"

// CosineSimilarity scores two equal-length vectors in [-1, 1]; vectors
// of mismatched length or zero magnitude score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FindMostSimilar returns the index and score of the candidate closest
// to query by cosine similarity, or (-1, 0) for an empty candidate set.
func FindMostSimilar(query []float32, candidates [][]float32) (int, float64) {
	bestIndex := -1
	bestScore := -1.0

	for i, candidate := range candidates {
		score := CosineSimilarity(query, candidate)
		if score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	if bestIndex == -1 {
		return -1, 0
	}
	return bestIndex, bestScore
}
