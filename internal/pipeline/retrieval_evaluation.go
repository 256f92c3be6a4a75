package pipeline

import "github.com/arohandas/introute/models"

// evaluateRetrieval (stage 4) scores retrieved sources for query
// relevance. The composite metric blends mean source score (the
// retriever's own relevance signal) with a coverage bonus for having
// enough sources to synthesize from — a lightweight stand-in for a
// ragas-style faithfulness/relevance composite, since real ranking
// math is out of scope here and the Retriever collaborator is the one
// that owns actual relevance scoring.
func evaluateRetrieval(sources []models.RetrievedSource, topK int) models.RetrievalMetrics {
	if len(sources) == 0 {
		return models.RetrievalMetrics{QualityScore: 0, SourceCount: 0}
	}

	var total float64
	for _, s := range sources {
		total += s.Score
	}
	meanScore := total / float64(len(sources))

	coverage := float64(len(sources)) / float64(topK)
	if coverage > 1 {
		coverage = 1
	}

	quality := 0.8*meanScore + 0.2*coverage
	if quality > 1 {
		quality = 1
	}

	return models.RetrievalMetrics{QualityScore: quality, SourceCount: len(sources)}
}
