package selector

import "github.com/arohandas/introute/models"

// BackendFor is the deterministic category-to-backend mapping table.
// It is consulted directly by the router for every non-forced
// request; the epsilon-greedy selector in selector.go only ranks
// *agents within* whatever backend this table picked, it never
// overrides the backend choice itself. Feedback (internal/feedback)
// logs corrections against this mapping for later calibration but
// never mutates it at runtime.
func BackendFor(category models.Category, features models.FeatureSet, complexity models.Complexity) (models.Backend, float64, string) {
	switch category {
	case models.CategoryResearch:
		return models.BackendAdaptiveIterative, 0.90,
			"Query requires external data and iterative research capabilities"

	case models.CategoryDocumentAnalysis:
		if features.Has(models.FeatureMultiDocument) {
			return models.BackendMultiAgentSequential, 0.85,
				"Multi-document analysis requires coordinated multi-agent processing"
		}
		return models.BackendAdaptiveIterative, 0.80,
			"Document analysis benefits from adaptive iteration"

	case models.CategoryMultiStep:
		if complexity == models.ComplexityComplex {
			return models.BackendAdaptiveIterative, 0.85,
				"Complex multi-step reasoning needs adaptive branching"
		}
		return models.BackendMultiAgentSequential, 0.75,
			"Multi-step workflow suitable for sequential agent processing"

	case models.CategoryEntityExtraction:
		return models.BackendMultiAgentSequential, 0.80,
			"Entity extraction benefits from specialized extraction agents"

	case models.CategoryConversational:
		return models.BackendDirectRetrieval, 0.95,
			"Conversational query can be handled directly"
	}

	// Default: document_lookup -> direct_retrieval.
	if complexity == models.ComplexitySimple {
		return models.BackendDirectRetrieval, 0.90,
			"Simple factual lookup from knowledge base"
	}
	return models.BackendDirectRetrieval, 0.75,
		"Query can be answered from internal knowledge base"
}
