package pipeline

import "github.com/arohandas/introute/models"

// defaultRetrievalParams returns the baseline parameter set before any
// complexity-driven adjustment. Weights favor dense retrieval, the
// usual default for a semantic-first index.
var defaultRetrievalParams = models.RetrievalParams{
	DenseWeight:         0.6,
	SparseWeight:        0.3,
	FuzzyWeight:         0.1,
	TopK:                10,
	RerankThreshold:      0.5,
	GraphExpansionDepth: 1,
}

// deriveRetrievalParams (stage 2) scales the baseline by the
// classified complexity: a complex query gets more candidates and one
// extra hop of graph expansion, a simple one gets fewer candidates and
// a stricter rerank cutoff since there's less to disambiguate.
func deriveRetrievalParams(classification models.Classification) models.RetrievalParams {
	params := defaultRetrievalParams

	switch classification.Complexity {
	case models.ComplexitySimple:
		params.TopK = 5
		params.RerankThreshold = 0.6
	case models.ComplexityComplex:
		params.TopK = 15
		params.RerankThreshold = 0.45
		params.GraphExpansionDepth = 2
	}

	if classification.Features.Has(models.FeatureMultiDocument) {
		params.TopK += 5
	}
	if classification.Features.Has(models.FeatureExternalDataNeeded) {
		params.SparseWeight += 0.1
		params.DenseWeight -= 0.1
	}

	return params
}
