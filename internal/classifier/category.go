package classifier

import (
	"strings"

	"github.com/arohandas/introute/models"
)

// ClassifyCategory maps detected features and query shape to one of
// the six categories. Order matters: conversational and research are
// checked first because they're the most specific signals, then
// multi-document beats entity-extraction when both are present (it's
// the more specific operation), and complex reasoning only tips into
// multi_step once the query is long enough to actually be multi-step
// rather than just a pointed "why" question.
func ClassifyCategory(query string, features models.FeatureSet) models.Category {
	wordCount := len(strings.Fields(query))

	if features.Has(models.FeatureConversational) && wordCount < 10 {
		return models.CategoryConversational
	}

	if features.Has(models.FeatureExternalDataNeeded) {
		return models.CategoryResearch
	}

	if features.Has(models.FeatureMultiDocument) {
		return models.CategoryDocumentAnalysis
	}

	if features.Has(models.FeatureEntityExtraction) {
		return models.CategoryEntityExtraction
	}

	if features.Has(models.FeatureComplexReasoning) && wordCount > 15 {
		return models.CategoryMultiStep
	}

	return models.CategoryDocumentLookup
}
