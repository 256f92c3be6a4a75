package classifier

import (
	"strings"

	"github.com/arohandas/introute/models"
)

// complexityWeights mirrors the routing service's scoring table. The
// weights don't sum to 1 by design — several are mutually exclusive in
// practice (e.g. a short conversational query rarely also triggers
// multi_document), so the ceiling is soft.
const (
	weightQueryLength      = 0.15
	weightQuestionWords    = 0.20
	weightMultiDocument    = 0.25
	weightExternalData     = 0.20
	weightEntityExtraction = 0.10
	weightReasoning        = 0.10
)

var defaultQuestionWords = []string{"why", "how", "explain", "analyze", "compare"}

// CalculateComplexity scores a query against its detected features and
// buckets the score into simple/moderate/complex. questionWords comes
// from the active pattern set so the contribution stays tunable
// alongside the feature vocabulary; nil falls back to the built-ins.
func CalculateComplexity(query string, features models.FeatureSet, questionWords []string) models.Complexity {
	if len(questionWords) == 0 {
		questionWords = defaultQuestionWords
	}

	score := 0.0
	lower := strings.ToLower(query)

	wordCount := len(strings.Fields(query))
	switch {
	case wordCount > 50:
		score += weightQueryLength
	case wordCount > 20:
		score += weightQueryLength * 0.5
	}

	for _, word := range questionWords {
		if strings.Contains(lower, word) {
			score += weightQuestionWords
			break
		}
	}

	if features.Has(models.FeatureMultiDocument) {
		score += weightMultiDocument
	}
	if features.Has(models.FeatureExternalDataNeeded) {
		score += weightExternalData
	}
	if features.Has(models.FeatureEntityExtraction) {
		score += weightEntityExtraction
	}
	if features.Has(models.FeatureComplexReasoning) {
		score += weightReasoning
	}

	switch {
	case score >= 0.6:
		return models.ComplexityComplex
	case score >= 0.3:
		return models.ComplexityModerate
	default:
		return models.ComplexitySimple
	}
}
