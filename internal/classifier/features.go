package classifier

import (
	"strings"

	"github.com/arohandas/introute/models"
)

// DetectFeatures scans query against every pattern in the set and
// returns the features whose pattern list has at least one substring
// match. Matching is case-insensitive; the query is not normalized
// beyond lowercasing so that word-boundary patterns like " hi " still
// work against the raw spacing.
func DetectFeatures(query string, patterns PatternSet) models.FeatureSet {
	lower := strings.ToLower(query)
	detected := make(models.FeatureSet)

	for feature, candidates := range patterns.Features {
		for _, candidate := range candidates {
			if strings.Contains(lower, candidate) {
				detected[feature] = struct{}{}
				break
			}
		}
	}

	return detected
}
