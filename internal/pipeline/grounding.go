package pipeline

import (
	"strings"

	"github.com/arohandas/introute/models"
)

// splitClaims breaks an answer into atomic claims along sentence
// boundaries, matching answer_grounding_evaluator's per-claim
// decomposition without requiring an LLM call to do it.
func splitClaims(answer string) []string {
	raw := strings.FieldsFunc(answer, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	claims := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c != "" {
			claims = append(claims, c)
		}
	}
	return claims
}

// wordOverlap reports the fraction of claim's significant words (len
// > 3, to skip articles/prepositions) that appear in source, a cheap
// stand-in for semantic alignment scoring.
func wordOverlap(claim, source string) float64 {
	claimWords := significantWords(claim)
	if len(claimWords) == 0 {
		return 0
	}

	sourceLower := strings.ToLower(source)
	var matched int
	for _, w := range claimWords {
		if strings.Contains(sourceLower, w) {
			matched++
		}
	}
	return float64(matched) / float64(len(claimWords))
}

func significantWords(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

// claimOverlapThreshold is the minimum word-overlap fraction against a
// source for a claim to count as supported.
const claimOverlapThreshold = 0.5

// evaluateGrounding (stage 7) checks each atomic claim in answer
// against the retrieved sources, producing the per-claim breakdown
// answer_grounding_evaluator.py exposes behind its aggregate score.
func evaluateGrounding(answer string, sources []models.RetrievedSource) models.GroundingResult {
	claims := splitClaims(answer)
	if len(claims) == 0 {
		return models.GroundingResult{Score: 0, ConfidenceLevel: models.ConfidenceLow}
	}

	result := models.GroundingResult{Claims: make([]models.GroundedClaim, 0, len(claims))}

	var supportedCount int
	for _, claim := range claims {
		grounded := models.GroundedClaim{Text: claim}
		for _, source := range sources {
			if wordOverlap(claim, source.Content) >= claimOverlapThreshold {
				grounded.Supported = true
				grounded.SourceRefs = append(grounded.SourceRefs, source.ID)
			}
		}
		if grounded.Supported {
			supportedCount++
		} else {
			result.UngroundedCount++
		}
		result.Claims = append(result.Claims, grounded)
	}

	result.Score = float64(supportedCount) / float64(len(claims))
	result.ConfidenceLevel = models.ConfidenceLevelOf(result.Score)
	return result
}
