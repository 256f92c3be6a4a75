// Package llmrouter implements the optional LLM-assisted classifier
// variant: a ClassifierLLM collaborator that asks a model to recommend
// a backend directly, with a rule-based fallback when the call or its
// response parsing fails.
package llmrouter

import (
	"context"

	"github.com/arohandas/introute/models"
)

// ClassifyResult is what the LLM-assisted classifier reports: the
// backend it recommends, its own confidence and reasoning, and the
// tools it suggests for the query. On success the caller must not
// recompute backend or confidence from the deterministic table.
// Fallback reports the same shape but with Fallback set, so the caller
// knows the values came from the rule-based table rather than the
// model.
type ClassifyResult struct {
	Backend        models.Backend
	Confidence     float64
	Reasoning      string
	SuggestedTools []string
	Fallback       bool
}

// ClassifierLLM is the outbound collaborator contract for LLM-assisted
// classification. It never returns an error for a malformed model
// response — that case is folded into the rule-based fallback path so
// the classifier always produces a usable result.
type ClassifierLLM interface {
	Classify(ctx context.Context, query string) (ClassifyResult, error)
}
