// Package pipeline implements the nine-stage adaptive quality
// pipeline: the Stage Runner (uniform timed execution with captured
// errors) and the Orchestrator that sequences the nine fixed stages,
// enforcing the fatal/non-fatal policy, the single bounded retry on
// low-quality retrieval, and the quality gates that flag a result for
// human review.
package pipeline

import (
	"context"

	"github.com/arohandas/introute/models"
)

// Retriever is the outbound collaborator that fetches candidate
// sources for a query under a given set of retrieval parameters.
type Retriever interface {
	Retrieve(ctx context.Context, query string, params models.RetrievalParams) ([]models.RetrievedSource, error)
}

// Generator is the outbound collaborator that produces a final answer
// from a query, its retrieved sources, the classified intent, and the
// agent chosen to handle it.
type Generator interface {
	Generate(ctx context.Context, query string, sources []models.RetrievedSource, intent models.Classification, agentID string) (string, error)
}
