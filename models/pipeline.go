package models

import "time"

// PipelineStage names one of the nine fixed stages the orchestrator
// runs in order. Stage order is part of the contract: StageResults on
// a PipelineResult always appear in this order, never more than once
// each, and never out of sequence.
type PipelineStage string

const (
	StageIntentAnalysis      PipelineStage = "intent_analysis"
	StageRetrievalParams     PipelineStage = "retrieval_params"
	StageRetrieval           PipelineStage = "retrieval"
	StageRetrievalEvaluation PipelineStage = "retrieval_evaluation"
	StageAgentSelection      PipelineStage = "agent_selection"
	StageResponseGeneration  PipelineStage = "response_generation"
	StageGroundingEvaluation PipelineStage = "grounding_evaluation"
	StageOutputValidation    PipelineStage = "output_validation"
	StageMetricsRecording    PipelineStage = "metrics_recording"
)

// Stages is the fixed, ordered stage sequence the orchestrator runs.
var Stages = []PipelineStage{
	StageIntentAnalysis,
	StageRetrievalParams,
	StageRetrieval,
	StageRetrievalEvaluation,
	StageAgentSelection,
	StageResponseGeneration,
	StageGroundingEvaluation,
	StageOutputValidation,
	StageMetricsRecording,
}

// FatalStages is the subset of stages whose failure aborts the
// pipeline outright rather than degrading gracefully.
var FatalStages = map[PipelineStage]bool{
	StageIntentAnalysis:     true,
	StageRetrieval:          true,
	StageResponseGeneration: true,
}

// StageResult records one stage's outcome: whether it succeeded, how
// long it took, and an opaque payload the next stage or the caller may
// read back.
type StageResult struct {
	Stage      PipelineStage          `json:"stage"`
	Success    bool                   `json:"success"`
	DurationMS int64                  `json:"duration_ms"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// RetrievalParams tunes the retrieval stage; stage 4's retry path
// mutates a copy of these before re-running stage 3.
type RetrievalParams struct {
	DenseWeight         float64 `json:"dense_weight"`
	SparseWeight        float64 `json:"sparse_weight"`
	FuzzyWeight         float64 `json:"fuzzy_weight"`
	TopK                int     `json:"top_k"`
	RerankThreshold     float64 `json:"rerank_threshold"`
	GraphExpansionDepth int     `json:"graph_expansion_depth"`
}

// Widened returns a copy of p adjusted per the stage-4 retry recipe:
// top_k doubles (capped at 30), the rerank threshold relaxes by 0.1
// (floored at 0.3), and graph expansion goes one hop deeper.
func (p RetrievalParams) Widened() RetrievalParams {
	widened := p
	widened.TopK = p.TopK * 2
	if widened.TopK > 30 {
		widened.TopK = 30
	}
	widened.RerankThreshold = p.RerankThreshold - 0.1
	if widened.RerankThreshold < 0.3 {
		widened.RerankThreshold = 0.3
	}
	widened.GraphExpansionDepth = p.GraphExpansionDepth + 1
	return widened
}

// RetrievedSource is one document or chunk surfaced by the retrieval
// stage, carried through to grounding evaluation for citation.
type RetrievedSource struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// RetrievalMetrics is the stage-4 evaluation of what stage 3 returned.
type RetrievalMetrics struct {
	QualityScore float64 `json:"quality_score"`
	SourceCount  int     `json:"source_count"`
	Retried      bool    `json:"retried"`
}

// GroundedClaim is one atomic claim extracted from a generated answer,
// with whether it could be traced back to a retrieved source.
type GroundedClaim struct {
	Text       string   `json:"text"`
	Supported  bool     `json:"supported"`
	SourceRefs []string `json:"source_refs,omitempty"`
}

// GroundingResult is the stage-7 evaluation of a generated answer
// against the sources retrieved for it.
type GroundingResult struct {
	Score           float64         `json:"score"`
	Claims          []GroundedClaim `json:"claims"`
	UngroundedCount int             `json:"ungrounded_count"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
}

// ValidationIssue is one problem the output validator found.
type ValidationIssue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// ValidationResult is the stage-8 output validation outcome, including
// any auto-corrected text.
type ValidationResult struct {
	Valid           bool              `json:"valid"`
	Issues          []ValidationIssue `json:"issues"`
	CorrectedOutput string            `json:"corrected_output,omitempty"`
	Corrected       bool              `json:"corrected"`
}

// PipelineResult is the complete record of one pipeline execution,
// returned to the caller and persisted (minus the answer body, which
// the decision log omits by default) to the decision log.
type PipelineResult struct {
	RequestID            string            `json:"request_id"`
	Success              bool              `json:"success"`
	Query                string            `json:"query"`
	Answer               string            `json:"answer,omitempty"`
	Sources              []RetrievedSource `json:"sources,omitempty"`
	Intent               Classification    `json:"intent"`
	RetrievalParams      RetrievalParams   `json:"retrieval_params"`
	RetrievalMetrics     RetrievalMetrics  `json:"retrieval_metrics"`
	GroundingResult      GroundingResult   `json:"grounding_result"`
	ValidationResult     ValidationResult  `json:"validation_result"`
	SelectedAgent        string            `json:"selected_agent"`
	AgentSelectionReason string            `json:"agent_selection_reason"`
	TotalDurationMS      int64             `json:"total_duration_ms"`
	StageResults         []StageResult     `json:"stage_results"`
	QualityGatePassed    bool              `json:"quality_gate_passed"`
	UsedFallback         bool              `json:"used_fallback"`
	RequiresHumanReview  bool              `json:"requires_human_review"`
	ReviewReasons        []string          `json:"review_reasons,omitempty"`
	Timestamp            time.Time         `json:"timestamp"`
}
