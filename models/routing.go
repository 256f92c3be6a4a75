package models

import "time"

// RoutingDecision is the complete record of one routing call: the
// classification that produced it, the chosen backend, and the
// provenance (cache hit vs fresh classification) of that choice.
type RoutingDecision struct {
	RequestID      string         `json:"request_id"`
	Query          string         `json:"query"`
	Classification Classification `json:"classification"`
	Backend        Backend        `json:"backend"`
	AgentID        string         `json:"agent_id,omitempty"`
	Reason         string         `json:"reason"`
	Forced         bool           `json:"forced"`
	CacheHit       bool           `json:"cache_hit"`
	CacheTier      CacheTier      `json:"cache_tier,omitempty"`
	SuggestedTools []string       `json:"suggested_tools,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	ProcessingTime time.Duration  `json:"processing_time"`
}

// SelectionResult is the output of the agent/backend selector: which
// candidate was chosen, why, the alternatives considered, and whether
// the pick came from exploration or exploitation.
type SelectionResult struct {
	AgentID      string   `json:"agent_id"`
	Confidence   float64  `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
	Alternatives []string `json:"alternatives"`
	Explored     bool     `json:"explored"`
}

// Feedback amends a previously recorded routing decision with an
// outcome observed after the fact: whether the chosen backend/agent
// performed well, and an optional human correction.
type Feedback struct {
	RequestID         string    `json:"request_id"`
	Success           bool      `json:"success"`
	QualityScore      float64   `json:"quality_score"`
	LatencyMS         int64     `json:"latency_ms"`
	CorrectedBackend  Backend   `json:"corrected_backend,omitempty"`
	CorrectedCategory Category  `json:"corrected_category,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}
