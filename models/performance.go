package models

import "time"

// TaskType is one of the fixed downstream task kinds an agent/worker
// can be rated against. The vocabulary is intentionally larger than the
// six query categories: the registry's agents are rated per task, and
// each category maps onto one of these tasks for agent selection (e.g.
// document_analysis onto ANALYSIS).
type TaskType string

const (
	TaskSummarization    TaskType = "summarization"
	TaskClassification   TaskType = "classification"
	TaskEntityExtraction TaskType = "entity_extraction"
	TaskRelationshipMap  TaskType = "relationship_mapping"
	TaskContextSynthesis TaskType = "context_synthesis"
	TaskAnswerGeneration TaskType = "answer_generation"
	TaskCitationValidate TaskType = "citation_validation"
	TaskResearch         TaskType = "research"
	TaskAnalysis         TaskType = "analysis"
	TaskWriting          TaskType = "writing"
	TaskReview           TaskType = "review"
	TaskFactChecking     TaskType = "fact_checking"
	TaskQueryRouting     TaskType = "query_routing"
	TaskMemoryManagement TaskType = "memory_management"
	TaskGraphQuery       TaskType = "graph_query"
)

// CostTier is a coarse, relative cost bucket; when the caller prefers
// low cost, the selector multiplies a CostLow agent's composite score
// by 1.2.
type CostTier string

const (
	CostLow    CostTier = "low"
	CostMedium CostTier = "medium"
	CostHigh   CostTier = "high"
)

// AgentCapability is the static description of one downstream
// agent/worker: what it's good for, and what it costs.
type AgentCapability struct {
	AgentID          string     `json:"agent_id"`
	AgentName        string     `json:"agent_name"`
	PrimaryTasks     []TaskType `json:"primary_tasks"`
	SecondaryTasks   []TaskType `json:"secondary_tasks"`
	Model            string     `json:"model"`
	Description      string     `json:"description"`
	MaxContextTokens int        `json:"max_context_tokens"`
	SupportsStream   bool       `json:"supports_streaming"`
	CostTier         CostTier   `json:"cost_tier"`
}

// SupportsTask reports whether the agent lists a task as primary or
// secondary.
func (a AgentCapability) SupportsTask(t TaskType) bool {
	for _, p := range a.PrimaryTasks {
		if p == t {
			return true
		}
	}
	for _, s := range a.SecondaryTasks {
		if s == t {
			return true
		}
	}
	return false
}

// IsPrimary reports whether the task is one of the agent's primary
// tasks, as opposed to merely supported.
func (a AgentCapability) IsPrimary(t TaskType) bool {
	for _, p := range a.PrimaryTasks {
		if p == t {
			return true
		}
	}
	return false
}

// AgentPerformance is the running, EWMA-smoothed performance record
// the selector consults to rank candidates.
type AgentPerformance struct {
	AgentID              string    `json:"agent_id"`
	TaskType             TaskType  `json:"task_type"`
	TotalExecutions      int64     `json:"total_executions"`
	SuccessfulExecutions int64     `json:"successful_executions"`
	AverageLatencyMS     float64   `json:"average_latency_ms"`
	AverageQualityScore  float64   `json:"average_quality_score"`
	LastExecution        time.Time `json:"last_execution"`
}

// SuccessRate is successful executions over total; zero when untried.
func (p AgentPerformance) SuccessRate() float64 {
	if p.TotalExecutions == 0 {
		return 0
	}
	return float64(p.SuccessfulExecutions) / float64(p.TotalExecutions)
}

// SpeedBonus rewards low average latency relative to a 10s ceiling;
// clamped at zero for anything slower than the ceiling.
func (p AgentPerformance) SpeedBonus() float64 {
	bonus := 1 - p.AverageLatencyMS/10000
	if bonus < 0 {
		return 0
	}
	return bonus
}

// CompositeScore blends quality, success rate, and speed into the
// single scalar the exploitation branch of the selector ranks on.
func (p AgentPerformance) CompositeScore() float64 {
	return 0.6*p.AverageQualityScore + 0.3*p.SuccessRate() + 0.1*p.SpeedBonus()
}

// OutcomeRecord is one observed execution outcome fed back into the
// selector via record_outcome.
type OutcomeRecord struct {
	AgentID   string    `json:"agent_id"`
	TaskType  TaskType  `json:"task_type"`
	Success   bool      `json:"success"`
	LatencyMS float64   `json:"latency_ms"`
	Quality   float64   `json:"quality_score"`
	Timestamp time.Time `json:"timestamp"`
}

// PerformanceReport aggregates an agent's records across every task
// type it has been exercised against, for the admin analytics surface.
type PerformanceReport struct {
	AgentID            string                        `json:"agent_id"`
	ByTask             map[TaskType]AgentPerformance `json:"by_task"`
	TotalExecutions    int64                         `json:"total_executions"`
	OverallSuccessRate float64                       `json:"overall_success_rate"`
}
