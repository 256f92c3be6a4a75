package selector

import "github.com/arohandas/introute/models"

// Capabilities is the static registry of every agent/worker the
// selector can route a task to. It is fixed at process start; adding
// an agent means adding an entry here and redeploying, not a runtime
// operation.
var Capabilities = map[string]models.AgentCapability{
	"AGENT-001": {
		AgentID: "AGENT-001", AgentName: "Query Router",
		PrimaryTasks:   []models.TaskType{models.TaskQueryRouting},
		SecondaryTasks: []models.TaskType{models.TaskClassification},
		Model:          "gpt-4o-mini",
		Description:    "Routes queries to the appropriate backend",
		CostTier:       models.CostLow,
	},
	"AGENT-002": {
		AgentID: "AGENT-002", AgentName: "Content Summarizer",
		PrimaryTasks:   []models.TaskType{models.TaskSummarization},
		SecondaryTasks: []models.TaskType{models.TaskContextSynthesis},
		Model:          "gpt-4o",
		Description:    "Summary generation with key-point extraction",
	},
	"AGENT-003": {
		AgentID: "AGENT-003", AgentName: "Entity Extractor",
		PrimaryTasks:   []models.TaskType{models.TaskEntityExtraction},
		SecondaryTasks: []models.TaskType{models.TaskAnalysis},
		Model:          "gpt-4o",
		Description:    "Extracts named entities for structured output",
	},
	"AGENT-004": {
		AgentID: "AGENT-004", AgentName: "Relationship Mapper",
		PrimaryTasks:   []models.TaskType{models.TaskRelationshipMap},
		SecondaryTasks: []models.TaskType{models.TaskGraphQuery},
		Model:          "gpt-4o",
		Description:    "Maps relationships between extracted entities",
	},
	"AGENT-005": {
		AgentID: "AGENT-005", AgentName: "Context Synthesizer",
		PrimaryTasks:   []models.TaskType{models.TaskContextSynthesis},
		SecondaryTasks: []models.TaskType{models.TaskSummarization, models.TaskAnswerGeneration},
		Model:          "gpt-4o",
		Description:    "Synthesizes context from multiple retrieved sources",
	},
	"AGENT-006": {
		AgentID: "AGENT-006", AgentName: "Answer Generator",
		PrimaryTasks:   []models.TaskType{models.TaskAnswerGeneration},
		SecondaryTasks: []models.TaskType{models.TaskWriting},
		Model:          "gpt-4o",
		Description:    "Generates final responses with citations",
	},
	"AGENT-007": {
		AgentID: "AGENT-007", AgentName: "Citation Validator",
		PrimaryTasks:   []models.TaskType{models.TaskCitationValidate},
		SecondaryTasks: []models.TaskType{models.TaskFactChecking},
		Model:          "gpt-4o-mini",
		Description:    "Verifies that citations support their claims",
		CostTier:       models.CostLow,
	},
	"AGENT-008": {
		AgentID: "AGENT-008", AgentName: "Category Classifier",
		PrimaryTasks:   []models.TaskType{models.TaskClassification},
		SecondaryTasks: []models.TaskType{models.TaskQueryRouting},
		Model:          "gpt-4o",
		Description:    "Classifies content into routing categories",
	},
	"AGENT-009": {
		AgentID: "AGENT-009", AgentName: "Senior Research Analyst",
		PrimaryTasks:   []models.TaskType{models.TaskResearch, models.TaskAnalysis},
		SecondaryTasks: []models.TaskType{models.TaskEntityExtraction, models.TaskFactChecking},
		Model:          "gpt-4o",
		Description:    "Extracts topics, entities, and facts with quality assessment",
	},
	"AGENT-010": {
		AgentID: "AGENT-010", AgentName: "Content Strategist",
		PrimaryTasks:   []models.TaskType{models.TaskSummarization, models.TaskWriting},
		SecondaryTasks: []models.TaskType{models.TaskContextSynthesis},
		Model:          "gpt-4o",
		Description:    "Generates executive summaries and recommendations",
	},
	"AGENT-011": {
		AgentID: "AGENT-011", AgentName: "Fact Checker",
		PrimaryTasks:   []models.TaskType{models.TaskFactChecking},
		SecondaryTasks: []models.TaskType{models.TaskCitationValidate, models.TaskReview},
		Model:          "gpt-4o",
		Description:    "Verifies claims with confidence scores and citations",
	},
	"AGENT-012": {
		AgentID: "AGENT-012", AgentName: "Research Agent",
		PrimaryTasks:   []models.TaskType{models.TaskResearch},
		SecondaryTasks: []models.TaskType{models.TaskAnalysis},
		Model:          "gpt-4o",
		Description:    "Web and document search with source credibility scoring",
	},
	"AGENT-013": {
		AgentID: "AGENT-013", AgentName: "Analysis Agent",
		PrimaryTasks:   []models.TaskType{models.TaskAnalysis},
		SecondaryTasks: []models.TaskType{models.TaskResearch, models.TaskEntityExtraction},
		Model:          "gpt-4o",
		Description:    "Pattern detection and statistical analysis",
	},
	"AGENT-014": {
		AgentID: "AGENT-014", AgentName: "Writing Agent",
		PrimaryTasks:   []models.TaskType{models.TaskWriting},
		SecondaryTasks: []models.TaskType{models.TaskSummarization, models.TaskAnswerGeneration},
		Model:          "gpt-4o",
		Description:    "Report generation with multi-format output",
	},
	"AGENT-015": {
		AgentID: "AGENT-015", AgentName: "Review Agent",
		PrimaryTasks:   []models.TaskType{models.TaskReview},
		SecondaryTasks: []models.TaskType{models.TaskFactChecking, models.TaskCitationValidate},
		Model:          "gpt-4o",
		Description:    "Quality assurance and revision pass",
	},
	"AGENT-016": {
		AgentID: "AGENT-016", AgentName: "Memory Agent",
		PrimaryTasks:   []models.TaskType{models.TaskMemoryManagement},
		SecondaryTasks: []models.TaskType{models.TaskContextSynthesis},
		Model:          "gpt-4o-mini",
		Description:    "User context management and personalization",
		CostTier:       models.CostLow,
	},
	"AGENT-017": {
		AgentID: "AGENT-017", AgentName: "Graph Query Agent",
		PrimaryTasks:   []models.TaskType{models.TaskGraphQuery},
		SecondaryTasks: []models.TaskType{models.TaskRelationshipMap, models.TaskEntityExtraction},
		Model:          "gpt-4o",
		Description:    "Graph traversal and query generation",
	},
}

// EligibleAgents returns every agent whose primary or secondary task
// list includes t, in the registry's natural (unsorted) order.
func EligibleAgents(t models.TaskType) []string {
	var eligible []string
	for id, cap := range Capabilities {
		if cap.SupportsTask(t) {
			eligible = append(eligible, id)
		}
	}
	return eligible
}
