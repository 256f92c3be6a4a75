package llmrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/arohandas/introute/internal/classifier"
	"github.com/arohandas/introute/internal/selector"
	"github.com/arohandas/introute/models"
)

// OpenAIClassifierLLM asks a chat model to recommend a backend
// directly instead of running the rule-based pattern vocabulary,
// trading latency and cost for (usually) better accuracy on ambiguous
// queries. Any failure — API error, malformed JSON, an unrecognized
// backend — falls back to the rule-based Classifier plus the
// deterministic table, with its confidence scaled by 0.8, never
// returning an error to the caller.
type OpenAIClassifierLLM struct {
	client    *openai.Client
	model     string
	maxTokens int
	fallback  *classifier.Classifier
}

// NewOpenAIClassifierLLM builds a ClassifierLLM backed by apiKey/model,
// falling back to fallback's rule-based path on any failure.
func NewOpenAIClassifierLLM(apiKey, model string, maxTokens int, fallback *classifier.Classifier) *OpenAIClassifierLLM {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &OpenAIClassifierLLM{
		client:    openai.NewClient(apiKey),
		model:     model,
		maxTokens: maxTokens,
		fallback:  fallback,
	}
}

const classifyPrompt = `Classify this query and recommend the best processing backend:

Query: %q

Backends:

1. adaptive_iterative - Use for queries needing:
   - Iterative refinement and quality evaluation
   - External web search (for current events, regulations, trends)
   - Adaptive branching logic based on intermediate results
   - Complex research requiring multiple sources

2. multi_agent_sequential - Use for tasks needing:
   - Multi-agent collaboration with specialized roles
   - Multi-document processing and comparison
   - Entity extraction across multiple sources
   - Sequential workflows with handoffs

3. direct_retrieval - Use for queries that:
   - Can be answered directly from the knowledge base
   - Are straightforward factual lookups
   - Don't need external data or multi-step processing
   - Are conversational or simple questions

Respond in JSON only:
{
  "backend": "adaptive_iterative|multi_agent_sequential|direct_retrieval",
  "confidence": 0.0-1.0,
  "reasoning": "one or two sentences",
  "suggested_tools": ["tool1", "tool2"]
}

Be conservative — if unsure, choose direct_retrieval.`

type classifyResponse struct {
	Backend        string   `json:"backend"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	SuggestedTools []string `json:"suggested_tools"`
}

// Classify asks the model to recommend a backend for query, parsing
// its JSON response (optionally fenced in a ```json or ``` code
// block). The returned backend, confidence, reasoning, and suggested
// tools are the LLM's own, never recomputed from the deterministic
// table. On any failure it falls back to rule-based classification
// plus that table.
func (c *OpenAIClassifierLLM) Classify(ctx context.Context, query string) (ClassifyResult, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(classifyPrompt, query)},
		},
	})
	if err != nil {
		return c.ruleBasedFallback(query), nil
	}
	if len(resp.Choices) == 0 {
		return c.ruleBasedFallback(query), nil
	}

	parsed, err := parseClassifyResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return c.ruleBasedFallback(query), nil
	}

	backend := models.Backend(parsed.Backend)
	if !validBackend(backend) {
		return c.ruleBasedFallback(query), nil
	}

	return ClassifyResult{
		Backend:        backend,
		Confidence:     parsed.Confidence,
		Reasoning:      parsed.Reasoning,
		SuggestedTools: parsed.SuggestedTools,
	}, nil
}

// ruleBasedFallback mirrors classify_query_llm's except branch: run
// the deterministic classifier and category-to-backend table, scale
// the resulting confidence by 0.8, and report no suggested tools.
func (c *OpenAIClassifierLLM) ruleBasedFallback(query string) ClassifyResult {
	classification := c.fallback.ClassifyRules(query)
	backend, confidence, tableReason := selector.BackendFor(classification.Category, classification.Features, classification.Complexity)
	return ClassifyResult{
		Backend:    backend,
		Confidence: confidence * 0.8,
		Reasoning:  fmt.Sprintf("Rule-based fallback: %s", tableReason),
		Fallback:   true,
	}
}

func parseClassifyResponse(content string) (classifyResponse, error) {
	jsonStr := content
	if strings.Contains(content, "```json") {
		parts := strings.SplitN(content, "```json", 2)
		jsonStr = strings.SplitN(parts[1], "```", 2)[0]
	} else if strings.Contains(content, "```") {
		parts := strings.SplitN(content, "```", 2)
		jsonStr = strings.SplitN(parts[1], "```", 2)[0]
	}
	jsonStr = strings.TrimSpace(jsonStr)

	var parsed classifyResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return classifyResponse{}, err
	}
	return parsed, nil
}

func validBackend(b models.Backend) bool {
	switch b {
	case models.BackendAdaptiveIterative, models.BackendMultiAgentSequential, models.BackendDirectRetrieval:
		return true
	default:
		return false
	}
}
