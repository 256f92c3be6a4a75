package llmrouter

import (
	"testing"

	"github.com/arohandas/introute/internal/classifier"
	"github.com/arohandas/introute/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassifyResponse_PlainJSON(t *testing.T) {
	content := `{"backend": "adaptive_iterative", "confidence": 0.92, "reasoning": "needs current data", "suggested_tools": ["web_search"]}`
	parsed, err := parseClassifyResponse(content)
	require.NoError(t, err)
	assert.Equal(t, "adaptive_iterative", parsed.Backend)
	assert.InDelta(t, 0.92, parsed.Confidence, 1e-9)
	assert.Equal(t, []string{"web_search"}, parsed.SuggestedTools)
}

func TestParseClassifyResponse_FencedJSONBlock(t *testing.T) {
	content := "Here you go:\n```json\n{\"backend\": \"direct_retrieval\", \"confidence\": 0.8, \"reasoning\": \"small talk\", \"suggested_tools\": []}\n```\n"
	parsed, err := parseClassifyResponse(content)
	require.NoError(t, err)
	assert.Equal(t, "direct_retrieval", parsed.Backend)
}

func TestParseClassifyResponse_PlainFencedBlock(t *testing.T) {
	content := "```\n{\"backend\": \"multi_agent_sequential\", \"confidence\": 0.7, \"reasoning\": \"several steps\", \"suggested_tools\": []}\n```"
	parsed, err := parseClassifyResponse(content)
	require.NoError(t, err)
	assert.Equal(t, "multi_agent_sequential", parsed.Backend)
}

func TestParseClassifyResponse_MalformedJSONErrors(t *testing.T) {
	_, err := parseClassifyResponse("not json at all")
	assert.Error(t, err)
}

func TestValidBackend(t *testing.T) {
	assert.True(t, validBackend(models.BackendAdaptiveIterative))
	assert.False(t, validBackend(models.Backend("not_a_backend")))
}

func TestRuleBasedFallback_ScalesConfidenceAndMarksFallback(t *testing.T) {
	c := &OpenAIClassifierLLM{fallback: classifier.New()}
	result := c.ruleBasedFallback("Hi there")

	assert.True(t, result.Fallback)
	assert.Empty(t, result.SuggestedTools)
	assert.Contains(t, result.Reasoning, "Rule-based fallback:")
	assert.NotEmpty(t, result.Backend)
}
