package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutput_AutoCorrectedForbiddenPatternIsDemotedToInfo(t *testing.T) {
	result := validateOutput("The answer is [TODO] finish this section.")

	require.True(t, result.Corrected)
	require.NotEmpty(t, result.Issues)
	for _, issue := range result.Issues {
		if issue.Type == "forbidden_content" {
			assert.Equal(t, "info", issue.Severity)
			assert.Contains(t, issue.Message, "[AUTO-CORRECTED]")
		}
	}
	assert.NotContains(t, result.CorrectedOutput, "[TODO]")
}

func TestValidateOutput_UnclosedCodeFenceStaysWarning(t *testing.T) {
	result := validateOutput("Here is code:\n```go\nfmt.Println(1)")

	require.True(t, result.Corrected)
	var sawWarning bool
	for _, issue := range result.Issues {
		if issue.Type == "format" {
			assert.Equal(t, "warning", issue.Severity)
			sawWarning = true
		}
	}
	assert.True(t, sawWarning)
}
