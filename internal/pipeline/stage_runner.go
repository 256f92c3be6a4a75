package pipeline

import (
	"fmt"
	"time"

	"github.com/arohandas/introute/models"
)

// stageFunc is one pipeline stage's body: it may fail, but it must
// never panic out of runStage — a recovered panic is captured the same way
// an ordinary error is.
type stageFunc func() (map[string]interface{}, error)

// runStage times fn and wraps its outcome in a StageResult, capturing
// any panic as an ordinary stage error so a single misbehaving stage
// can never crash the orchestrator.
func runStage(stage models.PipelineStage, fn stageFunc) (result models.StageResult, recovered error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			recovered = fmt.Errorf("stage %s panicked: %v", stage, r)
			result = models.StageResult{
				Stage:      stage,
				Success:    false,
				DurationMS: time.Since(start).Milliseconds(),
				Error:      recovered.Error(),
			}
		}
	}()

	data, err := fn()
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		return models.StageResult{
			Stage:      stage,
			Success:    false,
			DurationMS: durationMS,
			Error:      err.Error(),
		}, err
	}

	return models.StageResult{
		Stage:      stage,
		Success:    true,
		DurationMS: durationMS,
		Data:       data,
	}, nil
}
