package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arohandas/introute/config"
	"github.com/arohandas/introute/internal/classifier"
	"github.com/arohandas/introute/internal/llmrouter"
	"github.com/arohandas/introute/internal/obslog"
	"github.com/arohandas/introute/internal/selector"
	"github.com/arohandas/introute/models"
)

// LogFactory builds a per-request observability logger. Passing nil to
// New disables step logging entirely; Execute still runs identically.
type LogFactory func(requestID string) (*obslog.Logger, error)

// Options controls one Execute call: an optional request ID, which
// classifier path to use, and an optional forced backend that replaces
// the table's backend in agent_selection (the agent selector still runs).
type Options struct {
	RequestID        string
	ForceBackend     models.Backend
	UseLLMClassifier bool
}

// Orchestrator sequences the nine fixed stages over a single query. It
// never touches the routing cache or the decision log directly — those
// are the router façade's concern, wrapping Execute with a cache lookup
// on the way in and a decision-log append on the way out.
type Orchestrator struct {
	classifier    *classifier.Classifier
	classifierLLM llmrouter.ClassifierLLM
	retriever     Retriever
	generator     Generator
	selector      *selector.Selector
	cfg           config.PipelineConfig
	logFactory    LogFactory
}

// New builds an Orchestrator from its collaborators. classifierLLM may
// be nil when the LLM-assisted classification variant isn't wired;
// Execute falls back to rule-based classification whenever it is nil
// or Options.UseLLMClassifier is false.
func New(c *classifier.Classifier, classifierLLM llmrouter.ClassifierLLM, retriever Retriever, generator Generator, sel *selector.Selector, cfg config.PipelineConfig, logFactory LogFactory) *Orchestrator {
	return &Orchestrator{
		classifier:    c,
		classifierLLM: classifierLLM,
		retriever:     retriever,
		generator:     generator,
		selector:      sel,
		cfg:           cfg,
		logFactory:    logFactory,
	}
}

// stageEnabled consults the per-stage enable flags. A disabled stage is
// skipped entirely: no StageResult is recorded for it, and downstream
// stages see defaults in place of its output.
func (o *Orchestrator) stageEnabled(stage models.PipelineStage) bool {
	switch stage {
	case models.StageIntentAnalysis:
		return o.cfg.EnableIntentAnalysis
	case models.StageRetrievalParams:
		return o.cfg.EnableRetrievalParams
	case models.StageRetrieval:
		return o.cfg.EnableRetrieval
	case models.StageRetrievalEvaluation:
		return o.cfg.EnableRetrievalEvaluation
	case models.StageAgentSelection:
		return o.cfg.EnableAgentSelection
	case models.StageResponseGeneration:
		return o.cfg.EnableResponseGeneration
	case models.StageGroundingEvaluation:
		return o.cfg.EnableGroundingEvaluation
	case models.StageOutputValidation:
		return o.cfg.EnableOutputValidation
	case models.StageMetricsRecording:
		return o.cfg.EnableMetricsRecording
	default:
		return false
	}
}

// Execute runs the nine stages in fixed order, aborting early only on
// a fatal stage's failure (intent_analysis, retrieval,
// response_generation). Every other stage's failure is captured into
// its StageResult and execution continues. It never returns a non-nil
// error itself except for log-factory construction failure; pipeline
// failures live inside the returned PipelineResult.
func (o *Orchestrator) Execute(ctx context.Context, query string, opts Options) (*models.PipelineResult, error) {
	requestID := opts.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	var logger *obslog.Logger
	if o.logFactory != nil {
		l, err := o.logFactory(requestID)
		if err != nil {
			return nil, fmt.Errorf("pipeline: building logger: %w", err)
		}
		logger = l
		defer logger.Sync()
	}

	start := time.Now()
	result := &models.PipelineResult{
		RequestID: requestID,
		Query:     query,
		Success:   true,
		Timestamp: start,
	}
	var stageResults []models.StageResult

	// skipped reports and logs a disabled stage; the caller falls
	// through to the next stage with defaults.
	skipped := func(stage models.PipelineStage) bool {
		if o.stageEnabled(stage) {
			return false
		}
		if logger != nil {
			logger.StageSkipped(string(stage))
		}
		return true
	}

	run := func(stage models.PipelineStage, fn stageFunc) error {
		if logger != nil {
			logger.StageStarted(string(stage))
		}
		sr, err := runStage(stage, fn)
		stageResults = append(stageResults, sr)
		if logger != nil {
			if err != nil {
				logger.StageFailed(string(stage), time.Duration(sr.DurationMS)*time.Millisecond, err)
			} else {
				logger.StageCompleted(string(stage), time.Duration(sr.DurationMS)*time.Millisecond)
			}
		}
		return err
	}

	// rerun executes stage again and replaces its recorded StageResult
	// in place, so stage results keep the fixed one-entry-per-stage
	// order even across the single permitted retrieval retry.
	rerun := func(stage models.PipelineStage, fn stageFunc) error {
		if logger != nil {
			logger.StageStarted(string(stage))
		}
		sr, err := runStage(stage, fn)
		for i := range stageResults {
			if stageResults[i].Stage == stage {
				stageResults[i] = sr
				break
			}
		}
		if logger != nil {
			if err != nil {
				logger.StageFailed(string(stage), time.Duration(sr.DurationMS)*time.Millisecond, err)
			} else {
				logger.StageCompleted(string(stage), time.Duration(sr.DurationMS)*time.Millisecond)
			}
		}
		return err
	}

	abort := func(stage models.PipelineStage, err error) (*models.PipelineResult, error) {
		result.Success = false
		result.RequiresHumanReview = true
		if ctx.Err() != nil {
			result.ReviewReasons = append(result.ReviewReasons, "cancelled")
		} else {
			result.ReviewReasons = append(result.ReviewReasons, fmt.Sprintf("%s: %v", stage, err))
		}
		result.StageResults = stageResults
		result.TotalDurationMS = time.Since(start).Milliseconds()
		return result, nil
	}

	// Stage 1: intent_analysis (fatal).
	if !skipped(models.StageIntentAnalysis) {
		err := run(models.StageIntentAnalysis, func() (map[string]interface{}, error) {
			classification := o.classifier.ClassifyRules(query)
			if opts.UseLLMClassifier && o.classifierLLM != nil {
				llmResult, cerr := o.classifierLLM.Classify(ctx, query)
				if cerr != nil {
					return nil, cerr
				}
				classification.Confidence = llmResult.Confidence
			}
			result.Intent = classifier.EstimateCostAndLatency(classification, query)
			return map[string]interface{}{"category": string(result.Intent.Category)}, nil
		})
		if err != nil {
			return abort(models.StageIntentAnalysis, err)
		}
	}

	// Stage 2: retrieval_params (non-fatal, defaults on failure).
	params := defaultRetrievalParams
	if !skipped(models.StageRetrievalParams) {
		_ = run(models.StageRetrievalParams, func() (map[string]interface{}, error) {
			params = deriveRetrievalParams(result.Intent)
			return map[string]interface{}{"top_k": params.TopK}, nil
		})
	}
	result.RetrievalParams = params

	// Stage 3: retrieval (fatal).
	var sources []models.RetrievedSource
	if !skipped(models.StageRetrieval) {
		err := run(models.StageRetrieval, func() (map[string]interface{}, error) {
			s, rerr := o.retriever.Retrieve(ctx, query, params)
			if rerr != nil {
				return nil, rerr
			}
			sources = s
			return map[string]interface{}{"source_count": len(s)}, nil
		})
		if err != nil {
			return abort(models.StageRetrieval, err)
		}
	}
	result.Sources = sources

	// Stage 4: retrieval_evaluation (non-fatal, with a single retry on a
	// low quality gate). The gate's original judgment stands even when
	// the retry recovers: QualityGatePassed records that the first
	// attempt fell short, UsedFallback records that the retry ran.
	result.QualityGatePassed = true
	var metrics models.RetrievalMetrics
	if !skipped(models.StageRetrievalEvaluation) {
		evalErr := run(models.StageRetrievalEvaluation, func() (map[string]interface{}, error) {
			metrics = evaluateRetrieval(sources, params.TopK)
			return map[string]interface{}{"quality_score": metrics.QualityScore}, nil
		})
		if evalErr == nil && metrics.QualityScore < o.cfg.MinRetrievalQuality {
			result.QualityGatePassed = false
			if o.cfg.EnableFallbackOnLowQuality && o.cfg.MaxRetrievalRetries > 1 {
				widened := params.Widened()
				retryErr := rerun(models.StageRetrieval, func() (map[string]interface{}, error) {
					s, rerr := o.retriever.Retrieve(ctx, query, widened)
					if rerr != nil {
						return nil, rerr
					}
					sources = s
					return map[string]interface{}{"source_count": len(s), "retried": true}, nil
				})
				if retryErr == nil {
					params = widened
					result.Sources = sources
					metrics = evaluateRetrieval(sources, params.TopK)
					metrics.Retried = true
					result.UsedFallback = true
				} else {
					result.ReviewReasons = append(result.ReviewReasons, fmt.Sprintf("retrieval retry: %v", retryErr))
				}
			}
		}
	}
	result.RetrievalMetrics = metrics
	result.RetrievalParams = params

	// Stage 5: agent_selection (non-fatal).
	var selectedAgent string
	if !skipped(models.StageAgentSelection) {
		_ = run(models.StageAgentSelection, func() (map[string]interface{}, error) {
			backend, backendConfidence, selectionReason := selector.BackendFor(result.Intent.Category, result.Intent.Features, result.Intent.Complexity)
			if opts.ForceBackend != "" {
				backend = opts.ForceBackend
				selectionReason = "backend forced by request"
				backendConfidence = 1.0
			}
			result.Intent.Confidence = backendConfidence

			sel, serr := o.selector.Select(ctx, taskTypeFor(result.Intent.Category), nil)
			if serr != nil {
				return map[string]interface{}{"backend": string(backend), "backend_reason": selectionReason}, serr
			}
			selectedAgent = sel.AgentID
			result.SelectedAgent = sel.AgentID
			result.AgentSelectionReason = sel.Reasoning
			return map[string]interface{}{"backend": string(backend), "backend_reason": selectionReason, "agent_id": sel.AgentID}, nil
		})
	}

	// Stage 6: response_generation (fatal).
	var answer string
	if !skipped(models.StageResponseGeneration) {
		err := run(models.StageResponseGeneration, func() (map[string]interface{}, error) {
			a, gerr := o.generator.Generate(ctx, query, sources, result.Intent, selectedAgent)
			if gerr != nil {
				return nil, gerr
			}
			answer = a
			return map[string]interface{}{"answer_length": len(a)}, nil
		})
		if err != nil {
			return abort(models.StageResponseGeneration, err)
		}
	}
	result.Answer = answer

	// Stage 7: grounding_evaluation (non-fatal).
	var grounding models.GroundingResult
	if !skipped(models.StageGroundingEvaluation) {
		groundErr := run(models.StageGroundingEvaluation, func() (map[string]interface{}, error) {
			grounding = evaluateGrounding(answer, sources)
			return map[string]interface{}{"score": grounding.Score}, nil
		})
		result.GroundingResult = grounding
		if groundErr == nil {
			if grounding.Score < o.cfg.MinGroundingScore {
				result.RequiresHumanReview = true
				result.ReviewReasons = append(result.ReviewReasons,
					fmt.Sprintf("grounding score %.2f below minimum %.2f", grounding.Score, o.cfg.MinGroundingScore))
			}
			if grounding.UngroundedCount > o.cfg.MaxUngroundedClaims {
				result.RequiresHumanReview = true
				result.ReviewReasons = append(result.ReviewReasons,
					fmt.Sprintf("%d ungrounded claims exceeds limit of %d", grounding.UngroundedCount, o.cfg.MaxUngroundedClaims))
			}
		}
	}

	// Stage 8: output_validation (non-fatal).
	if !skipped(models.StageOutputValidation) {
		var validation models.ValidationResult
		_ = run(models.StageOutputValidation, func() (map[string]interface{}, error) {
			validation = validateOutput(answer)
			return map[string]interface{}{"issue_count": len(validation.Issues)}, nil
		})
		result.ValidationResult = validation
		if validation.Corrected && validation.CorrectedOutput != "" {
			result.Answer = validation.CorrectedOutput
		}
		for _, issue := range validation.Issues {
			if issue.Severity == "error" {
				result.RequiresHumanReview = true
				result.ReviewReasons = append(result.ReviewReasons, issue.Message)
			}
		}
	}

	// Stage 9: metrics_recording (non-fatal). Feeds the observed outcome
	// back into the selector's performance record; decision-log
	// recording itself belongs to the router façade wrapping Execute.
	if !skipped(models.StageMetricsRecording) {
		_ = run(models.StageMetricsRecording, func() (map[string]interface{}, error) {
			if selectedAgent == "" {
				return nil, nil
			}
			outcome := models.OutcomeRecord{
				AgentID:   selectedAgent,
				TaskType:  taskTypeFor(result.Intent.Category),
				Success:   result.Success && !result.RequiresHumanReview,
				LatencyMS: float64(time.Since(start).Milliseconds()),
				Quality:   grounding.Score,
				Timestamp: time.Now(),
			}
			if rerr := o.selector.RecordOutcome(ctx, outcome); rerr != nil {
				return nil, rerr
			}
			return map[string]interface{}{"agent_id": selectedAgent}, nil
		})
	}

	result.StageResults = stageResults
	result.TotalDurationMS = time.Since(start).Milliseconds()
	return result, nil
}
