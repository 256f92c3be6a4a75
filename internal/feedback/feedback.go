// Package feedback implements the feedback integrator: amending the
// decision log, folding observed outcomes back into the agent
// selector's performance records, and logging corrected-backend pairs
// for calibration review without ever mutating the deterministic
// category-to-backend mapping itself.
package feedback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arohandas/introute/internal/decisionlog"
	"github.com/arohandas/introute/models"
)

// OutcomeRecorder is the subset of *selector.Selector the Integrator
// needs; narrowed to an interface so tests don't need a real
// perf-store-backed Selector.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, outcome models.OutcomeRecord) error
}

// Calibration is one (category, corrected_backend) pair surfaced by a
// human correction. It is never consulted at routing time; it exists
// purely for offline review of whether the deterministic table
// should change.
type Calibration struct {
	Category         models.Category
	CorrectedBackend models.Backend
	Notes            string
	Timestamp        time.Time
}

// CalibrationSink receives calibration pairs as they arrive. The
// default sink keeps them in memory; a production deployment would
// likely persist these to its own table or ship them to an analytics
// pipeline instead.
type CalibrationSink interface {
	Record(c Calibration)
}

// MemoryCalibrationSink is the default CalibrationSink: an in-process,
// bounded-by-nothing log of every correction seen this process
// lifetime, readable back for an admin-facing calibration report.
type MemoryCalibrationSink struct {
	mu      sync.Mutex
	entries []Calibration
}

// NewMemoryCalibrationSink builds an empty MemoryCalibrationSink.
func NewMemoryCalibrationSink() *MemoryCalibrationSink {
	return &MemoryCalibrationSink{}
}

// Record appends c.
func (s *MemoryCalibrationSink) Record(c Calibration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, c)
}

// Entries returns a copy of every calibration pair recorded so far.
func (s *MemoryCalibrationSink) Entries() []Calibration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Calibration, len(s.entries))
	copy(out, s.entries)
	return out
}

// Integrator wires a completed Feedback submission into the decision
// log, the selector's performance cache, and the calibration sink.
type Integrator struct {
	log         *decisionlog.Log
	selector    OutcomeRecorder
	calibration CalibrationSink
}

// New builds an Integrator. calibration may be nil, in which case
// corrected-backend pairs are simply dropped on the floor — callers
// that don't care about offline calibration review can skip it.
func New(log *decisionlog.Log, sel OutcomeRecorder, calibration CalibrationSink) *Integrator {
	return &Integrator{log: log, selector: sel, calibration: calibration}
}

// Submit applies one Feedback submission: amends the decision log
// record it refers to, and — when the original decision named an
// agent — folds the observed success/quality/latency into that
// agent's running performance record via an EWMA update (the
// math lives in *selector.Selector.RecordOutcome). An unknown
// request_id is a non-fatal no-op, per the Feedback API contract.
func (i *Integrator) Submit(ctx context.Context, fb models.Feedback) error {
	decision, found, err := i.log.Get(ctx, fb.RequestID)
	if err != nil {
		return fmt.Errorf("feedback: looking up decision %s: %w", fb.RequestID, err)
	}

	if err := i.log.Amend(ctx, fb); err != nil {
		return fmt.Errorf("feedback: amending decision %s: %w", fb.RequestID, err)
	}

	if !found {
		return nil
	}

	if decision.AgentID != "" {
		outcome := models.OutcomeRecord{
			AgentID:   decision.AgentID,
			TaskType:  taskTypeForCategory(decision.Classification.Category),
			Success:   fb.Success,
			LatencyMS: float64(fb.LatencyMS),
			Quality:   fb.QualityScore,
			Timestamp: fb.Timestamp,
		}
		if err := i.selector.RecordOutcome(ctx, outcome); err != nil {
			return fmt.Errorf("feedback: recording outcome for %s: %w", decision.AgentID, err)
		}
	}

	if fb.CorrectedBackend != "" && i.calibration != nil {
		i.calibration.Record(Calibration{
			Category:         decision.Classification.Category,
			CorrectedBackend: fb.CorrectedBackend,
			Notes:            fb.Notes,
			Timestamp:        fb.Timestamp,
		})
	}

	return nil
}

// taskTypeForCategory mirrors internal/pipeline's category-to-TaskType
// mapping. It's duplicated rather than imported because internal/pipeline
// keeps its taskTypeFor unexported; both map the same six
// categories onto the same task types for the same reason (matching
// the registry's own primary-task assignments).
func taskTypeForCategory(category models.Category) models.TaskType {
	switch category {
	case models.CategoryResearch:
		return models.TaskResearch
	case models.CategoryDocumentAnalysis:
		return models.TaskAnalysis
	case models.CategoryMultiStep:
		return models.TaskAnalysis
	case models.CategoryEntityExtraction:
		return models.TaskEntityExtraction
	case models.CategoryConversational:
		return models.TaskAnswerGeneration
	case models.CategoryDocumentLookup:
		fallthrough
	default:
		return models.TaskAnswerGeneration
	}
}
