// Package obslog provides structured, per-request step logging for the
// pipeline orchestrator: one StepLog per pipeline stage, timed and
// captured uniformly, mirroring the Stage Runner's own uniform
// success/error capture but at the logging layer instead of the data
// layer.
package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StepStatus is the outcome of one logged stage.
type StepStatus string

const (
	StatusStarted   StepStatus = "started"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

// Step is one recorded pipeline stage execution.
type Step struct {
	Stage     string        `json:"stage"`
	Status    StepStatus    `json:"status"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Logger is a per-request step log: every pipeline stage this request
// ran through, in order, with timing and outcome.
type Logger struct {
	zap       *zap.Logger
	requestID string
	startTime time.Time

	mu    sync.Mutex
	steps []Step
}

// New builds a Logger writing structured JSON to stdout (when
// enableConsole) and/or a dated file under logDir (when enableFile),
// at the given level ("debug"|"info"|"warn"|"error").
func New(requestID, level string, enableConsole, enableFile bool, logDir string) (*Logger, error) {
	zapLevel := zapcore.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level.SetLevel(zapLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var outputs []string
	if enableConsole {
		outputs = append(outputs, "stdout")
	}
	if enableFile {
		if logDir == "" {
			logDir = "./logs"
		}
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("obslog: failed to create log directory %s: %w", logDir, err)
		}
		outputs = append(outputs, filepath.Join(logDir, fmt.Sprintf("router_%s.log", time.Now().Format("2006-01-02"))))
	}
	if len(outputs) == 0 {
		outputs = []string{os.DevNull}
	}
	cfg.OutputPaths = outputs

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("obslog: failed to build logger: %w", err)
	}

	return &Logger{zap: zapLogger, requestID: requestID, startTime: time.Now()}, nil
}

// StageStarted logs the beginning of a pipeline stage.
func (l *Logger) StageStarted(stage string) {
	l.zap.Info("stage started", zap.String("request_id", l.requestID), zap.String("stage", stage))
}

// StageCompleted logs a successful stage, recording it in the request's
// step history.
func (l *Logger) StageCompleted(stage string, duration time.Duration) {
	l.zap.Info("stage completed",
		zap.String("request_id", l.requestID), zap.String("stage", stage), zap.Duration("duration", duration))
	l.record(Step{Stage: stage, Status: StatusCompleted, StartTime: time.Now().Add(-duration), Duration: duration})
}

// StageFailed logs a failed stage (fatal or not — the caller decides
// whether the pipeline aborts).
func (l *Logger) StageFailed(stage string, duration time.Duration, err error) {
	l.zap.Error("stage failed",
		zap.String("request_id", l.requestID), zap.String("stage", stage),
		zap.Duration("duration", duration), zap.Error(err))
	l.record(Step{Stage: stage, Status: StatusFailed, StartTime: time.Now().Add(-duration), Duration: duration, Error: err.Error()})
}

// StageSkipped logs a stage short-circuited by the orchestrator.
func (l *Logger) StageSkipped(stage string) {
	l.zap.Info("stage skipped", zap.String("request_id", l.requestID), zap.String("stage", stage))
	l.record(Step{Stage: stage, Status: StatusSkipped, StartTime: time.Now()})
}

func (l *Logger) record(step Step) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, step)
}

// Steps returns every stage recorded so far, in execution order.
func (l *Logger) Steps() []Step {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Step, len(l.steps))
	copy(out, l.steps)
	return out
}

// Sync flushes any buffered log output.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}
