// Package selector implements the deterministic category-to-backend
// routing table and the epsilon-greedy multi-armed bandit that picks a
// specific agent/worker within whichever backend the table named.
package selector

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/arohandas/introute/models"
)

// PerfStore persists AgentPerformance records across process restarts.
// The in-process selector still keeps its own cache on top so that a
// burst of concurrent selections doesn't hammer the store.
type PerfStore interface {
	Load(ctx context.Context, agentID string, task models.TaskType) (models.AgentPerformance, error)
	Save(ctx context.Context, perf models.AgentPerformance) error
	All(ctx context.Context, agentID string) ([]models.AgentPerformance, error)
}

// Selector is the epsilon-greedy bandit over the agent registry.
type Selector struct {
	mu              sync.Mutex
	epsilon         float64
	minExplorations int
	preferLowCost   bool
	store           PerfStore
	cache           map[string]models.AgentPerformance
	rng             *rand.Rand
}

// New builds a Selector. epsilon and minExplorations follow the
// defaults from config (0.1 and 5) unless the caller overrides them.
func New(store PerfStore, epsilon float64, minExplorations int, preferLowCost bool) *Selector {
	return &Selector{
		epsilon:         epsilon,
		minExplorations: minExplorations,
		preferLowCost:   preferLowCost,
		store:           store,
		cache:           make(map[string]models.AgentPerformance),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func cacheKey(agentID string, task models.TaskType) string {
	return agentID + ":" + string(task)
}

func (s *Selector) performance(ctx context.Context, agentID string, task models.TaskType) models.AgentPerformance {
	key := cacheKey(agentID, task)

	s.mu.Lock()
	if perf, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return perf
	}
	s.mu.Unlock()

	perf, err := s.store.Load(ctx, agentID, task)
	if err != nil {
		perf = models.AgentPerformance{AgentID: agentID, TaskType: task}
	}

	s.mu.Lock()
	s.cache[key] = perf
	s.mu.Unlock()
	return perf
}

// Select runs the epsilon-greedy pick among agents eligible for task,
// excluding any in exclude. Returns an error only when no eligible
// agent exists.
func (s *Selector) Select(ctx context.Context, task models.TaskType, exclude []string) (models.SelectionResult, error) {
	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	var eligible []string
	for _, id := range EligibleAgents(task) {
		if _, skip := excluded[id]; !skip {
			eligible = append(eligible, id)
		}
	}
	if len(eligible) == 0 {
		return models.SelectionResult{}, fmt.Errorf("selector: no agents eligible for task %q", task)
	}
	sort.Strings(eligible)

	performances := make(map[string]models.AgentPerformance, len(eligible))
	for _, id := range eligible {
		performances[id] = s.performance(ctx, id, task)
	}

	s.mu.Lock()
	explorationMode := s.rng.Float64() < s.epsilon
	s.mu.Unlock()

	var underexplored []string
	for _, id := range eligible {
		if performances[id].TotalExecutions < int64(s.minExplorations) {
			underexplored = append(underexplored, id)
		}
	}

	var selected string
	var reasoning string

	if explorationMode && len(underexplored) > 0 {
		s.mu.Lock()
		selected = underexplored[s.rng.Intn(len(underexplored))]
		s.mu.Unlock()
		reasoning = fmt.Sprintf(
			"exploration mode: testing underexplored agent (%d prior executions)",
			performances[selected].TotalExecutions,
		)
	} else {
		type scored struct {
			id    string
			score float64
		}
		scores := make([]scored, 0, len(eligible))
		for _, id := range eligible {
			score := performances[id].CompositeScore()
			if s.preferLowCost && Capabilities[id].CostTier == models.CostLow {
				score *= 1.2
			}
			scores = append(scores, scored{id, score})
		}
		sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

		selected = scores[0].id
		perf := performances[selected]
		reasoning = fmt.Sprintf(
			"highest composite score (%.3f): %.1f%% success rate, %.2f avg quality, %d executions",
			scores[0].score, perf.SuccessRate()*100, perf.AverageQualityScore, perf.TotalExecutions,
		)
		if perf.TotalExecutions < int64(s.minExplorations) {
			reasoning += " (limited data)"
		}
	}

	var alternatives []string
	for _, id := range eligible {
		if id == selected {
			continue
		}
		alternatives = append(alternatives, id)
		if len(alternatives) == 3 {
			break
		}
	}

	perf := performances[selected]
	var confidence float64
	switch {
	case perf.TotalExecutions >= int64(s.minExplorations)*2:
		confidence = 0.9
	case perf.TotalExecutions >= int64(s.minExplorations):
		confidence = 0.7
	default:
		confidence = 0.5
	}
	if explorationMode {
		confidence *= 0.8
	}

	return models.SelectionResult{
		AgentID:      selected,
		Confidence:   confidence,
		Reasoning:    reasoning,
		Alternatives: alternatives,
		Explored:     explorationMode,
	}, nil
}

// RecordOutcome folds an observed outcome into the agent's running
// performance record using an EWMA (alpha 0.3) for latency and quality,
// then persists the updated record.
func (s *Selector) RecordOutcome(ctx context.Context, outcome models.OutcomeRecord) error {
	const alpha = 0.3
	key := cacheKey(outcome.AgentID, outcome.TaskType)

	s.mu.Lock()
	perf, ok := s.cache[key]
	s.mu.Unlock()
	if !ok {
		perf = s.performance(ctx, outcome.AgentID, outcome.TaskType)
	}

	n := perf.TotalExecutions
	perf.TotalExecutions++
	if outcome.Success {
		perf.SuccessfulExecutions++
	}

	if n > 0 {
		perf.AverageLatencyMS = alpha*outcome.LatencyMS + (1-alpha)*perf.AverageLatencyMS
		perf.AverageQualityScore = alpha*outcome.Quality + (1-alpha)*perf.AverageQualityScore
	} else {
		perf.AverageLatencyMS = outcome.LatencyMS
		perf.AverageQualityScore = outcome.Quality
	}
	perf.LastExecution = outcome.Timestamp
	perf.AgentID = outcome.AgentID
	perf.TaskType = outcome.TaskType

	s.mu.Lock()
	s.cache[key] = perf
	s.mu.Unlock()

	return s.store.Save(ctx, perf)
}

// SetEpsilon updates the exploration rate; it must stay in [0, 1].
func (s *Selector) SetEpsilon(epsilon float64) error {
	if epsilon < 0 || epsilon > 1 {
		return fmt.Errorf("selector: epsilon must be between 0 and 1, got %v", epsilon)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epsilon = epsilon
	return nil
}

// Epsilon returns the current exploration rate.
func (s *Selector) Epsilon() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epsilon
}

// ListWorkers returns every agent capable of task, primary matches
// first, then alphabetically by name. Read-only introspection for the
// analytics surface.
func ListWorkers(task models.TaskType) []models.AgentCapability {
	var result []models.AgentCapability
	for _, id := range EligibleAgents(task) {
		result = append(result, Capabilities[id])
	}
	sort.SliceStable(result, func(i, j int) bool {
		iPrimary, jPrimary := result[i].IsPrimary(task), result[j].IsPrimary(task)
		if iPrimary != jPrimary {
			return iPrimary
		}
		return result[i].AgentName < result[j].AgentName
	})
	return result
}

// Report builds a PerformanceReport for a single agent across every
// task type it has been exercised against.
func (s *Selector) Report(ctx context.Context, agentID string) (models.PerformanceReport, error) {
	records, err := s.store.All(ctx, agentID)
	if err != nil {
		return models.PerformanceReport{}, err
	}

	report := models.PerformanceReport{
		AgentID: agentID,
		ByTask:  make(map[models.TaskType]models.AgentPerformance, len(records)),
	}

	var totalExec, totalSuccess int64
	for _, rec := range records {
		if rec.TotalExecutions == 0 {
			continue
		}
		report.ByTask[rec.TaskType] = rec
		totalExec += rec.TotalExecutions
		totalSuccess += rec.SuccessfulExecutions
	}
	report.TotalExecutions = totalExec
	if totalExec > 0 {
		report.OverallSuccessRate = float64(totalSuccess) / float64(totalExec)
	}
	return report, nil
}
