// Package classifier implements the deterministic, rule-based query
// classification stage of the routing core: feature detection,
// complexity scoring, and category assignment. The vocabulary it
// matches against is hot-reloadable from config/patterns.yaml so that
// pattern tuning doesn't require a redeploy.
package classifier

import (
	"sync"
	"time"

	"github.com/arohandas/introute/models"
)

// Classifier holds the current pattern set behind a mutex so that
// ClassifyRules and a concurrent pattern reload never race.
type Classifier struct {
	mu       sync.RWMutex
	patterns PatternSet
}

// New returns a Classifier seeded with the built-in default patterns.
func New() *Classifier {
	return &Classifier{patterns: DefaultPatterns()}
}

// NewFromFile returns a Classifier seeded from a patterns.yaml file,
// falling back to defaults if the file can't be read.
func NewFromFile(path string) *Classifier {
	c := New()
	if set, err := LoadPatternsFile(path); err == nil {
		c.SetPatterns(set)
	}
	return c
}

// SetPatterns atomically swaps the active pattern set. Safe to call
// from the pattern watcher's fsnotify goroutine while ClassifyRules
// runs concurrently on request goroutines.
func (c *Classifier) SetPatterns(set PatternSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = set
}

// Patterns returns the currently active pattern set.
func (c *Classifier) Patterns() PatternSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.patterns
}

// ClassifyRules runs the full deterministic pipeline: detect features,
// score complexity, assign a category. It never fails and never calls
// out to a collaborator, so it carries no context.Context or error
// return — it's pure computation over the current pattern set.
func (c *Classifier) ClassifyRules(query string) models.Classification {
	patterns := c.Patterns()

	features := DetectFeatures(query, patterns)
	complexity := CalculateComplexity(query, features, patterns.QuestionWords)
	category := ClassifyCategory(query, features)

	return models.Classification{
		Category:   category,
		Features:   features,
		Complexity: complexity,
		Confidence: 1.0, // rule-based classification carries no uncertainty of its own
	}
}

// SuggestedTools returns the category's recommended tool list under
// the active pattern set.
func (c *Classifier) SuggestedTools(category models.Category) []string {
	return c.Patterns().ToolsFor(category)
}

// EstimateCostAndLatency attaches rough cost/latency hints to a
// classification for analytics: what processing this query downstream
// would likely cost and take, scaled by input length and complexity.
// The hints never influence a routing decision.
func EstimateCostAndLatency(c models.Classification, query string) models.Classification {
	inputTokens := len(query) / 4
	outputTokens := 500
	c.EstimatedCost = float64(inputTokens)/1000.0*0.01 + float64(outputTokens)/1000.0*0.03

	latency := 1 * time.Second
	switch c.Complexity {
	case models.ComplexityComplex:
		latency += 1 * time.Second
	case models.ComplexityModerate:
		latency += 500 * time.Millisecond
	}
	if c.Features.Has(models.FeatureExternalDataNeeded) {
		latency += 2 * time.Second
	}
	c.EstimatedLatency = latency
	return c
}
