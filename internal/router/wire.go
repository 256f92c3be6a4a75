package router

import (
	"context"
	"fmt"

	"github.com/arohandas/introute/config"
	"github.com/arohandas/introute/internal/cache"
	"github.com/arohandas/introute/internal/classifier"
	"github.com/arohandas/introute/internal/decisionlog"
	"github.com/arohandas/introute/internal/embed"
	"github.com/arohandas/introute/internal/feedback"
	"github.com/arohandas/introute/internal/llmrouter"
	"github.com/arohandas/introute/internal/selector"
	"github.com/arohandas/introute/storage"
)

// App wires a Router and its storage connection together for cmd's
// use, following internal/app/app.go's initializeX idiom: one struct
// of collaborators, one New that chains initializer calls, one Close.
type App struct {
	Router *Router

	db      *storage.DB
	watcher *classifier.PatternWatcher
}

// NewApp loads cfg's storage, classifier, cache, selector, decision
// log, and LLM/embedding collaborators into a ready-to-use Router.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}
	a.db = db

	c := classifier.NewFromFile(config.PatternsPath)
	if watcher, err := classifier.WatchPatternsFile(c, config.PatternsPath); err == nil {
		a.watcher = watcher
	}

	var classifierLLM llmrouter.ClassifierLLM
	var embedder embed.Embedder
	if cfg.AI.Classifier.APIKey != "" {
		classifierLLM = llmrouter.NewOpenAIClassifierLLM(
			cfg.AI.Classifier.APIKey, cfg.AI.Classifier.Model, cfg.AI.Classifier.MaxTokens, c)
	}
	if cfg.AI.Embedding.APIKey != "" {
		embedder = embed.NewOpenAIEmbedder(cfg.AI.Embedding.APIKey, cfg.AI.Embedding.Model)
	}

	cacheStore := storage.NewCacheStore(db)
	var cacheOpts []cache.Option
	if cfg.Vector.Host != "" {
		index, err := cache.NewQdrantSimilarityIndex(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection, cfg.Vector.Dimension)
		if err != nil {
			return nil, fmt.Errorf("qdrant similarity index init failed: %w", err)
		}
		cacheOpts = append(cacheOpts, cache.WithSimilarityIndex(index))
	}
	routingCache, err := cache.New(ctx, cacheStore, cfg.Cache.TTLDuration(), cfg.Cache.SimilarityThreshold, cfg.Cache.UseSemanticCache, cacheOpts...)
	if err != nil {
		return nil, fmt.Errorf("routing cache init failed: %w", err)
	}

	perfStore := storage.NewPerfStore(db)
	sel := selector.New(perfStore, cfg.Selector.Epsilon, cfg.Selector.MinExplorations, cfg.Selector.PreferLowCost)

	decisionStore := storage.NewDecisionLogStore(db)
	log := decisionlog.New(decisionStore)

	integrator := feedback.New(log, sel, feedback.NewMemoryCalibrationSink())

	a.Router = New(c, classifierLLM, embedder, routingCache, sel, log, integrator, cfg.Cache.UseSemanticCache, cfg.Batch.MaxConcurrency)
	return a, nil
}

// Close releases the underlying storage connection and pattern
// watcher. Safe to call on a partially-initialized App.
func (a *App) Close() error {
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
