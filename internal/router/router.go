// Package router implements the inbound router API: route,
// route_batch, classify, feedback, and the admin surface (prune_cache,
// analytics, cache_stats). It wires together the classifier, routing
// cache, agent selector, decision log, and feedback integrator; it
// deliberately does not invoke the nine-stage pipeline orchestrator.
// Route answers "which backend should handle this", not "generate the
// answer".
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arohandas/introute/internal/batch"
	"github.com/arohandas/introute/internal/cache"
	"github.com/arohandas/introute/internal/classifier"
	"github.com/arohandas/introute/internal/decisionlog"
	"github.com/arohandas/introute/internal/embed"
	"github.com/arohandas/introute/internal/feedback"
	"github.com/arohandas/introute/internal/llmrouter"
	"github.com/arohandas/introute/internal/selector"
	"github.com/arohandas/introute/models"
)

// Options controls one Route call.
type Options struct {
	UserID           string
	SessionID        string
	ForceBackend     models.Backend
	IncludeReasoning bool
	UseLLMClassifier bool
}

// ClassifyResult is the classify() operation's output: the
// classification itself plus the backend the deterministic table
// would pick for it, without touching the cache or decision log.
type ClassifyResult struct {
	Category         models.Category
	Features         []models.Feature
	Complexity       models.Complexity
	SuggestedBackend models.Backend
}

// Router wires the classifier, two-tier cache, agent selector,
// decision log, and feedback integrator into the inbound API.
type Router struct {
	classifier    *classifier.Classifier
	classifierLLM llmrouter.ClassifierLLM
	embedder      embed.Embedder
	cache         *cache.RoutingCache
	selector      *selector.Selector
	decisions     *decisionlog.Log
	integrator    *feedback.Integrator
	batch         *batch.Dispatcher
	useSemantic   bool
}

// New builds a Router from its collaborators. embedder and
// classifierLLM may be nil; Route then skips the similarity tier and
// the LLM-assisted classification variant respectively.
func New(
	c *classifier.Classifier,
	classifierLLM llmrouter.ClassifierLLM,
	embedder embed.Embedder,
	routingCache *cache.RoutingCache,
	sel *selector.Selector,
	decisions *decisionlog.Log,
	integrator *feedback.Integrator,
	useSemanticCache bool,
	batchMaxConcurrency int,
) *Router {
	r := &Router{
		classifier:    c,
		classifierLLM: classifierLLM,
		embedder:      embedder,
		cache:         routingCache,
		selector:      sel,
		decisions:     decisions,
		integrator:    integrator,
		useSemantic:   useSemanticCache,
	}
	r.batch = batch.New(r, batchMaxConcurrency)
	return r
}

// Route classifies query, consults the two-tier cache, and, on a
// miss, applies the deterministic backend mapping, writing the fresh
// decision back to the cache and decision log. It satisfies
// batch.Router so the dispatcher can fan out over it directly.
func (r *Router) Route(ctx context.Context, query string) (models.RoutingDecision, bool, error) {
	return r.RouteWithOptions(ctx, query, Options{})
}

// RouteWithOptions is Route with full control over force_backend and
// the classification path. A forced backend skips classification, the
// cache, and the LLM path entirely: the decision still gets a
// request ID and is still logged, but it is never cached.
func (r *Router) RouteWithOptions(ctx context.Context, query string, opts Options) (models.RoutingDecision, bool, error) {
	// Input errors surface immediately, before any classification or
	// decision-log write.
	if strings.TrimSpace(query) == "" {
		return models.RoutingDecision{}, false, fmt.Errorf("router: query is empty")
	}
	if opts.ForceBackend != "" && !opts.ForceBackend.Valid() {
		return models.RoutingDecision{}, false, fmt.Errorf("router: unknown backend %q", opts.ForceBackend)
	}

	start := time.Now()
	requestID := uuid.New().String()

	if opts.ForceBackend != "" {
		decision := models.RoutingDecision{
			RequestID:      requestID,
			Query:          query,
			Backend:        opts.ForceBackend,
			Classification: models.Classification{Confidence: 1.0},
			Reason:         "backend forced by request",
			Forced:         true,
			CacheHit:       false,
			Timestamp:      start,
			ProcessingTime: time.Since(start),
		}
		r.logDecision(ctx, decision)
		return decision, false, nil
	}

	fp := classifier.Fingerprint(query)
	if r.useSemantic && r.embedder != nil {
		if embedding, err := r.embedder.Embed(ctx, fp.NormalizedText); err == nil {
			fp = classifier.WithEmbedding(fp, embedding)
		}
	}

	if hit, ok := r.lookupCache(ctx, fp); ok {
		decision := decisionFromCacheHit(requestID, query, hit, start)
		r.logDecision(ctx, decision)
		return decision, true, nil
	}

	classification, backend, reason, suggestedTools, err := r.classify(ctx, query, opts)
	if err != nil {
		return models.RoutingDecision{}, false, fmt.Errorf("router: classification failed: %w", err)
	}

	// Store-unavailable is non-fatal: the decision is still valid even
	// if it couldn't be cached for next time.
	if saveErr := r.cache.Save(ctx, fp, classification, backend, reason, suggestedTools); saveErr != nil && opts.IncludeReasoning {
		reason += " (warning: routing cache unavailable, decision not cached)"
	}

	decision := models.RoutingDecision{
		RequestID:      requestID,
		Query:          query,
		Classification: classification,
		Backend:        backend,
		Reason:         reason,
		SuggestedTools: suggestedTools,
		Forced:         false,
		CacheHit:       false,
		Timestamp:      start,
		ProcessingTime: time.Since(start),
	}
	r.logDecision(ctx, decision)
	return decision, false, nil
}

// lookupCache tries the exact tier, then the similarity tier.
func (r *Router) lookupCache(ctx context.Context, fp models.Fingerprint) (models.CacheLookupResult, bool) {
	if result, err := r.cache.GetByHash(ctx, fp.ExactHash); err == nil && result.Hit {
		return result, true
	}
	if fp.HasEmbedding() {
		if result, err := r.cache.GetBySimilarity(ctx, fp.Embedding); err == nil && result.Hit {
			return result, true
		}
	}
	return models.CacheLookupResult{}, false
}

func decisionFromCacheHit(requestID, query string, hit models.CacheLookupResult, start time.Time) models.RoutingDecision {
	// The stored reasoning comes back verbatim so a hit answers
	// identically to the fresh classification that populated it.
	reason := hit.Entry.Reasoning
	if reason == "" {
		reason = "served from routing cache"
	}
	return models.RoutingDecision{
		RequestID:      requestID,
		Query:          query,
		Classification: hit.Entry.Classification,
		Backend:        hit.Entry.Backend,
		Reason:         reason,
		SuggestedTools: hit.Entry.SuggestedTools,
		Forced:         false,
		CacheHit:       true,
		CacheTier:      hit.Tier,
		Timestamp:      start,
		ProcessingTime: time.Since(start),
	}
}

// classify runs classification and returns the classification detail,
// the chosen backend, the reasoning behind it, and the suggested
// tools for the query. For the LLM-assisted variant, backend,
// confidence, reasoning, and suggested tools are the LLM's own report
// as selected — never recomputed from the deterministic table — while
// category/features/complexity still come from the rule-based
// classifier, matching classify_query_llm's split in the original
// routing service. The rule-based variant derives all of it, including
// suggested tools, from the same deterministic table.
func (r *Router) classify(ctx context.Context, query string, opts Options) (models.Classification, models.Backend, string, []string, error) {
	if opts.UseLLMClassifier && r.classifierLLM != nil {
		result, err := r.classifierLLM.Classify(ctx, query)
		if err != nil {
			return models.Classification{}, "", "", nil, err
		}
		classification := classifier.EstimateCostAndLatency(r.classifier.ClassifyRules(query), query)
		classification.Confidence = result.Confidence
		return classification, result.Backend, result.Reasoning, result.SuggestedTools, nil
	}

	classification := classifier.EstimateCostAndLatency(r.classifier.ClassifyRules(query), query)
	backend, confidence, reason := selector.BackendFor(classification.Category, classification.Features, classification.Complexity)
	classification.Confidence = confidence
	return classification, backend, reason, r.classifier.SuggestedTools(classification.Category), nil
}

// logDecision appends to the decision log; a store-unavailable error
// is swallowed: losing a log write must never fail the request.
func (r *Router) logDecision(ctx context.Context, decision models.RoutingDecision) {
	if r.decisions == nil {
		return
	}
	_ = r.decisions.Record(ctx, decision)
}

// Classify runs the classification and the deterministic backend
// mapping without consulting or writing the cache, and without
// logging a decision — the classify() operation is read-only.
func (r *Router) Classify(ctx context.Context, query string) ClassifyResult {
	classification := classifier.EstimateCostAndLatency(r.classifier.ClassifyRules(query), query)
	backend, _, _ := selector.BackendFor(classification.Category, classification.Features, classification.Complexity)
	return ClassifyResult{
		Category:         classification.Category,
		Features:         classification.Features.Slice(),
		Complexity:       classification.Complexity,
		SuggestedBackend: backend,
	}
}

// RouteBatch fans queries through Route with bounded concurrency,
// preserving input order.
func (r *Router) RouteBatch(ctx context.Context, queries []string) (batch.BatchResult, error) {
	return r.batch.Dispatch(ctx, queries)
}

// FeedbackResult is the Feedback API's response contract: ok is false
// whenever the submission named an unknown request_id, in which case
// the decision log's Amend is still a harmless no-op.
type FeedbackResult struct {
	OK      bool
	Message string
}

// Feedback submits an outcome for a previously routed request. ok is
// false for an unknown request_id; the underlying amend/outcome
// recording still proceeds (and is itself a no-op) so no separate
// early-return path is needed for that case.
func (r *Router) Feedback(ctx context.Context, fb models.Feedback) (FeedbackResult, error) {
	if r.integrator == nil {
		return FeedbackResult{OK: true, Message: "feedback accepted"}, nil
	}

	_, found, err := r.decisions.Get(ctx, fb.RequestID)
	if err != nil {
		return FeedbackResult{}, fmt.Errorf("router: looking up decision %s: %w", fb.RequestID, err)
	}
	if err := r.integrator.Submit(ctx, fb); err != nil {
		return FeedbackResult{}, err
	}
	if !found {
		return FeedbackResult{OK: false, Message: fmt.Sprintf("no decision found for request_id %q", fb.RequestID)}, nil
	}
	return FeedbackResult{OK: true, Message: "feedback accepted"}, nil
}

// PruneCache deletes cache entries, returning how many were removed.
// With expiredOnly it only removes expired entries; with
// expiredOnly=false it removes every entry.
func (r *Router) PruneCache(ctx context.Context, expiredOnly bool) (int64, error) {
	return r.cache.Prune(ctx, expiredOnly)
}

// Analytics aggregates decision-log entries within period.
func (r *Router) Analytics(ctx context.Context, period decisionlog.Period) (decisionlog.Report, error) {
	return r.decisions.Analytics(ctx, period)
}

// CacheStats reports the routing cache's current occupancy.
func (r *Router) CacheStats(ctx context.Context) (models.CacheStats, error) {
	return r.cache.Stats(ctx)
}

// SetEpsilon retunes the selector's exploration rate at runtime; the
// value must stay in [0, 1].
func (r *Router) SetEpsilon(epsilon float64) error {
	return r.selector.SetEpsilon(epsilon)
}

// AgentReport aggregates one agent's performance records across every
// task type it has been exercised against.
func (r *Router) AgentReport(ctx context.Context, agentID string) (models.PerformanceReport, error) {
	return r.selector.Report(ctx, agentID)
}
