// Package router sequences a query through triage, context assembly,
// concurrent dispatch, synthesis, and attribution recording, and returns
// the final answer.
//
// Each query traverses a fixed state machine (see state.go); the dispatch
// stage is the only point of parallelism. Failures are translated into the
// error taxonomy of internal/shared/errors before they reach the caller:
// degraded triage or context assembly never fails a query, and only total
// backend failure is fatal.
package router

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"conclave/internal/assembler"
	"conclave/internal/backend"
	"conclave/internal/dispatch"
	"conclave/internal/ledger"
	"conclave/internal/ports"
	sharederrors "conclave/internal/shared/errors"
	"conclave/internal/shared/logging"
	"conclave/internal/shared/utils/id"
	"conclave/internal/synthesis"
	"conclave/internal/triage"
)

const (
	// defaultTokenLimit is assumed for backends whose registry entry does
	// not declare a context window.
	defaultTokenLimit = 8192

	// fanoutReferenceCost is the estimated cost of a full fanout, used to
	// report how much a cheaper routing decision saved.
	fanoutReferenceCost = 0.06

	tracerName = "conclave/router"
)

// Deps are the router's collaborators, constructed once at process start
// and injected explicitly.
type Deps struct {
	Classifier  *triage.Classifier
	Assembler   *assembler.Assembler
	Dispatcher  *dispatch.Dispatcher
	Synthesizer *synthesis.Synthesizer
	Recorder    *ledger.Recorder
	Registry    *backend.Registry
	Logger      logging.Logger
	Metrics     *Metrics
}

// Router is the orchestration entry point.
type Router struct {
	classifier  *triage.Classifier
	assembler   *assembler.Assembler
	dispatcher  *dispatch.Dispatcher
	synthesizer *synthesis.Synthesizer
	recorder    *ledger.Recorder
	registry    *backend.Registry
	logger      logging.Logger
	metrics     *Metrics
	tracer      trace.Tracer
}

// New creates a Router from its dependencies. A nil Metrics falls back to
// the shared default collectors.
func New(deps Deps) *Router {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = defaultMetrics()
	}
	return &Router{
		classifier:  deps.Classifier,
		assembler:   deps.Assembler,
		dispatcher:  deps.Dispatcher,
		synthesizer: deps.Synthesizer,
		recorder:    deps.Recorder,
		registry:    deps.Registry,
		logger:      logging.OrNop(deps.Logger),
		metrics:     metrics,
		tracer:      otel.Tracer(tracerName),
	}
}

// Route answers one query. On total backend failure it returns a
// ServiceUnavailableError after recording the failed routing decision;
// every other internal failure degrades instead of propagating.
func (r *Router) Route(ctx context.Context, query ports.Query) (*ports.RoutedAnswer, error) {
	started := time.Now()
	queryID := id.NewQueryID()
	sm := newMachine()

	r.metrics.IncActiveQueries()
	defer r.metrics.DecActiveQueries()

	ctx, span := r.tracer.Start(ctx, "router.route",
		trace.WithAttributes(attribute.String("query.id", queryID)))
	defer span.End()

	r.logger.Info("query %s received (%d chars, scope=%s)", queryID, len(query.Text), query.Scope)

	// Triage.
	triageResult := r.runTriage(ctx, query)
	r.transition(sm, StateTriaged)
	span.SetAttributes(
		attribute.String("triage.strategy", string(triageResult.Strategy)),
		attribute.String("triage.complexity", string(triageResult.Complexity)),
	)

	// Context assembly, best-effort.
	bundle, contextBlock := r.runAssembly(ctx, query, triageResult)
	r.transition(sm, StateContextAssembled)

	// Concurrent dispatch.
	responses := r.runDispatch(ctx, queryID, query, contextBlock, triageResult.RecommendedBackends)
	r.transition(sm, StateDispatched)

	if len(responses) == 0 {
		r.transition(sm, StateFailed)
		r.metrics.IncStageFailure("dispatch", "all_backends_failed")
		r.recordFailedRouting(ctx, queryID, query, triageResult, bundle)
		r.logger.Error("query %s failed: no backend responded", queryID)
		return nil, &sharederrors.ServiceUnavailableError{
			QueryID:  queryID,
			Backends: triageResult.RecommendedBackends,
		}
	}

	// Synthesis.
	answer := r.runSynthesis(ctx, query, responses)
	r.transition(sm, StateSynthesized)

	// Attribution: routing entry, then synthesis, then contributions.
	totalCost := r.costOf(responses)
	r.runRecording(ctx, queryID, query, triageResult, bundle, responses, answer, totalCost)
	r.transition(sm, StateRecorded)

	r.transition(sm, StateDone)
	elapsed := time.Since(started)
	r.logger.Info("query %s done in %v: strategy=%s backends=%d consensus=%.2f",
		queryID, elapsed, triageResult.Strategy, len(responses), answer.ConsensusScore)

	return &ports.RoutedAnswer{
		Answer:        answer.Text,
		KeyInsights:   answer.KeyInsights,
		Strategy:      triageResult.Strategy,
		BackendsUsed:  answer.ContributingBackends,
		Consensus:     answer.ConsensusScore,
		ExecutionTime: elapsed,
		TotalCost:     totalCost,
		Triage:        triageResult,
	}, nil
}

// GetAttributions lists a scope's ledger entries.
func (r *Router) GetAttributions(ctx context.Context, scope string, filter ports.LedgerFilter) ([]ports.LedgerEntry, error) {
	return r.recorder.GetAttributions(ctx, scope, filter)
}

// GetStats aggregates a scope's ledger entries.
func (r *Router) GetStats(ctx context.Context, scope string) (ports.LedgerStats, error) {
	return r.recorder.Stats(ctx, scope)
}

// VerifyEntry recomputes a ledger entry's content hash.
func (r *Router) VerifyEntry(ctx context.Context, entryID string) error {
	return r.recorder.Verify(ctx, entryID)
}

// ExportForAnchoring returns a scope's attribution trail for an external
// immutable store.
func (r *Router) ExportForAnchoring(ctx context.Context, scope string) ([]ledger.AnchorRecord, error) {
	return r.recorder.ExportForAnchoring(ctx, scope)
}

// Health reports the router's ability to serve queries.
type Health struct {
	ClassifierModel    bool `json:"classifier_model"`
	RegisteredBackends int  `json:"registered_backends"`
}

// CheckHealth probes the classification model and counts backends.
func (r *Router) CheckHealth(ctx context.Context) Health {
	return Health{
		ClassifierModel:    r.classifier.ModelAvailable(ctx),
		RegisteredBackends: r.registry.Len(),
	}
}

func (r *Router) runTriage(ctx context.Context, query ports.Query) ports.TriageResult {
	ctx, finish := r.stage(ctx, "triage")
	result := r.classifier.Classify(ctx, query)
	finish("ok")
	return result
}

func (r *Router) runAssembly(ctx context.Context, query ports.Query, triageResult ports.TriageResult) (ports.ContextBundle, string) {
	ctx, finish := r.stage(ctx, "assemble")
	bundle := r.assembler.Assemble(ctx, query, r.tokenLimitFor(triageResult.RecommendedBackends))
	finish("ok")

	if len(bundle.Items) == 0 {
		return bundle, ""
	}
	return bundle, assembler.FormatForPrompt(bundle)
}

func (r *Router) runDispatch(ctx context.Context, queryID string, query ports.Query, contextBlock string, backendIDs []string) []ports.AgentResponse {
	ctx, finish := r.stage(ctx, "dispatch")
	responses := r.dispatcher.Dispatch(ctx, queryID, query, contextBlock, backendIDs)
	if len(responses) == 0 {
		finish("failed")
	} else if len(responses) < len(backendIDs) {
		finish("partial")
	} else {
		finish("ok")
	}
	return responses
}

func (r *Router) runSynthesis(ctx context.Context, query ports.Query, responses []ports.AgentResponse) ports.SynthesizedAnswer {
	ctx, finish := r.stage(ctx, "synthesize")
	answer := r.synthesizer.Synthesize(ctx, query.Text, responses)
	finish("ok")
	return answer
}

// runRecording writes the attribution trail in causal order: the routing
// decision first, then the synthesis (multi-backend only), then one
// contribution entry per backend response. Ledger write failures are
// logged but never fail the query; the answer already exists.
func (r *Router) runRecording(ctx context.Context, queryID string, query ports.Query, triageResult ports.TriageResult, bundle ports.ContextBundle, responses []ports.AgentResponse, answer ports.SynthesizedAnswer, totalCost float64) {
	ctx, finish := r.stage(ctx, "record")
	defer finish("ok")

	succeeded := make([]string, len(responses))
	for i, resp := range responses {
		succeeded[i] = resp.Backend
	}

	savings := fanoutReferenceCost - totalCost
	if savings < 0 {
		savings = 0
	}
	_, err := r.recorder.Record(ctx, ports.LedgerEntry{
		Scope:   query.Scope,
		Type:    ports.InteractionDecision,
		Source:  "router",
		Target:  queryID,
		Summary: "routing decision: " + string(triageResult.Strategy),
		Payload: map[string]any{
			"strategy":       string(triageResult.Strategy),
			"complexity":     string(triageResult.Complexity),
			"backends":       succeeded,
			"recommended":    triageResult.RecommendedBackends,
			"confidence":     triageResult.Confidence,
			"reasoning":      triageResult.Reasoning,
			"context_tokens": float64(bundle.TokensUsed),
			"cost_savings":   savings,
		},
	})
	if err != nil {
		r.logger.Error("recording routing decision for %s failed: %v", queryID, err)
	}

	if len(responses) >= 2 {
		_, err := r.recorder.Record(ctx, ports.LedgerEntry{
			Scope:   query.Scope,
			Type:    ports.InteractionSynthesis,
			Source:  "synthesizer",
			Target:  queryID,
			Summary: "synthesized answer",
			Payload: map[string]any{
				"answer":       answer.Text,
				"consensus":    answer.ConsensusScore,
				"contributing": answer.ContributingBackends,
				"insights":     answer.KeyInsights,
			},
		})
		if err != nil {
			r.logger.Error("recording synthesis for %s failed: %v", queryID, err)
		}
	}

	for _, resp := range responses {
		_, err := r.recorder.Record(ctx, ports.LedgerEntry{
			Scope:   query.Scope,
			Type:    ports.InteractionContribution,
			Source:  resp.Backend,
			Target:  queryID,
			Summary: "backend response",
			Payload: map[string]any{
				"content":    resp.Content,
				"tokens":     float64(resp.Usage.TotalTokens),
				"confidence": resp.Confidence,
			},
		})
		if err != nil {
			r.logger.Error("recording contribution of %s for %s failed: %v", resp.Backend, queryID, err)
		}
	}
}

// recordFailedRouting writes the routing decision for a query no backend
// could answer, marked failed. No synthesis or contribution entries follow.
func (r *Router) recordFailedRouting(ctx context.Context, queryID string, query ports.Query, triageResult ports.TriageResult, bundle ports.ContextBundle) {
	_, err := r.recorder.Record(ctx, ports.LedgerEntry{
		Scope:   query.Scope,
		Type:    ports.InteractionDecision,
		Source:  "router",
		Target:  queryID,
		Summary: "routing decision: " + string(triageResult.Strategy) + " (failed)",
		Payload: map[string]any{
			"strategy":       string(triageResult.Strategy),
			"complexity":     string(triageResult.Complexity),
			"backends":       []string{},
			"recommended":    triageResult.RecommendedBackends,
			"confidence":     triageResult.Confidence,
			"reasoning":      triageResult.Reasoning,
			"context_tokens": float64(bundle.TokensUsed),
			"failed":         true,
		},
	})
	if err != nil {
		r.logger.Error("recording failed routing for %s failed: %v", queryID, err)
	}
}

// stage opens a span and returns a finish callback that closes it and
// observes the stage duration.
func (r *Router) stage(ctx context.Context, name string) (context.Context, func(status string)) {
	ctx, span := r.tracer.Start(ctx, "router."+name)
	started := time.Now()
	return ctx, func(status string) {
		span.SetAttributes(attribute.String("status", status))
		span.End()
		r.metrics.ObserveStage(name, status, time.Since(started))
	}
}

// transition advances the query's state machine. An illegal transition is
// a programming error and only logged; it never fails a live query.
func (r *Router) transition(sm *machine, next State) {
	if err := sm.advance(next); err != nil {
		r.logger.Error("router state machine: %v", err)
	}
}

// tokenLimitFor returns the smallest context window among the selected
// backends so the assembled context fits all of them.
func (r *Router) tokenLimitFor(backendIDs []string) int {
	limit := 0
	for _, backendID := range backendIDs {
		entry, ok := r.registry.Lookup(backendID)
		if !ok || entry.TokenLimit <= 0 {
			continue
		}
		if limit == 0 || entry.TokenLimit < limit {
			limit = entry.TokenLimit
		}
	}
	if limit == 0 {
		return defaultTokenLimit
	}
	return limit
}

func (r *Router) costOf(responses []ports.AgentResponse) float64 {
	var total float64
	for _, resp := range responses {
		if entry, ok := r.registry.Lookup(resp.Backend); ok {
			total += entry.CostPerCall
		}
	}
	return total
}
