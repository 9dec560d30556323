package router

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"conclave/internal/assembler"
	"conclave/internal/backend"
	"conclave/internal/corpus"
	"conclave/internal/dispatch"
	"conclave/internal/ledger"
	"conclave/internal/ports"
	"conclave/internal/relevance"
	sharederrors "conclave/internal/shared/errors"
	"conclave/internal/shared/logging"
	"conclave/internal/synthesis"
	"conclave/internal/triage"
)

func testRoster() triage.Roster {
	return triage.Roster{
		Local:    "muse-local",
		Realtime: "lookout",
		Cloud:    []string{"atlas", "vertex", "borealis"},
	}
}

type fixture struct {
	router *Router
	store  *ledger.MemoryStore
}

// newFixture wires a full router over mock backends. mutate lets a test
// break individual backends before the registry is sealed.
func newFixture(t *testing.T, mutate func(map[string]*backend.MockBackend)) *fixture {
	t.Helper()

	mocks := map[string]*backend.MockBackend{}
	for _, id := range []string{"muse-local", "lookout", "atlas", "vertex", "borealis"} {
		mocks[id] = backend.NewMockBackend(id, "answer from "+id)
	}
	if mutate != nil {
		mutate(mocks)
	}

	registry := backend.NewRegistry()
	for id, mock := range mocks {
		entry := backend.Entry{Backend: mock, TokenLimit: 8192, Timeout: time.Second}
		if id != "muse-local" {
			entry.CostPerCall = 0.015
		}
		if err := registry.Register(entry); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}

	store := ledger.NewMemoryStore()
	scorer := relevance.NewScorer(relevance.DefaultWeights())
	router := New(Deps{
		Classifier:  triage.New(nil, testRoster(), triage.DefaultThresholds(), logging.Nop()),
		Assembler:   assembler.New(corpus.NewMemoryCorpus(0), scorer, assembler.DefaultAllocation(), logging.Nop()),
		Dispatcher:  dispatch.New(registry, nil, logging.Nop()),
		Synthesizer: synthesis.New(nil, logging.Nop()),
		Recorder:    ledger.NewRecorder(store, logging.Nop()),
		Registry:    registry,
		Logger:      logging.Nop(),
		Metrics:     MustNewMetrics(prometheus.NewRegistry()),
	})
	return &fixture{router: router, store: store}
}

func TestSimpleQueryAnsweredByLocalBackendAlone(t *testing.T) {
	f := newFixture(t, nil)

	answer, err := f.router.Route(context.Background(), ports.Query{Text: "What is a channel?", Scope: "p"})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if answer.Strategy != ports.StrategyLocalOnly {
		t.Fatalf("expected local-only, got %s", answer.Strategy)
	}
	if answer.Answer != "answer from muse-local" {
		t.Fatalf("single response must pass through, got %q", answer.Answer)
	}
	if answer.Consensus != 1.0 {
		t.Fatalf("single backend is perfect consensus, got %f", answer.Consensus)
	}
	if answer.TotalCost != 0 {
		t.Fatalf("local-only routing must cost nothing, got %f", answer.TotalCost)
	}

	entries, err := f.store.List(context.Background(), "p", ports.LedgerFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// Routing decision plus one contribution; no synthesis entry for a
	// single backend.
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
	if entries[0].Type != ports.InteractionDecision {
		t.Fatalf("routing decision must be recorded first, got %s", entries[0].Type)
	}
	if entries[1].Type != ports.InteractionContribution || entries[1].Source != "muse-local" {
		t.Fatalf("contribution entry wrong: %+v", entries[1])
	}
}

func complexQueryText(t *testing.T) string {
	t.Helper()
	text := "Please refactor this service for horizontal scale. " +
		strings.Repeat("Session state currently lives in process memory and is lost on restart. ", 10)
	if len(text) <= 500 {
		t.Fatalf("query must exceed the complex threshold")
	}
	return text
}

func TestFanoutQueryRecordsCausalLedgerOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	answer, err := f.router.Route(ctx, ports.Query{Text: complexQueryText(t), Scope: "p"})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if answer.Strategy != ports.StrategyFullFanout {
		t.Fatalf("expected full-fanout, got %s", answer.Strategy)
	}
	if len(answer.BackendsUsed) < 4 {
		t.Fatalf("fanout should use >=4 backends, got %v", answer.BackendsUsed)
	}

	entries, err := f.store.List(ctx, "p", ports.LedgerFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if entries[0].Type != ports.InteractionDecision {
		t.Fatalf("routing entry must come first, got %s", entries[0].Type)
	}
	if entries[1].Type != ports.InteractionSynthesis {
		t.Fatalf("synthesis entry must follow the routing entry, got %s", entries[1].Type)
	}
	for _, entry := range entries[2:] {
		if entry.Type != ports.InteractionContribution {
			t.Fatalf("contribution entries must come last, got %s", entry.Type)
		}
	}
	if len(entries) != 2+len(answer.BackendsUsed) {
		t.Fatalf("expected one contribution per backend, got %d entries for %d backends",
			len(entries), len(answer.BackendsUsed))
	}
}

func TestTimedOutBackendIsExcludedFromAnswerAndLedger(t *testing.T) {
	f := newFixture(t, func(mocks map[string]*backend.MockBackend) {
		mocks["vertex"].Delay = 5 * time.Second
	})
	ctx := context.Background()

	answer, err := f.router.Route(ctx, ports.Query{Text: complexQueryText(t), Scope: "p"})
	if err != nil {
		t.Fatalf("partial failure must not fail the query: %v", err)
	}
	for _, used := range answer.BackendsUsed {
		if used == "vertex" {
			t.Fatalf("timed-out backend must not contribute")
		}
	}

	entries, err := f.store.List(ctx, "p", ports.LedgerFilter{Type: ports.InteractionDecision})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one routing entry, got %d", len(entries))
	}
	recorded, ok := entries[0].Payload["backends"].([]string)
	if !ok {
		t.Fatalf("routing payload must list successful backends, got %T", entries[0].Payload["backends"])
	}
	for _, name := range recorded {
		if name == "vertex" {
			t.Fatalf("routing entry must note only successful backends, got %v", recorded)
		}
	}
	if len(recorded) != len(answer.BackendsUsed) {
		t.Fatalf("ledger and answer disagree on backends: %v vs %v", recorded, answer.BackendsUsed)
	}
}

func TestTotalBackendFailureReturnsServiceUnavailable(t *testing.T) {
	f := newFixture(t, func(mocks map[string]*backend.MockBackend) {
		for _, mock := range mocks {
			mock.Err = errors.New("connection refused")
		}
	})
	ctx := context.Background()

	_, err := f.router.Route(ctx, ports.Query{Text: "What is a channel?", Scope: "p"})
	if err == nil {
		t.Fatalf("total failure must surface an error")
	}
	if !sharederrors.IsServiceUnavailable(err) {
		t.Fatalf("expected service-unavailable, got %v", err)
	}

	entries, listErr := f.store.List(ctx, "p", ports.LedgerFilter{})
	if listErr != nil {
		t.Fatalf("list: %v", listErr)
	}
	if len(entries) != 1 {
		t.Fatalf("only the failed routing entry may be written, got %d entries", len(entries))
	}
	if entries[0].Type != ports.InteractionDecision {
		t.Fatalf("expected a routing entry, got %s", entries[0].Type)
	}
	if failed, _ := entries[0].Payload["failed"].(bool); !failed {
		t.Fatalf("routing entry must be marked failed: %v", entries[0].Payload)
	}
}

func TestRoutedAnswerCarriesTriageAndTiming(t *testing.T) {
	f := newFixture(t, nil)

	answer, err := f.router.Route(context.Background(), ports.Query{Text: "What is a channel?", Scope: "p"})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if answer.Triage.Complexity != ports.ComplexitySimple {
		t.Fatalf("triage result must ride along, got %+v", answer.Triage)
	}
	if answer.ExecutionTime <= 0 {
		t.Fatalf("execution time must be measured")
	}
}

func TestCloudBackendsAccrueCost(t *testing.T) {
	f := newFixture(t, nil)

	answer, err := f.router.Route(context.Background(), ports.Query{Text: complexQueryText(t), Scope: "p"})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	// Every non-local contributor bills 0.015 per call.
	var wantCost float64
	for _, used := range answer.BackendsUsed {
		if used != "muse-local" {
			wantCost += 0.015
		}
	}
	if diff := answer.TotalCost - wantCost; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected cost %f, got %f", wantCost, answer.TotalCost)
	}
}

func TestGetStatsReflectsRecordedEntries(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.router.Route(ctx, ports.Query{Text: "What is a channel?", Scope: "p"}); err != nil {
		t.Fatalf("route: %v", err)
	}

	stats, err := f.router.GetStats(ctx, "p")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEntries != 2 {
		t.Fatalf("expected 2 entries, got %d", stats.TotalEntries)
	}
	if stats.CostSavings <= 0 {
		t.Fatalf("local routing should report savings against a fanout, got %f", stats.CostSavings)
	}
}

func TestCheckHealthCountsBackends(t *testing.T) {
	f := newFixture(t, nil)
	health := f.router.CheckHealth(context.Background())
	if health.RegisteredBackends != 5 {
		t.Fatalf("expected 5 backends, got %d", health.RegisteredBackends)
	}
	if health.ClassifierModel {
		t.Fatalf("no classification model is wired in this fixture")
	}
}
