package relevance

import (
	"testing"
	"time"

	"conclave/internal/ports"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func testScorer() *Scorer {
	return NewScorer(DefaultWeights(), WithClock(fixedClock))
}

func TestKeywordsFiltersStopwordsAndShortTokens(t *testing.T) {
	keywords := Keywords("What is the Raft consensus protocol, and how does it work?")
	want := map[string]bool{"raft": true, "consensus": true, "protocol": true, "work": true}
	if len(keywords) != len(want) {
		t.Fatalf("expected %d keywords, got %v", len(want), keywords)
	}
	for _, kw := range keywords {
		if !want[kw] {
			t.Fatalf("unexpected keyword %q in %v", kw, keywords)
		}
	}
}

func TestScoreIsNonNegative(t *testing.T) {
	item := ports.KnowledgeItem{ID: "doc-1", Title: "Unrelated", Body: "nothing in common"}
	score := testScorer().Score("quantum gravity loops", item)
	if score < 0 {
		t.Fatalf("score must be non-negative, got %f", score)
	}
}

func TestQuotedTitleEarnsExplicitMentionWeight(t *testing.T) {
	item := ports.KnowledgeItem{ID: "doc-raft", Title: "Raft Design Notes", Body: "leader election"}
	score := testScorer().Score(`summarize "Raft Design Notes" for me`, item)
	if score < DefaultWeights().ExplicitMention {
		t.Fatalf("quoted title should score >= %f, got %f", DefaultWeights().ExplicitMention, score)
	}
}

func TestFilePathMentionOutranksKeywordMatch(t *testing.T) {
	scorer := testScorer()
	code := ports.KnowledgeItem{
		ID:   "code-1",
		Path: "internal/server/handler.go",
		Body: "func ServeHTTP",
		Kind: ports.KnowledgeItemCode,
	}
	doc := ports.KnowledgeItem{
		ID:    "doc-1",
		Title: "handler overview",
		Body:  "the handler dispatches requests",
		Kind:  ports.KnowledgeItemDocument,
	}
	query := "why does internal/server/handler.go reject empty bodies?"
	if scorer.Score(query, code) <= scorer.Score(query, doc) {
		t.Fatalf("path mention should outrank keyword match: code=%f doc=%f",
			scorer.Score(query, code), scorer.Score(query, doc))
	}
}

func TestTagAndRecencyBonuses(t *testing.T) {
	scorer := testScorer()
	base := ports.KnowledgeItem{ID: "a", Title: "deploy runbook", Body: "steps"}
	tagged := base
	tagged.ID = "b"
	tagged.Tags = []string{"deploy"}
	recent := tagged
	recent.ID = "c"
	recent.LastAccessed = fixedClock().Add(-1 * time.Hour)

	query := "how do I deploy the service"
	scoreBase := scorer.Score(query, base)
	scoreTagged := scorer.Score(query, tagged)
	scoreRecent := scorer.Score(query, recent)

	if scoreTagged != scoreBase+DefaultWeights().TagMatch {
		t.Fatalf("tag bonus mismatch: base=%f tagged=%f", scoreBase, scoreTagged)
	}
	if scoreRecent != scoreTagged+DefaultWeights().RecentAccess {
		t.Fatalf("recency bonus mismatch: tagged=%f recent=%f", scoreTagged, scoreRecent)
	}
}

func TestStaleAccessEarnsNoRecencyBonus(t *testing.T) {
	scorer := testScorer()
	item := ports.KnowledgeItem{
		ID:           "old",
		Title:        "deploy notes",
		Body:         "deploy",
		LastAccessed: fixedClock().Add(-48 * time.Hour),
	}
	fresh := item
	fresh.LastAccessed = time.Time{}
	if scorer.Score("deploy", item) != scorer.Score("deploy", fresh) {
		t.Fatalf("48h-old access should not earn the recency bonus")
	}
}

func TestScoreAllDropsZeroScoresAndSortsStably(t *testing.T) {
	items := []ports.KnowledgeItem{
		{ID: "first", Title: "kafka basics", Body: "kafka topics"},
		{ID: "noise", Title: "unrelated", Body: "zzz"},
		{ID: "second", Title: "kafka streams", Body: "kafka streams"},
	}
	scored := testScorer().ScoreAll("explain kafka", items, func(ports.KnowledgeItem) int { return 10 })

	if len(scored) != 2 {
		t.Fatalf("expected zero-score item dropped, got %d items", len(scored))
	}
	// Equal scores keep corpus order.
	if scored[0].Item.ID != "first" || scored[1].Item.ID != "second" {
		t.Fatalf("tie-break should preserve corpus order, got %s, %s",
			scored[0].Item.ID, scored[1].Item.ID)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	scorer := testScorer()
	item := ports.KnowledgeItem{ID: "x", Title: "scheduler", Body: "cron scheduler details", Tags: []string{"cron"}}
	query := `tell me about the "scheduler" and cron`
	first := scorer.Score(query, item)
	for i := 0; i < 10; i++ {
		if got := scorer.Score(query, item); got != first {
			t.Fatalf("score changed across calls: %f vs %f", first, got)
		}
	}
}
