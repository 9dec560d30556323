package corpus

import (
	"context"
	"testing"
	"time"

	"conclave/internal/ports"
)

func TestCandidatesAreMostRecentFirst(t *testing.T) {
	c := NewMemoryCorpus(0)
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	c.Add("p", ports.KnowledgeItem{ID: "old", LastAccessed: base.Add(-48 * time.Hour)})
	c.Add("p", ports.KnowledgeItem{ID: "new", LastAccessed: base})
	c.Add("p", ports.KnowledgeItem{ID: "mid", LastAccessed: base.Add(-1 * time.Hour)})

	items, err := c.Candidates(context.Background(), "p")
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if items[i].ID != id {
			t.Fatalf("expected %v, got %s at %d", want, items[i].ID, i)
		}
	}
}

func TestCandidateSetIsBounded(t *testing.T) {
	c := NewMemoryCorpus(2)
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		c.Add("p", ports.KnowledgeItem{ID: string(rune('a' + i)), LastAccessed: base.Add(time.Duration(i) * time.Minute)})
	}

	items, err := c.Candidates(context.Background(), "p")
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(items))
	}
	if items[0].ID != "e" || items[1].ID != "d" {
		t.Fatalf("bound must keep the most recent items, got %+v", items)
	}
}

func TestScopesAreIsolated(t *testing.T) {
	c := NewMemoryCorpus(0)
	c.Add("p", ports.KnowledgeItem{ID: "a"})

	items, err := c.Candidates(context.Background(), "other")
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("scopes must not leak, got %+v", items)
	}
}
