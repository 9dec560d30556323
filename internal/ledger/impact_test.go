package ledger

import (
	"testing"

	"conclave/internal/ports"
)

func TestImpactBaseScores(t *testing.T) {
	cases := []struct {
		name  string
		entry ports.LedgerEntry
		want  float64
	}{
		{"human decision", ports.LedgerEntry{Type: ports.InteractionHumanInput}, 8},
		{"human approval", ports.LedgerEntry{Type: ports.InteractionHumanInput,
			Payload: map[string]any{"approval": true}}, 7},
		{"agent generation", ports.LedgerEntry{Type: ports.InteractionContribution}, 5},
		{"synthesis", ports.LedgerEntry{Type: ports.InteractionSynthesis}, 7},
		{"plain routing", ports.LedgerEntry{Type: ports.InteractionDecision}, 3},
	}
	for _, tc := range cases {
		if got := ImpactScore(tc.entry); got != tc.want {
			t.Fatalf("%s: expected %f, got %f", tc.name, tc.want, got)
		}
	}
}

func TestRoutingBonuses(t *testing.T) {
	moderate := ports.LedgerEntry{
		Type:    ports.InteractionDecision,
		Payload: map[string]any{"complexity": "moderate", "backends": []string{"a", "b"}},
	}
	// 3 base + 1 moderate + 2*0.5 backends = 5.
	if got := ImpactScore(moderate); got != 5 {
		t.Fatalf("expected 5, got %f", got)
	}

	complexFanout := ports.LedgerEntry{
		Type:    ports.InteractionDecision,
		Payload: map[string]any{"complexity": "complex", "backends": []any{"a", "b", "c", "d", "e"}},
	}
	// 3 base + 2 complex + 2.5 backends = 7.5.
	if got := ImpactScore(complexFanout); got != 7.5 {
		t.Fatalf("expected 7.5, got %f", got)
	}
}

func TestRoutingImpactIsCapped(t *testing.T) {
	entry := ports.LedgerEntry{
		Type: ports.InteractionDecision,
		Payload: map[string]any{
			"complexity": "complex",
			"backends":   float64(40),
		},
	}
	// Backend bonus caps at 3: 3 + 2 + 3 = 8, under the ceiling.
	if got := ImpactScore(entry); got != 8 {
		t.Fatalf("expected capped backend bonus to give 8, got %f", got)
	}
	if got := ImpactScore(entry); got > 10 {
		t.Fatalf("impact must never exceed 10, got %f", got)
	}
}
