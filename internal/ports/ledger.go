package ports

import (
	"context"
	"time"
)

// InteractionType classifies a ledger entry.
type InteractionType string

const (
	InteractionDecision     InteractionType = "decision"
	InteractionContribution InteractionType = "contribution"
	InteractionSynthesis    InteractionType = "synthesis"
	InteractionHumanInput   InteractionType = "human-input"
)

// LedgerEntry is one immutable attribution record. ContentHash is the
// SHA-256 of the canonical serialization of Payload; recomputing it must
// always reproduce the stored value.
type LedgerEntry struct {
	ID          string          `json:"id"`
	Scope       string          `json:"scope"`
	Type        InteractionType `json:"type"`
	Source      string          `json:"source"`
	Target      string          `json:"target,omitempty"`
	Summary     string          `json:"summary"`
	Payload     map[string]any  `json:"payload"`
	ContentHash string          `json:"content_hash"`
	ImpactScore float64         `json:"impact_score"`
	Verified    bool            `json:"verified"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LedgerFilter narrows ledger reads. Zero values mean "no constraint".
type LedgerFilter struct {
	Type   InteractionType `json:"type,omitempty"`
	Source string          `json:"source,omitempty"`
	Since  time.Time       `json:"since,omitempty"`
	Until  time.Time       `json:"until,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// LedgerStats aggregates the entries of one scope.
type LedgerStats struct {
	TotalEntries  int                     `json:"total_entries"`
	CountsByType  map[InteractionType]int `json:"counts_by_type"`
	TotalImpact   float64                 `json:"total_impact"`
	AverageImpact float64                 `json:"average_impact"`
	CostSavings   float64                 `json:"cost_savings"`
}

// LedgerStore persists attribution entries. Implementations must be
// append-only: stored entries are never updated or removed by the core.
type LedgerStore interface {
	// Append stores the entry and returns its id.
	Append(ctx context.Context, entry LedgerEntry) (string, error)

	// Get reloads an entry by id.
	Get(ctx context.Context, id string) (*LedgerEntry, error)

	// List returns the entries of a scope matching the filter, in append
	// order.
	List(ctx context.Context, scope string, filter LedgerFilter) ([]LedgerEntry, error)
}
