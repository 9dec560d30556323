// Package ledger keeps the attribution trail. Every routing decision,
// backend contribution, synthesis, and human input is stored as an
// immutable entry whose SHA-256 content hash can be recomputed at any time
// to prove the payload has not been altered.
package ledger

import (
	"context"
	"fmt"
	"time"

	"conclave/internal/ports"
	sharederrors "conclave/internal/shared/errors"
	"conclave/internal/shared/logging"
	"conclave/internal/shared/utils/id"
)

// Recorder writes and verifies attribution entries through a LedgerStore.
type Recorder struct {
	store  ports.LedgerStore
	logger logging.Logger
	clock  func() time.Time
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(store ports.LedgerStore, logger logging.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logging.OrNop(logger),
		clock:  time.Now,
	}
}

// WithClock overrides the timestamp source.
func (r *Recorder) WithClock(clock func() time.Time) *Recorder {
	r.clock = clock
	return r
}

// Record hashes the payload, assigns the entry an id, timestamp, and
// impact score, and appends it. The caller's ID, ContentHash, ImpactScore,
// and CreatedAt fields are always overwritten; Verified starts false until
// an external anchoring step confirms the entry.
func (r *Recorder) Record(ctx context.Context, entry ports.LedgerEntry) (string, error) {
	if entry.Payload == nil {
		entry.Payload = map[string]any{}
	}
	hash, err := PayloadHash(entry.Payload)
	if err != nil {
		return "", err
	}

	entry.ID = id.NewEntryID()
	entry.ContentHash = hash
	entry.ImpactScore = ImpactScore(entry)
	entry.Verified = false
	entry.CreatedAt = r.clock()

	stored, err := r.store.Append(ctx, entry)
	if err != nil {
		return "", fmt.Errorf("append ledger entry: %w", err)
	}
	r.logger.Debug("ledger entry %s recorded: type=%s source=%s impact=%.1f hash=%s",
		stored, entry.Type, entry.Source, entry.ImpactScore, hash[:12])
	return stored, nil
}

// Verify reloads an entry and recomputes its content hash. A mismatch is
// returned as an IntegrityError; the stored record is never corrected.
func (r *Recorder) Verify(ctx context.Context, entryID string) error {
	entry, err := r.store.Get(ctx, entryID)
	if err != nil {
		return fmt.Errorf("load ledger entry %s: %w", entryID, err)
	}

	actual, err := PayloadHash(entry.Payload)
	if err != nil {
		return err
	}
	if actual != entry.ContentHash {
		r.logger.Warn("integrity violation on ledger entry %s: stored=%s actual=%s",
			entryID, entry.ContentHash, actual)
		return &sharederrors.IntegrityError{
			EntryID:    entryID,
			StoredHash: entry.ContentHash,
			ActualHash: actual,
		}
	}
	return nil
}

// GetAttributions lists a scope's entries matching the filter, in append
// order.
func (r *Recorder) GetAttributions(ctx context.Context, scope string, filter ports.LedgerFilter) ([]ports.LedgerEntry, error) {
	return r.store.List(ctx, scope, filter)
}

// Stats aggregates a scope's entries. Cost savings are summed from the
// payloads of entries that report them.
func (r *Recorder) Stats(ctx context.Context, scope string) (ports.LedgerStats, error) {
	entries, err := r.store.List(ctx, scope, ports.LedgerFilter{})
	if err != nil {
		return ports.LedgerStats{}, err
	}

	stats := ports.LedgerStats{CountsByType: make(map[ports.InteractionType]int)}
	for _, entry := range entries {
		stats.TotalEntries++
		stats.CountsByType[entry.Type]++
		stats.TotalImpact += entry.ImpactScore
		if savings, ok := entry.Payload["cost_savings"].(float64); ok {
			stats.CostSavings += savings
		}
	}
	if stats.TotalEntries > 0 {
		stats.AverageImpact = stats.TotalImpact / float64(stats.TotalEntries)
	}
	return stats, nil
}

// AnchorRecord is one ledger entry flattened for external anchoring, with
// a position assigned by append order.
type AnchorRecord struct {
	Position    int                   `json:"position"`
	Timestamp   time.Time             `json:"timestamp"`
	EntryID     string                `json:"entry_id"`
	Scope       string                `json:"scope"`
	Type        ports.InteractionType `json:"type"`
	Source      string                `json:"source"`
	ContentHash string                `json:"content_hash"`
}

// ExportForAnchoring returns a scope's full trail in a minimal shape
// suitable for writing to an external immutable store.
func (r *Recorder) ExportForAnchoring(ctx context.Context, scope string) ([]AnchorRecord, error) {
	entries, err := r.store.List(ctx, scope, ports.LedgerFilter{})
	if err != nil {
		return nil, err
	}

	records := make([]AnchorRecord, len(entries))
	for i, entry := range entries {
		records[i] = AnchorRecord{
			Position:    i + 1,
			Timestamp:   entry.CreatedAt,
			EntryID:     entry.ID,
			Scope:       entry.Scope,
			Type:        entry.Type,
			Source:      entry.Source,
			ContentHash: entry.ContentHash,
		}
	}
	return records, nil
}
