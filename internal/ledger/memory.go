package ledger

import (
	"context"
	"fmt"
	"sync"

	"conclave/internal/ports"
)

// MemoryStore is an in-process LedgerStore for tests and ephemeral runs.
// Entries are copied on the way in and out so callers cannot mutate stored
// state through retained references.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []ports.LedgerEntry
	byID    map[string]int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

// Append stores the entry and returns its id.
func (s *MemoryStore) Append(_ context.Context, entry ports.LedgerEntry) (string, error) {
	if entry.ID == "" {
		return "", fmt.Errorf("entry has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[entry.ID]; exists {
		return "", fmt.Errorf("entry %s already recorded", entry.ID)
	}
	s.byID[entry.ID] = len(s.entries)
	s.entries = append(s.entries, copyEntry(entry))
	return entry.ID, nil
}

// Get reloads an entry by id.
func (s *MemoryStore) Get(_ context.Context, id string) (*ports.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("entry %s not found", id)
	}
	entry := copyEntry(s.entries[idx])
	return &entry, nil
}

// List returns a scope's entries matching the filter, in append order.
func (s *MemoryStore) List(_ context.Context, scope string, filter ports.LedgerFilter) ([]ports.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ports.LedgerEntry
	for _, entry := range s.entries {
		if entry.Scope != scope || !matches(entry, filter) {
			continue
		}
		out = append(out, copyEntry(entry))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Tamper overwrites a stored entry's payload in place, bypassing the
// append-only contract. Test helper for integrity verification.
func (s *MemoryStore) Tamper(id string, payload map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return false
	}
	s.entries[idx].Payload = payload
	return true
}

func matches(entry ports.LedgerEntry, filter ports.LedgerFilter) bool {
	if filter.Type != "" && entry.Type != filter.Type {
		return false
	}
	if filter.Source != "" && entry.Source != filter.Source {
		return false
	}
	if !filter.Since.IsZero() && entry.CreatedAt.Before(filter.Since) {
		return false
	}
	if !filter.Until.IsZero() && entry.CreatedAt.After(filter.Until) {
		return false
	}
	return true
}

func copyEntry(entry ports.LedgerEntry) ports.LedgerEntry {
	if entry.Payload != nil {
		payload := make(map[string]any, len(entry.Payload))
		for k, v := range entry.Payload {
			payload[k] = v
		}
		entry.Payload = payload
	}
	return entry
}
