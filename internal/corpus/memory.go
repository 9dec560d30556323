// Package corpus provides CorpusAccessor implementations: an in-memory
// corpus for tests and embedding hosts, and a filesystem corpus reading a
// directory of text files.
package corpus

import (
	"context"
	"sort"
	"sync"

	"conclave/internal/ports"
)

// MemoryCorpus is an in-memory CorpusAccessor. Candidates are returned most
// recently accessed first, capped at MaxCandidates.
type MemoryCorpus struct {
	mu            sync.RWMutex
	items         map[string][]ports.KnowledgeItem // scope -> items
	maxCandidates int
}

// NewMemoryCorpus creates an empty in-memory corpus. maxCandidates bounds
// the candidate set per scope; <=0 means the default of 50.
func NewMemoryCorpus(maxCandidates int) *MemoryCorpus {
	if maxCandidates <= 0 {
		maxCandidates = defaultMaxCandidates
	}
	return &MemoryCorpus{
		items:         make(map[string][]ports.KnowledgeItem),
		maxCandidates: maxCandidates,
	}
}

const defaultMaxCandidates = 50

// Add stores an item under a scope.
func (c *MemoryCorpus) Add(scope string, item ports.KnowledgeItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[scope] = append(c.items[scope], item)
}

// Candidates returns up to maxCandidates items for the scope, most recently
// accessed first; items with equal timestamps keep insertion order.
func (c *MemoryCorpus) Candidates(_ context.Context, scope string) ([]ports.KnowledgeItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stored := c.items[scope]
	out := make([]ports.KnowledgeItem, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastAccessed.After(out[j].LastAccessed)
	})
	if len(out) > c.maxCandidates {
		out = out[:c.maxCandidates]
	}
	return out, nil
}
