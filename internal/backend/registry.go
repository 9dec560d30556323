// Package backend provides the agent backend registry and the concrete
// backend implementations (Ollama-served local models, OpenAI-compatible
// remote APIs, and a mock for tests).
//
// All backends share the ports.AgentBackend contract; routing code iterates
// the registry and never branches on a backend's concrete type.
package backend

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"conclave/internal/ports"
)

// Entry pairs a backend with its dispatch settings.
type Entry struct {
	Backend ports.AgentBackend
	// TokenLimit is the backend's context window, used to derive the
	// context budget for context assembly.
	TokenLimit int
	// Timeout bounds a single call to this backend.
	Timeout time.Duration
	// CostPerCall is the rough per-request cost in USD, used for the
	// ledger's cost accounting.
	CostPerCall float64
}

// Registry maps backend identifiers to their handles. It is populated at
// startup from configuration and read-only afterwards; the mutex only
// guards late test registration.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds a backend under its own identifier. Registering a nil
// backend or a duplicate identifier is an error.
func (r *Registry) Register(entry Entry) error {
	if entry.Backend == nil {
		return fmt.Errorf("nil backend")
	}
	id := entry.Backend.ID()
	if id == "" {
		return fmt.Errorf("backend has empty identifier")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("backend %q already registered", id)
	}
	r.entries[id] = entry
	return nil
}

// Lookup returns the entry for a backend identifier.
func (r *Registry) Lookup(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry, ok
}

// IDs returns all registered identifiers, sorted for stable iteration.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered backends.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
