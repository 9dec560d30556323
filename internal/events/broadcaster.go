// Package events delivers progress events to registered listeners.
// Delivery is fire-and-forget: a slow or panicking listener never blocks
// or fails the query that produced the event.
package events

import (
	"sync"
	"time"

	"conclave/internal/ports"
	"conclave/internal/shared/async"
	"conclave/internal/shared/logging"
)

// Broadcaster fans progress events out to listeners.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners []ports.EventListener
	logger    logging.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger logging.Logger) *Broadcaster {
	return &Broadcaster{logger: logging.OrNop(logger)}
}

// Subscribe registers a listener for all future events.
func (b *Broadcaster) Subscribe(listener ports.EventListener) {
	if listener == nil {
		return
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, listener)
	b.mu.Unlock()
}

// Publish delivers the event to every listener on its own goroutine.
func (b *Broadcaster) Publish(event ports.ProgressEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	listeners := make([]ports.EventListener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, listener := range listeners {
		listener := listener
		async.Go(b.logger, "event-listener", func() {
			listener.OnEvent(event)
		})
	}
}
