// Package dispatch fans a query out to the selected backends concurrently.
//
// One goroutine runs per backend with its own timeout; a failing or
// timed-out call is logged and excluded from the result set without
// aborting its siblings. The dispatcher returns whatever succeeded; total
// failure is the caller's condition to surface.
package dispatch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"conclave/internal/backend"
	"conclave/internal/events"
	"conclave/internal/ports"
	"conclave/internal/shared/logging"
)

// defaultTimeout bounds a backend call when its registry entry does not
// set one.
const defaultTimeout = 60 * time.Second

// backendConfidence is the flat confidence attached to successful backend
// responses; backends do not self-report confidence.
const backendConfidence = 0.85

// Dispatcher runs concurrent backend calls.
type Dispatcher struct {
	registry    *backend.Registry
	broadcaster *events.Broadcaster
	logger      logging.Logger
}

// New creates a Dispatcher over the given registry.
func New(registry *backend.Registry, broadcaster *events.Broadcaster, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		broadcaster: broadcaster,
		logger:      logging.OrNop(logger),
	}
}

// Dispatch calls every named backend concurrently and returns the
// responses that succeeded, in the order the identifiers were given.
// Unknown identifiers are logged and skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, queryID string, query ports.Query, contextBlock string, backendIDs []string) []ports.AgentResponse {
	results := make([]*ports.AgentResponse, len(backendIDs))

	var g errgroup.Group
	for i, id := range backendIDs {
		entry, ok := d.registry.Lookup(id)
		if !ok {
			d.logger.Warn("unknown backend %q requested, skipping", id)
			continue
		}

		i, id, entry := i, id, entry
		g.Go(func() error {
			results[i] = d.callBackend(ctx, queryID, query, contextBlock, id, entry)
			// Failures are absorbed: siblings must keep running.
			return nil
		})
	}
	_ = g.Wait()

	responses := make([]ports.AgentResponse, 0, len(backendIDs))
	for _, r := range results {
		if r != nil {
			responses = append(responses, *r)
		}
	}
	return responses
}

// callBackend runs one backend call under its own timeout and reports
// progress events around it. Returns nil on failure.
func (d *Dispatcher) callBackend(ctx context.Context, queryID string, query ports.Query, contextBlock string, id string, entry backend.Entry) *ports.AgentResponse {
	timeout := entry.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d.publish(ports.ProgressBackendStarted, queryID, id, "")
	started := time.Now()

	resp, err := entry.Backend.Complete(callCtx, ports.CompletionRequest{
		Query:        query.Text,
		History:      query.History,
		ContextBlock: contextBlock,
	})
	if err != nil {
		d.logger.Warn("backend %s failed after %v: %v", id, time.Since(started), err)
		d.publish(ports.ProgressBackendFailed, queryID, id, err.Error())
		return nil
	}

	d.logger.Debug("backend %s answered in %v (%d tokens)",
		id, time.Since(started), resp.Usage.TotalTokens)
	d.publish(ports.ProgressBackendFinished, queryID, id, "")

	return &ports.AgentResponse{
		Backend:    id,
		Content:    resp.Content,
		Confidence: backendConfidence,
		Usage:      resp.Usage,
		Timestamp:  time.Now(),
	}
}

func (d *Dispatcher) publish(eventType ports.ProgressEventType, queryID, backendID, detail string) {
	if d.broadcaster == nil {
		return
	}
	d.broadcaster.Publish(ports.ProgressEvent{
		Type:    eventType,
		QueryID: queryID,
		Backend: backendID,
		Detail:  detail,
	})
}
