package ports

import "time"

// ProgressEventType names a dispatch lifecycle moment.
type ProgressEventType string

const (
	ProgressBackendStarted  ProgressEventType = "backend-started"
	ProgressBackendFinished ProgressEventType = "backend-finished"
	ProgressBackendFailed   ProgressEventType = "backend-failed"
)

// ProgressEvent is a fire-and-forget status update for live UI feedback.
// No acknowledgement is expected and delivery is best-effort.
type ProgressEvent struct {
	Type      ProgressEventType `json:"type"`
	QueryID   string            `json:"query_id"`
	Backend   string            `json:"backend"`
	Timestamp time.Time         `json:"timestamp"`
	Detail    string            `json:"detail,omitempty"`
}

// EventListener consumes progress events (used by transport/UI layers).
type EventListener interface {
	OnEvent(event ProgressEvent)
}
