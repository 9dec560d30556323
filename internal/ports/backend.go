package ports

import (
	"context"
	"time"
)

// ClassifyBackend is the lightweight local model used for query triage and
// response synthesis. It is optional: callers must tolerate its absence and
// fall back to heuristics.
type ClassifyBackend interface {
	// Infer sends a single prompt and returns the raw model reply.
	Infer(ctx context.Context, prompt string, opts InferOptions) (string, error)

	// Available reports whether the backend can currently serve requests.
	Available(ctx context.Context) bool
}

// InferOptions tunes a single classification/synthesis call.
type InferOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// AgentBackend represents one AI backend consulted during dispatch.
// All backend families share this contract; the dispatcher never branches
// on a concrete implementation.
type AgentBackend interface {
	// Complete sends the query with its context and returns a response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// ID returns the backend identifier used in routing and attribution.
	ID() string
}

// CompletionRequest contains everything a backend needs for one call.
type CompletionRequest struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Query        string    `json:"query"`
	History      []Message `json:"history,omitempty"`
	ContextBlock string    `json:"context_block,omitempty"`
	MaxTokens    int       `json:"max_tokens,omitempty"`
	Temperature  float64   `json:"temperature,omitempty"`
}

// CompletionResponse is a backend's reply.
type CompletionResponse struct {
	Content string     `json:"content"`
	Usage   TokenUsage `json:"usage"`
}

// TokenUsage tracks token consumption for one backend call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AgentResponse is one backend's contribution to a query, produced by the
// dispatcher and consumed by the synthesizer before being archived.
type AgentResponse struct {
	Backend    string     `json:"backend"`
	Content    string     `json:"content"`
	Confidence float64    `json:"confidence"`
	Usage      TokenUsage `json:"usage"`
	Timestamp  time.Time  `json:"timestamp"`
}
