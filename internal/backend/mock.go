package backend

import (
	"context"
	"fmt"
	"time"

	"conclave/internal/ports"
	"conclave/internal/shared/token"
)

// MockBackend implements ports.AgentBackend for tests and offline
// development. It returns canned content after an optional simulated delay
// and can be scripted to fail.
type MockBackend struct {
	Identifier string
	Content    string
	Err        error
	Delay      time.Duration
}

// NewMockBackend returns a mock that answers with content.
func NewMockBackend(id, content string) *MockBackend {
	return &MockBackend{Identifier: id, Content: content}
}

// Complete returns the canned response, honoring context cancellation
// during the simulated delay.
func (m *MockBackend) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	content := m.Content
	if content == "" {
		content = fmt.Sprintf("mock response from %s", m.Identifier)
	}
	prompt := token.Estimate(req.Query + req.ContextBlock)
	completion := token.Estimate(content)
	return &ports.CompletionResponse{
		Content: content,
		Usage: ports.TokenUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}, nil
}

// ID returns the mock's identifier.
func (m *MockBackend) ID() string { return m.Identifier }

// MockClassifyBackend implements ports.ClassifyBackend for tests.
type MockClassifyBackend struct {
	Reply       string
	Err         error
	Unavailable bool
}

// Infer returns the scripted reply.
func (m *MockClassifyBackend) Infer(context.Context, string, ports.InferOptions) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

// Available reports the scripted availability.
func (m *MockClassifyBackend) Available(context.Context) bool { return !m.Unavailable }
