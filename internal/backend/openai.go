package backend

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"conclave/internal/ports"
	"conclave/internal/shared/logging"
)

// OpenAIConfig configures an OpenAI-compatible remote backend. BaseURL may
// point at any server speaking the chat-completions protocol.
type OpenAIConfig struct {
	ID      string
	Model   string
	APIKey  string
	BaseURL string
}

// OpenAIBackend is a ports.AgentBackend over an OpenAI-compatible API.
type OpenAIBackend struct {
	id     string
	model  string
	client *openai.Client
	logger logging.Logger
}

// NewOpenAIBackend creates a client for one remote model.
func NewOpenAIBackend(config OpenAIConfig, logger logging.Logger) *OpenAIBackend {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	return &OpenAIBackend{
		id:     config.ID,
		model:  config.Model,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logging.OrNop(logger),
	}
}

// ID returns the backend identifier.
func (c *OpenAIBackend) ID() string { return c.id }

// Complete runs a chat completion.
func (c *OpenAIBackend) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)

	system := req.SystemPrompt
	if req.ContextBlock != "" {
		if system != "" {
			system += "\n\n"
		}
		system += req.ContextBlock
	}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range req.History {
		role := strings.TrimSpace(msg.Role)
		if role == "" || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Query,
	})

	request := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if req.Temperature > 0 {
		request.Temperature = float32(req.Temperature)
	}
	if req.MaxTokens > 0 {
		request.MaxTokens = req.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("chat completion on %s: %w", c.id, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion on %s returned no choices", c.id)
	}

	return &ports.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: ports.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
