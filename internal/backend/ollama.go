package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"conclave/internal/ports"
	"conclave/internal/shared/logging"
)

// OllamaConfig configures a connection to an Ollama server.
type OllamaConfig struct {
	ID      string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OllamaBackend talks to a local Ollama server. It implements both
// ports.AgentBackend (chat completions for dispatch) and
// ports.ClassifyBackend (raw generation for triage and synthesis).
type OllamaBackend struct {
	id         string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewOllamaBackend creates a client for one Ollama-served model.
func NewOllamaBackend(config OllamaConfig, logger logging.Logger) *OllamaBackend {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434/api"
	}
	if !strings.HasSuffix(baseURL, "/api") {
		baseURL = baseURL + "/api"
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OllamaBackend{
		id:         config.ID,
		model:      config.Model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.OrNop(logger),
	}
}

// ID returns the backend identifier.
func (c *OllamaBackend) ID() string { return c.id }

// Complete runs a chat completion for the dispatcher.
func (c *OllamaBackend) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	request := ollamaRequest{
		Model:    c.model,
		Messages: buildOllamaMessages(req),
		Stream:   false,
	}
	options := make(map[string]any)
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if len(options) > 0 {
		request.Options = options
	}

	var response ollamaChatResponse
	if err := c.post(ctx, "/chat", request, &response); err != nil {
		return nil, err
	}
	if response.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", response.Error)
	}

	return &ports.CompletionResponse{
		Content: response.Message.Content,
		Usage: ports.TokenUsage{
			PromptTokens:     response.PromptEvalCount,
			CompletionTokens: response.EvalCount,
			TotalTokens:      response.PromptEvalCount + response.EvalCount,
		},
	}, nil
}

// Infer runs a raw generation for triage and synthesis prompts.
func (c *OllamaBackend) Infer(ctx context.Context, prompt string, opts ports.InferOptions) (string, error) {
	request := ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	}
	options := make(map[string]any)
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if len(options) > 0 {
		request.Options = options
	}

	var response ollamaGenerateResponse
	if err := c.post(ctx, "/generate", request, &response); err != nil {
		return "", err
	}
	if response.Error != "" {
		return "", fmt.Errorf("ollama error: %s", response.Error)
	}
	return response.Response, nil
}

// Available probes the server's model listing endpoint.
func (c *OllamaBackend) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("ollama health probe failed: %v", err)
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (c *OllamaBackend) post(ctx context.Context, path string, request, response any) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama request failed: %s", strings.TrimSpace(string(raw)))
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("decode ollama response: %w", err)
	}
	return nil
}

func buildOllamaMessages(req ports.CompletionRequest) []ollamaMessage {
	messages := make([]ollamaMessage, 0, len(req.History)+2)

	system := req.SystemPrompt
	if req.ContextBlock != "" {
		if system != "" {
			system += "\n\n"
		}
		system += req.ContextBlock
	}
	if system != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: system})
	}

	for _, msg := range req.History {
		role := strings.TrimSpace(msg.Role)
		if role == "" || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		messages = append(messages, ollamaMessage{Role: role, Content: msg.Content})
	}

	messages = append(messages, ollamaMessage{Role: "user", Content: req.Query})
	return messages
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error"`
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}
