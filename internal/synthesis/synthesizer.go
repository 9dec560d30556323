// Package synthesis merges the responses of several backends into a single
// answer. A local model writes the merged text when one is reachable; when
// it is not, the responses are concatenated under per-backend headers so
// the caller still gets every perspective.
package synthesis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"conclave/internal/ports"
	"conclave/internal/shared/logging"
)

const (
	synthesisTemperature = 0.7
	synthesisMaxTokens   = 2048

	// maxInsights caps the key-insight list on every extraction path.
	maxInsights = 5

	// fallbackConsensus is reported when the merged text was produced by
	// concatenation rather than a model, so agreement was never measured.
	fallbackConsensus = 0.5
)

// Synthesizer combines backend responses.
type Synthesizer struct {
	backend ports.ClassifyBackend
	logger  logging.Logger
}

// New creates a Synthesizer. A nil backend forces the concatenation
// fallback for every call.
func New(backend ports.ClassifyBackend, logger logging.Logger) *Synthesizer {
	return &Synthesizer{
		backend: backend,
		logger:  logging.OrNop(logger),
	}
}

// Synthesize merges the responses into one answer. A single response is
// passed through untouched with perfect consensus. The returned answer
// carries no cost; local synthesis is free and backend call costs are the
// caller's accounting.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, responses []ports.AgentResponse) ports.SynthesizedAnswer {
	started := time.Now()

	if len(responses) == 0 {
		return ports.SynthesizedAnswer{ConsensusScore: 0, ExecutionTime: time.Since(started)}
	}

	if len(responses) == 1 {
		only := responses[0]
		return ports.SynthesizedAnswer{
			Text:                 only.Content,
			KeyInsights:          ExtractKeyInsights(only.Content),
			ConsensusScore:       1.0,
			ContributingBackends: backendNames(responses),
			ExecutionTime:        time.Since(started),
		}
	}

	if s.backend == nil || !s.backend.Available(ctx) {
		s.logger.Warn("synthesis model unavailable, concatenating %d responses", len(responses))
		return s.fallback(responses, started)
	}

	merged, err := s.backend.Infer(ctx, buildSynthesisPrompt(query, responses), ports.InferOptions{
		Temperature: synthesisTemperature,
		MaxTokens:   synthesisMaxTokens,
	})
	if err != nil {
		s.logger.Error("synthesis failed: %v", err)
		return s.fallback(responses, started)
	}

	answer := ports.SynthesizedAnswer{
		Text:                 merged,
		KeyInsights:          ExtractKeyInsights(merged),
		ConsensusScore:       ConsensusScore(responses),
		ContributingBackends: backendNames(responses),
		ExecutionTime:        time.Since(started),
	}
	s.logger.Debug("synthesized %d responses, consensus %.2f, took %v",
		len(responses), answer.ConsensusScore, answer.ExecutionTime)
	return answer
}

// fallback concatenates the responses under per-backend headers. Consensus
// is unknown on this path and reported as 0.5.
func (s *Synthesizer) fallback(responses []ports.AgentResponse, started time.Time) ports.SynthesizedAnswer {
	sections := make([]string, 0, len(responses))
	insights := make([]string, 0, maxInsights)
	for _, r := range responses {
		sections = append(sections, fmt.Sprintf("## %s\n\n%s", r.Backend, r.Content))

		first := strings.TrimSpace(strings.SplitN(r.Content, ".", 2)[0])
		if len(first) > 20 && len(insights) < maxInsights {
			insights = append(insights, first+".")
		}
	}
	return ports.SynthesizedAnswer{
		Text:                 strings.Join(sections, "\n\n---\n\n"),
		KeyInsights:          insights,
		ConsensusScore:       fallbackConsensus,
		ContributingBackends: backendNames(responses),
		ExecutionTime:        time.Since(started),
	}
}

// Summarize condenses content to roughly maxLength characters via the
// synthesis model, or truncates when no model is reachable.
func (s *Synthesizer) Summarize(ctx context.Context, content string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = 500
	}
	truncate := func() string {
		if len(content) > maxLength {
			return content[:maxLength] + "..."
		}
		return content
	}

	if s.backend == nil || !s.backend.Available(ctx) {
		return truncate()
	}

	prompt := fmt.Sprintf("Summarize the following content in approximately %d characters. Be concise and capture the key points.\n\nCONTENT:\n%s\n\nSUMMARY:", maxLength, content)
	summary, err := s.backend.Infer(ctx, prompt, ports.InferOptions{
		Temperature: 0.5,
		MaxTokens:   (maxLength + 2) / 3,
	})
	if err != nil {
		s.logger.Error("summarization failed: %v", err)
		return truncate()
	}
	return summary
}

func buildSynthesisPrompt(query string, responses []ports.AgentResponse) string {
	var b strings.Builder
	b.WriteString("You are a synthesis engine. Multiple AI backends have responded to a user query. Your task is to synthesize their insights into a single, cohesive, comprehensive answer.\n\n")
	fmt.Fprintf(&b, "USER QUERY: %q\n\n", query)
	b.WriteString("BACKEND RESPONSES:\n")
	for i, r := range responses {
		fmt.Fprintf(&b, "### Response %d (%s):\n%s\n\n", i+1, r.Backend, r.Content)
	}
	b.WriteString(`SYNTHESIS GUIDELINES:
1. **Identify Consensus**: Find common themes and agreements across responses
2. **Highlight Unique Insights**: Include valuable unique perspectives from each backend
3. **Resolve Contradictions**: If backends disagree, present both views fairly
4. **Structure Clearly**: Organize the information logically
5. **Be Concise**: Remove redundancy while keeping all valuable information
6. **Attribute When Needed**: Mention which backend provided key insights if relevant

SYNTHESIZED ANSWER:`)
	return b.String()
}

func backendNames(responses []ports.AgentResponse) []string {
	names := make([]string, len(responses))
	for i, r := range responses {
		names[i] = r.Backend
	}
	return names
}
