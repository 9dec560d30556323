package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"conclave/internal/ports"
)

const triagePromptTemplate = `Analyze this user query and classify it for routing in a hybrid AI system.

USER QUERY: %q

Consider:
1. Complexity: simple (factual, definitions), moderate (explanations, basic code), complex (architecture, deep analysis)
2. Requires real-time data: does it need current information?
3. Code generation: is it asking to write significant code?
4. Multiple perspectives: would multiple AI models add value?

Respond in JSON format ONLY:
{
  "complexity": "simple|moderate|complex",
  "can_handle_locally": true|false,
  "requires_realtime_data": true|false,
  "requires_code_generation": true|false,
  "benefits_from_multiple_models": true|false,
  "reasoning": "brief explanation (max 100 chars)"
}`

// modelVerdict mirrors the JSON reply requested from the classify backend.
type modelVerdict struct {
	Complexity           string `json:"complexity"`
	CanHandleLocally     bool   `json:"can_handle_locally"`
	RequiresRealtime     bool   `json:"requires_realtime_data"`
	RequiresCodeGen      bool   `json:"requires_code_generation"`
	BenefitsFromMultiple bool   `json:"benefits_from_multiple_models"`
	Reasoning            string `json:"reasoning"`
}

// classifyWithModel asks the classify backend for a structured verdict and
// runs the decision table over it. Any error falls back to heuristics in
// the caller.
func (c *Classifier) classifyWithModel(ctx context.Context, query ports.Query) (ports.TriageResult, error) {
	prompt := fmt.Sprintf(triagePromptTemplate, query.Text)

	// Low temperature for consistent classification.
	reply, err := c.backend.Infer(ctx, prompt, ports.InferOptions{Temperature: 0.3, MaxTokens: 512})
	if err != nil {
		return ports.TriageResult{}, fmt.Errorf("classify backend: %w", err)
	}

	verdict, err := parseVerdict(reply)
	if err != nil {
		return ports.TriageResult{}, err
	}

	sig := signals{
		CanHandleLocally:     verdict.CanHandleLocally,
		RequiresRealtime:     verdict.RequiresRealtime,
		RequiresCodeGen:      verdict.RequiresCodeGen,
		BenefitsFromMultiple: verdict.BenefitsFromMultiple,
		Reasoning:            verdict.Reasoning,
	}
	switch strings.ToLower(strings.TrimSpace(verdict.Complexity)) {
	case "simple":
		sig.Complexity = ports.ComplexitySimple
	case "complex":
		sig.Complexity = ports.ComplexityComplex
	case "moderate":
		sig.Complexity = ports.ComplexityModerate
	default:
		return ports.TriageResult{}, fmt.Errorf("unknown complexity %q in model reply", verdict.Complexity)
	}

	return c.decide(sig, query.Preferences), nil
}

// parseVerdict extracts the JSON object from a model reply. Models wrap
// JSON in prose or emit slightly malformed output often enough that the
// raw slice is run through jsonrepair before decoding.
func parseVerdict(reply string) (modelVerdict, error) {
	var verdict modelVerdict

	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return verdict, fmt.Errorf("no JSON object in model reply")
	}
	raw := reply[start : end+1]

	if err := json.Unmarshal([]byte(raw), &verdict); err == nil {
		return verdict, nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return verdict, fmt.Errorf("repair model reply: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &verdict); err != nil {
		return verdict, fmt.Errorf("decode model reply: %w", err)
	}
	return verdict, nil
}
