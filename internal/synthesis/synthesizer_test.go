package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"conclave/internal/ports"
	"conclave/internal/shared/logging"
)

type scriptedModel struct {
	reply     string
	err       error
	available bool
	prompts   []string
}

func (m *scriptedModel) Infer(_ context.Context, prompt string, _ ports.InferOptions) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.reply, m.err
}

func (m *scriptedModel) Available(context.Context) bool { return m.available }

func response(backend, content string) ports.AgentResponse {
	return ports.AgentResponse{Backend: backend, Content: content, Confidence: 0.85, Timestamp: time.Now()}
}

func TestSingleResponsePassesThroughWithPerfectConsensus(t *testing.T) {
	model := &scriptedModel{available: true, reply: "should not be called"}
	s := New(model, logging.Nop())

	answer := s.Synthesize(context.Background(), "what is raft?",
		[]ports.AgentResponse{response("muse-local", "Raft is a consensus protocol built around an elected leader.")})

	if answer.Text != "Raft is a consensus protocol built around an elected leader." {
		t.Fatalf("single response must pass through untouched, got %q", answer.Text)
	}
	if answer.ConsensusScore != 1.0 {
		t.Fatalf("single response is perfect consensus, got %f", answer.ConsensusScore)
	}
	if len(model.prompts) != 0 {
		t.Fatalf("model must not be consulted for a single response")
	}
	if len(answer.ContributingBackends) != 1 || answer.ContributingBackends[0] != "muse-local" {
		t.Fatalf("unexpected contributors: %v", answer.ContributingBackends)
	}
}

func TestModelSynthesisCarriesInsightsAndConsensus(t *testing.T) {
	model := &scriptedModel{
		available: true,
		reply: "Both backends agree on the fundamentals.\n\n" +
			"1. Use leader election to serialize writes\n" +
			"2. Replicate the log before acknowledging clients\n",
	}
	s := New(model, logging.Nop())

	answer := s.Synthesize(context.Background(), "how does raft work?", []ports.AgentResponse{
		response("atlas", "kubernetes scheduling priority queues"),
		response("vertex", "kubernetes scheduling memory limits"),
	})

	if !strings.Contains(answer.Text, "agree on the fundamentals") {
		t.Fatalf("model text should be the answer, got %q", answer.Text)
	}
	if len(answer.KeyInsights) != 2 {
		t.Fatalf("expected 2 insights, got %v", answer.KeyInsights)
	}
	if answer.KeyInsights[0] != "Use leader election to serialize writes" {
		t.Fatalf("unexpected first insight: %q", answer.KeyInsights[0])
	}
	// Word sets overlap in 2 of 6 words: jaccard 1/3, scaled by 1.5.
	if answer.ConsensusScore != 0.5 {
		t.Fatalf("expected consensus 0.5, got %f", answer.ConsensusScore)
	}

	if len(model.prompts) != 1 {
		t.Fatalf("expected exactly one model call, got %d", len(model.prompts))
	}
	prompt := model.prompts[0]
	for _, want := range []string{"how does raft work?", "Response 1 (atlas)", "Response 2 (vertex)"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("synthesis prompt missing %q", want)
		}
	}
}

func TestUnavailableModelFallsBackToConcatenation(t *testing.T) {
	s := New(&scriptedModel{available: false}, logging.Nop())

	answer := s.Synthesize(context.Background(), "q", []ports.AgentResponse{
		response("atlas", "The replication layer batches writes before flushing them to disk."),
		response("vertex", "Compaction runs in the background and never blocks the write path."),
	})

	if !strings.Contains(answer.Text, "## atlas") || !strings.Contains(answer.Text, "## vertex") {
		t.Fatalf("fallback must keep per-backend headers, got %q", answer.Text)
	}
	if !strings.Contains(answer.Text, "\n\n---\n\n") {
		t.Fatalf("fallback sections must be separated, got %q", answer.Text)
	}
	if answer.ConsensusScore != 0.5 {
		t.Fatalf("fallback consensus is unknown and reported as 0.5, got %f", answer.ConsensusScore)
	}
	if len(answer.KeyInsights) != 2 {
		t.Fatalf("expected one first-sentence insight per response, got %v", answer.KeyInsights)
	}
	if answer.KeyInsights[0] != "The replication layer batches writes before flushing them to disk." {
		t.Fatalf("unexpected insight: %q", answer.KeyInsights[0])
	}
}

func TestModelErrorFallsBackToConcatenation(t *testing.T) {
	model := &scriptedModel{available: true, err: errors.New("model crashed")}
	s := New(model, logging.Nop())

	answer := s.Synthesize(context.Background(), "q", []ports.AgentResponse{
		response("atlas", "The scheduler keeps a priority heap of pending pods at all times."),
		response("vertex", "Nodes report capacity through periodic heartbeats to the control plane."),
	})
	if answer.ConsensusScore != 0.5 {
		t.Fatalf("error path must use the fallback, got consensus %f", answer.ConsensusScore)
	}
	if !strings.Contains(answer.Text, "## atlas") {
		t.Fatalf("error path must concatenate, got %q", answer.Text)
	}
}

func TestNoResponsesYieldsEmptyAnswer(t *testing.T) {
	s := New(nil, logging.Nop())
	answer := s.Synthesize(context.Background(), "q", nil)
	if answer.Text != "" || answer.ConsensusScore != 0 {
		t.Fatalf("empty input should produce an empty answer, got %+v", answer)
	}
}

func TestSummarizeTruncatesWithoutModel(t *testing.T) {
	s := New(nil, logging.Nop())
	long := strings.Repeat("abcde ", 200)

	got := s.Summarize(context.Background(), long, 100)
	if len(got) != 103 || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected 100-char truncation with ellipsis, got %d chars", len(got))
	}

	short := "already short"
	if got := s.Summarize(context.Background(), short, 100); got != short {
		t.Fatalf("short content must pass through, got %q", got)
	}
}

func TestSummarizeUsesModelWhenAvailable(t *testing.T) {
	model := &scriptedModel{available: true, reply: "a tight summary"}
	s := New(model, logging.Nop())

	got := s.Summarize(context.Background(), strings.Repeat("x", 2000), 300)
	if got != "a tight summary" {
		t.Fatalf("expected model summary, got %q", got)
	}
	if !strings.Contains(model.prompts[0], "approximately 300 characters") {
		t.Fatalf("summary prompt should carry the length target")
	}
}
