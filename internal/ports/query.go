// Package ports defines the boundary contracts of the orchestration core.
//
// Every external collaborator (classification backend, agent backends, the
// knowledge corpus, the ledger store, event consumers) is reached through an
// interface declared here, so the core packages depend on this package only
// and never on a concrete transport or storage engine.
package ports

import "time"

// Complexity classifies a query by the effort required to answer it.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Strategy identifies how a query is routed across backends.
type Strategy string

const (
	// StrategyLocalOnly answers with the single local backend.
	StrategyLocalOnly Strategy = "local-only"
	// StrategyHybrid consults the local backend plus 1-2 remote backends.
	StrategyHybrid Strategy = "hybrid"
	// StrategyFullFanout consults the full backend roster in parallel.
	StrategyFullFanout Strategy = "full-fanout"
)

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Preferences carries optional user routing constraints.
type Preferences struct {
	PreferLocal bool          `json:"prefer_local,omitempty"`
	MaxCost     float64       `json:"max_cost,omitempty"`
	MaxLatency  time.Duration `json:"max_latency,omitempty"`
}

// Query is the unit of work entering the router.
type Query struct {
	Text        string      `json:"text"`
	History     []Message   `json:"history,omitempty"`
	Preferences Preferences `json:"preferences,omitempty"`
	Scope       string      `json:"scope,omitempty"`
}

// TriageResult is the classifier's verdict for exactly one query.
// It is immutable once produced.
type TriageResult struct {
	Complexity          Complexity    `json:"complexity"`
	Strategy            Strategy      `json:"strategy"`
	RecommendedBackends []string      `json:"recommended_backends"`
	EstimatedCost       float64       `json:"estimated_cost"`
	EstimatedLatency    time.Duration `json:"estimated_latency"`
	Confidence          float64       `json:"confidence"`
	Reasoning           string        `json:"reasoning"`
	NeedsRealtime       bool          `json:"needs_realtime"`
	LocallyAnswerable   bool          `json:"locally_answerable"`
}

// SynthesizedAnswer is the merged output of one or more backend responses.
type SynthesizedAnswer struct {
	Text                 string        `json:"text"`
	KeyInsights          []string      `json:"key_insights,omitempty"`
	ConsensusScore       float64       `json:"consensus_score"`
	ContributingBackends []string      `json:"contributing_backends"`
	ExecutionTime        time.Duration `json:"execution_time"`
	TotalCost            float64       `json:"total_cost"`
}

// RoutedAnswer is the router's reply to a single query.
type RoutedAnswer struct {
	Answer        string        `json:"answer"`
	KeyInsights   []string      `json:"key_insights,omitempty"`
	Strategy      Strategy      `json:"strategy"`
	BackendsUsed  []string      `json:"backends_used"`
	Consensus     float64       `json:"consensus"`
	ExecutionTime time.Duration `json:"execution_time"`
	TotalCost     float64       `json:"total_cost"`
	Triage        TriageResult  `json:"triage"`
}
