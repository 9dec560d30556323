package ports

import (
	"context"
	"time"
)

// KnowledgeItemKind distinguishes prose documents from code files so the
// assembler can report per-category counts.
type KnowledgeItemKind string

const (
	KnowledgeItemDocument KnowledgeItemKind = "document"
	KnowledgeItemCode     KnowledgeItemKind = "code"
)

// KnowledgeItem is one candidate piece of supporting context. The corpus is
// externally owned; the core only reads it.
type KnowledgeItem struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Path         string            `json:"path,omitempty"`
	Repository   string            `json:"repository,omitempty"`
	Body         string            `json:"body"`
	Tags         []string          `json:"tags,omitempty"`
	Kind         KnowledgeItemKind `json:"kind"`
	LastAccessed time.Time         `json:"last_accessed,omitempty"`
}

// ScoredItem pairs a knowledge item with its relevance score and estimated
// token cost for budget arithmetic.
type ScoredItem struct {
	Item      KnowledgeItem `json:"item"`
	Relevance float64       `json:"relevance"`
	Tokens    int           `json:"tokens"`
}

// ContextBundle is the subset of scored items selected under a token budget.
// Invariant: the token costs of Items sum to at most Budget.
type ContextBundle struct {
	Items         []ScoredItem `json:"items"`
	Budget        int          `json:"budget"`
	TokensUsed    int          `json:"tokens_used"`
	DocumentCount int          `json:"document_count"`
	CodeCount     int          `json:"code_count"`
}

// Empty reports whether the bundle carries no context.
func (b ContextBundle) Empty() bool {
	return len(b.Items) == 0
}

// CorpusAccessor yields a bounded candidate set for a scope, most recent
// first. Implementations decide what "recent" means for their storage.
type CorpusAccessor interface {
	Candidates(ctx context.Context, scope string) ([]KnowledgeItem, error)
}
