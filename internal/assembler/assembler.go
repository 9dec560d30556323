// Package assembler selects supporting context for a query under a token
// budget.
//
// The budget is a fixed fraction of the target backend's token limit; the
// remainder is reserved for conversation history and response generation.
// Packing is greedy by relevance: an item that would overflow the budget is
// skipped, not a stopping point, so smaller high-value items below it can
// still fit. Greedy packing is a deliberate simplicity/latency tradeoff
// over optimal knapsack.
package assembler

import (
	"context"
	"fmt"
	"strings"

	"conclave/internal/ports"
	"conclave/internal/relevance"
	"conclave/internal/shared/logging"
	"conclave/internal/shared/token"
)

// Allocation fixes how a backend's token limit is split.
type Allocation struct {
	Conversation float64 `json:"conversation" mapstructure:"conversation"`
	Context      float64 `json:"context" mapstructure:"context"`
	Response     float64 `json:"response" mapstructure:"response"`
}

// DefaultAllocation returns the standard 40/45/15 split.
func DefaultAllocation() Allocation {
	return Allocation{
		Conversation: 0.40,
		Context:      0.45,
		Response:     0.15,
	}
}

// Assembler builds context bundles from an external corpus.
type Assembler struct {
	corpus     ports.CorpusAccessor
	scorer     *relevance.Scorer
	allocation Allocation
	logger     logging.Logger
}

// New creates an Assembler reading candidates from corpus.
func New(corpus ports.CorpusAccessor, scorer *relevance.Scorer, allocation Allocation, logger logging.Logger) *Assembler {
	return &Assembler{
		corpus:     corpus,
		scorer:     scorer,
		allocation: allocation,
		logger:     logging.OrNop(logger),
	}
}

// ContextBudget derives the context token budget from a backend token limit.
func (a *Assembler) ContextBudget(backendTokenLimit int) int {
	if backendTokenLimit <= 0 {
		return 0
	}
	return int(float64(backendTokenLimit) * a.allocation.Context)
}

// Assemble selects the most relevant corpus items for the query within the
// budget derived from backendTokenLimit. Context enrichment is best-effort:
// corpus access failure degrades to an empty bundle and never fails the
// query.
func (a *Assembler) Assemble(ctx context.Context, query ports.Query, backendTokenLimit int) ports.ContextBundle {
	budget := a.ContextBudget(backendTokenLimit)
	bundle := ports.ContextBundle{Budget: budget}
	if budget <= 0 {
		return bundle
	}

	candidates, err := a.corpus.Candidates(ctx, query.Scope)
	if err != nil {
		a.logger.Warn("corpus access failed, continuing without context: %v", err)
		return bundle
	}

	scored := a.scorer.ScoreAll(query.Text, candidates, func(item ports.KnowledgeItem) int {
		return token.Count(item.Body)
	})

	for _, item := range scored {
		if bundle.TokensUsed+item.Tokens > budget {
			// Skip, don't stop: a smaller item further down may still fit.
			continue
		}
		bundle.Items = append(bundle.Items, item)
		bundle.TokensUsed += item.Tokens
		switch item.Item.Kind {
		case ports.KnowledgeItemCode:
			bundle.CodeCount++
		default:
			bundle.DocumentCount++
		}
	}

	a.logger.Debug("assembled context: %d/%d candidates, %d/%d tokens",
		len(bundle.Items), len(candidates), bundle.TokensUsed, budget)
	return bundle
}

// FormatForPrompt renders a bundle as a knowledge-base block for injection
// into a backend's system prompt. Item bodies are truncated so a single
// oversized body cannot dominate the rendered block.
func FormatForPrompt(bundle ports.ContextBundle) string {
	if bundle.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Available Knowledge Base\n\n")
	for _, item := range bundle.Items {
		label := item.Item.Title
		if item.Item.Kind == ports.KnowledgeItemCode && item.Item.Path != "" {
			label = item.Item.Path
			if item.Item.Repository != "" {
				label += " (" + item.Item.Repository + ")"
			}
		}
		fmt.Fprintf(&b, "### %s (relevance %.1f)\n", label, item.Relevance)
		b.WriteString(token.Truncate(item.Item.Body, 400))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Context includes %d documents and %d code files (%d tokens). Cite these materials when you use them.\n",
		bundle.DocumentCount, bundle.CodeCount, bundle.TokensUsed)
	return b.String()
}
