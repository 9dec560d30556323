// Package relevance scores knowledge items against a query.
//
// Scoring is a pure weighted sum: explicit quoted mentions dominate,
// followed by file-path and repository mentions, keyword matches, tag
// matches, and a small recency bonus. The same inputs always produce the
// same score; the only time-dependent term is the recency bonus, which is
// computed against an injectable clock.
package relevance

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"conclave/internal/ports"
)

// Weights holds the scoring weights. The defaults are hand-tuned product
// constants, kept configurable rather than hard-coded.
type Weights struct {
	ExplicitMention float64 `json:"explicit_mention" mapstructure:"explicit_mention"`
	FilePathMention float64 `json:"file_path_mention" mapstructure:"file_path_mention"`
	RepoMention     float64 `json:"repo_mention" mapstructure:"repo_mention"`
	KeywordMatch    float64 `json:"keyword_match" mapstructure:"keyword_match"`
	TagMatch        float64 `json:"tag_match" mapstructure:"tag_match"`
	RecentAccess    float64 `json:"recent_access" mapstructure:"recent_access"`
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() Weights {
	return Weights{
		ExplicitMention: 10.0,
		FilePathMention: 8.0,
		RepoMention:     5.0,
		KeywordMatch:    3.0,
		TagMatch:        2.0,
		RecentAccess:    1.5,
	}
}

// recentAccessWindow is how long after the last access an item still earns
// the recency bonus.
const recentAccessWindow = 24 * time.Hour

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "for": {}, "with": {}, "from": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "are": {}, "was": {},
	"were": {}, "been": {}, "have": {}, "has": {}, "had": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"can": {}, "may": {}, "might": {}, "must": {}, "what": {}, "how": {},
	"why": {}, "who": {}, "when": {}, "where": {}, "you": {}, "your": {},
}

// Scorer computes relevance scores. The zero value is not usable; construct
// with NewScorer.
type Scorer struct {
	weights Weights
	now     func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock overrides the clock used for the recency bonus (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// NewScorer creates a Scorer with the given weights.
func NewScorer(weights Weights, opts ...Option) *Scorer {
	s := &Scorer{weights: weights, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keywords extracts the lowercase query terms used for matching: runs of
// letters and digits, stopwords removed, tokens of length <=2 dropped,
// deduplicated in first-seen order.
func Keywords(query string) []string {
	lower := strings.ToLower(query)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	keywords := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) <= 2 {
			continue
		}
		if _, stop := stopwords[field]; stop {
			continue
		}
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		keywords = append(keywords, field)
	}
	return keywords
}

// QuotedMentions returns the lowercase contents of single- or double-quoted
// spans in the query.
func QuotedMentions(query string) map[string]struct{} {
	mentions := make(map[string]struct{})
	lower := strings.ToLower(query)
	for _, quote := range []byte{'"', '\''} {
		rest := lower
		for {
			start := strings.IndexByte(rest, quote)
			if start < 0 {
				break
			}
			end := strings.IndexByte(rest[start+1:], quote)
			if end < 0 {
				break
			}
			if span := strings.TrimSpace(rest[start+1 : start+1+end]); span != "" {
				mentions[span] = struct{}{}
			}
			rest = rest[start+1+end+1:]
		}
	}
	return mentions
}

// Score returns the non-negative relevance of item to query.
func (s *Scorer) Score(query string, item ports.KnowledgeItem) float64 {
	return s.score(query, Keywords(query), QuotedMentions(query), item)
}

// ScoreAll scores every candidate, discards items scoring <=0, and returns
// the survivors sorted by score descending. The sort is stable, so ties
// keep the original corpus order and results are reproducible.
func (s *Scorer) ScoreAll(query string, items []ports.KnowledgeItem, tokens func(ports.KnowledgeItem) int) []ports.ScoredItem {
	keywords := Keywords(query)
	mentions := QuotedMentions(query)

	scored := make([]ports.ScoredItem, 0, len(items))
	for _, item := range items {
		score := s.score(query, keywords, mentions, item)
		if score <= 0 {
			continue
		}
		scored = append(scored, ports.ScoredItem{
			Item:      item,
			Relevance: score,
			Tokens:    tokens(item),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Relevance > scored[j].Relevance
	})
	return scored
}

func (s *Scorer) score(query string, keywords []string, mentions map[string]struct{}, item ports.KnowledgeItem) float64 {
	var score float64
	queryLower := strings.ToLower(query)

	// Explicit quoted mention of the item's id or title wins outright.
	if containsMention(mentions, item.ID) || containsMention(mentions, item.Title) {
		score += s.weights.ExplicitMention
	}

	// File path mentioned anywhere in the query (quoted or not).
	if item.Path != "" {
		pathLower := strings.ToLower(item.Path)
		if containsMention(mentions, item.Path) || strings.Contains(queryLower, pathLower) {
			score += s.weights.FilePathMention
		}
	}

	// Repository name mentioned in the query.
	if item.Repository != "" && strings.Contains(queryLower, strings.ToLower(item.Repository)) {
		score += s.weights.RepoMention
	}

	// Keyword substring matches against the searchable text.
	searchable := strings.ToLower(item.Title + " " + item.Path + " " + item.Body)
	for _, keyword := range keywords {
		if strings.Contains(searchable, keyword) {
			score += s.weights.KeywordMatch
		}
	}

	// Tag matches against extracted keywords.
	for _, tag := range item.Tags {
		tagLower := strings.ToLower(tag)
		for _, keyword := range keywords {
			if keyword == tagLower {
				score += s.weights.TagMatch
				break
			}
		}
	}

	// Recency bonus for recently accessed items.
	if !item.LastAccessed.IsZero() && s.now().Sub(item.LastAccessed) < recentAccessWindow {
		score += s.weights.RecentAccess
	}

	return score
}

func containsMention(mentions map[string]struct{}, value string) bool {
	if value == "" {
		return false
	}
	_, ok := mentions[strings.ToLower(value)]
	return ok
}
