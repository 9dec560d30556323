// Package triage classifies queries and chooses a routing strategy.
//
// Two modes share one output contract: a model-assisted mode that asks the
// local classify backend for a structured verdict, and a heuristic mode
// that pattern-matches indicator words and length thresholds. Heuristic
// mode is also the fallback whenever the backend is unavailable or its
// reply cannot be parsed, so triage itself can never fail a query.
package triage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"conclave/internal/ports"
	"conclave/internal/shared/logging"
)

// Roster names the backends available to routing decisions, in preference
// order. It is populated from configuration at startup.
type Roster struct {
	// Local is the always-available local backend.
	Local string `json:"local" mapstructure:"local"`
	// Realtime is the backend consulted for queries needing current data.
	Realtime string `json:"realtime" mapstructure:"realtime"`
	// Cloud lists the remote backends for hybrid and full-fanout routing.
	Cloud []string `json:"cloud" mapstructure:"cloud"`
}

// Thresholds holds the heuristic length cutoffs.
type Thresholds struct {
	// SimpleMaxLen is the maximum query length for a simple verdict.
	SimpleMaxLen int `json:"simple_max_len" mapstructure:"simple_max_len"`
	// ComplexMinLen forces a complex verdict above this length.
	ComplexMinLen int `json:"complex_min_len" mapstructure:"complex_min_len"`
}

// DefaultThresholds returns the standard length cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{SimpleMaxLen: 200, ComplexMinLen: 500}
}

// Cost and latency estimates per strategy, carried over from the original
// hand-tuned routing tables.
const (
	localLatency      = 200 * time.Millisecond
	hybridLatency     = 2500 * time.Millisecond
	fanoutLatency     = 5000 * time.Millisecond
	costPerCloudAgent = 0.015
	fanoutCost        = 0.06
)

const cacheSize = 256

// Classifier produces TriageResults. Construct with New; the classify
// backend may be nil, in which case only heuristic mode runs.
type Classifier struct {
	backend    ports.ClassifyBackend
	roster     Roster
	thresholds Thresholds
	logger     logging.Logger

	// Heuristic triage is deterministic for identical query text and
	// preferences, so results are safe to cache.
	cache *lru.Cache[string, ports.TriageResult]
}

// New creates a Classifier. backend may be nil.
func New(backend ports.ClassifyBackend, roster Roster, thresholds Thresholds, logger logging.Logger) *Classifier {
	cache, _ := lru.New[string, ports.TriageResult](cacheSize)
	return &Classifier{
		backend:    backend,
		roster:     roster,
		thresholds: thresholds,
		logger:     logging.OrNop(logger),
		cache:      cache,
	}
}

// ModelAvailable reports whether the classification backend can be
// reached right now.
func (c *Classifier) ModelAvailable(ctx context.Context) bool {
	return c.backend != nil && c.backend.Available(ctx)
}

// Classify triages a query. It prefers the model-assisted mode and falls
// back to heuristics on any backend failure.
func (c *Classifier) Classify(ctx context.Context, query ports.Query) ports.TriageResult {
	if c.backend != nil && c.backend.Available(ctx) {
		if result, err := c.classifyWithModel(ctx, query); err == nil {
			return result
		} else {
			c.logger.Warn("model-assisted triage failed, using heuristics: %v", err)
		}
	}
	return c.Heuristic(query)
}

// Heuristic classifies without the model. Identical query text and
// preferences always yield the identical TriageResult.
func (c *Classifier) Heuristic(query ports.Query) ports.TriageResult {
	key := heuristicCacheKey(query)
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	signals := heuristicSignals(query.Text, c.thresholds)
	result := c.decide(signals, query.Preferences)
	c.cache.Add(key, result)
	return result
}

// decide applies the routing decision table. Deterministic given the
// signals and preferences.
func (c *Classifier) decide(sig signals, prefs ports.Preferences) ports.TriageResult {
	locallyAnswerable := sig.CanHandleLocally && !sig.RequiresRealtime

	result := ports.TriageResult{
		Complexity:        sig.Complexity,
		Reasoning:         sig.Reasoning,
		NeedsRealtime:     sig.RequiresRealtime,
		LocallyAnswerable: locallyAnswerable,
		Confidence:        confidence(sig),
	}

	// User preference for local wins whenever the query is locally
	// answerable, regardless of complexity.
	if prefs.PreferLocal && locallyAnswerable {
		result.Strategy = ports.StrategyLocalOnly
		result.RecommendedBackends = []string{c.roster.Local}
		result.EstimatedLatency = localLatency
		return result
	}

	switch {
	case sig.Complexity == ports.ComplexitySimple && !sig.RequiresRealtime:
		result.Strategy = ports.StrategyLocalOnly
		result.RecommendedBackends = []string{c.roster.Local}
		result.EstimatedLatency = localLatency

	case sig.Complexity == ports.ComplexityComplex:
		result.Strategy = ports.StrategyFullFanout
		result.RecommendedBackends = c.fanoutBackends()
		result.EstimatedCost = fanoutCost
		result.EstimatedLatency = fanoutLatency

	default:
		// Moderate queries, and simple queries needing realtime data.
		result.Strategy = ports.StrategyHybrid
		result.RecommendedBackends = c.hybridBackends(sig)
		cloud := len(result.RecommendedBackends) - 1
		result.EstimatedCost = float64(cloud) * costPerCloudAgent
		result.EstimatedLatency = hybridLatency
	}

	return result
}

// hybridBackends picks the local backend plus 1-2 remote partners.
func (c *Classifier) hybridBackends(sig signals) []string {
	backends := []string{c.roster.Local}
	if sig.RequiresRealtime && c.roster.Realtime != "" {
		return append(backends, c.roster.Realtime)
	}
	if len(c.roster.Cloud) > 0 {
		backends = append(backends, c.roster.Cloud[0])
	}
	if sig.RequiresCodeGen && len(c.roster.Cloud) > 1 {
		backends = append(backends, c.roster.Cloud[1])
	}
	return backends
}

// fanoutBackends returns the full roster: local, every cloud backend, and
// the realtime backend when it is not already listed.
func (c *Classifier) fanoutBackends() []string {
	backends := make([]string, 0, len(c.roster.Cloud)+2)
	backends = append(backends, c.roster.Local)
	backends = append(backends, c.roster.Cloud...)
	if c.roster.Realtime != "" && !contains(backends, c.roster.Realtime) {
		backends = append(backends, c.roster.Realtime)
	}
	return backends
}

// confidence starts at 0.7 and is boosted when signals are unambiguous,
// capped at 0.99.
func confidence(sig signals) float64 {
	conf := 0.7
	if sig.Complexity == ports.ComplexitySimple && sig.CanHandleLocally {
		conf += 0.2
	}
	if sig.Complexity == ports.ComplexityComplex && sig.BenefitsFromMultiple {
		conf += 0.15
	}
	if conf > 0.99 {
		conf = 0.99
	}
	return conf
}

func heuristicCacheKey(query ports.Query) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%t|%f|%d",
		query.Text, query.Preferences.PreferLocal, query.Preferences.MaxCost, query.Preferences.MaxLatency)))
	return hex.EncodeToString(sum[:16])
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
