// Package config loads the process configuration from a YAML file and
// CONCLAVE_* environment variables. Every tunable defaults to the values
// the orchestration core was tuned with, so an empty file is a valid
// configuration.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend kinds.
const (
	KindOllama = "ollama"
	KindOpenAI = "openai"
	KindMock   = "mock"
)

// Config is the full process configuration.
type Config struct {
	Scope      string           `mapstructure:"scope"`
	LogLevel   string           `mapstructure:"log_level"`
	LedgerPath string           `mapstructure:"ledger_path"`
	Corpus     CorpusConfig     `mapstructure:"corpus"`
	Triage     TriageConfig     `mapstructure:"triage"`
	Relevance  RelevanceConfig  `mapstructure:"relevance"`
	Allocation AllocationConfig `mapstructure:"allocation"`
	Roster     RosterConfig     `mapstructure:"roster"`
	Backends   []BackendConfig  `mapstructure:"backends"`
}

// CorpusConfig locates the knowledge corpus.
type CorpusConfig struct {
	Dir           string `mapstructure:"dir"`
	MaxCandidates int    `mapstructure:"max_candidates"`
}

// TriageConfig holds the classifier's length thresholds.
type TriageConfig struct {
	SimpleMaxLen  int `mapstructure:"simple_max_len"`
	ComplexMinLen int `mapstructure:"complex_min_len"`
}

// RelevanceConfig holds the scoring weights.
type RelevanceConfig struct {
	ExplicitMention float64 `mapstructure:"explicit_mention"`
	PathMention     float64 `mapstructure:"path_mention"`
	RepoMention     float64 `mapstructure:"repo_mention"`
	KeywordMatch    float64 `mapstructure:"keyword_match"`
	TagMatch        float64 `mapstructure:"tag_match"`
	RecencyBonus    float64 `mapstructure:"recency_bonus"`
}

// AllocationConfig holds the token budget split.
type AllocationConfig struct {
	Conversation float64 `mapstructure:"conversation"`
	Context      float64 `mapstructure:"context"`
	Response     float64 `mapstructure:"response"`
}

// RosterConfig names the backends per routing role.
type RosterConfig struct {
	Local    string   `mapstructure:"local"`
	Realtime string   `mapstructure:"realtime"`
	Cloud    []string `mapstructure:"cloud"`
}

// BackendConfig describes one agent backend.
type BackendConfig struct {
	ID          string        `mapstructure:"id"`
	Kind        string        `mapstructure:"kind"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	TokenLimit  int           `mapstructure:"token_limit"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CostPerCall float64       `mapstructure:"cost_per_call"`
}

// Load reads the configuration. path may be empty, in which case
// conclave.yaml is searched in the working directory and $HOME.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("conclave")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}
	v.SetEnvPrefix("CONCLAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine when no explicit path was given.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scope", "default")
	v.SetDefault("log_level", "info")
	v.SetDefault("ledger_path", "conclave-ledger.db")
	v.SetDefault("corpus.max_candidates", 50)
	v.SetDefault("triage.simple_max_len", 200)
	v.SetDefault("triage.complex_min_len", 500)
	v.SetDefault("relevance.explicit_mention", 10.0)
	v.SetDefault("relevance.path_mention", 8.0)
	v.SetDefault("relevance.repo_mention", 5.0)
	v.SetDefault("relevance.keyword_match", 3.0)
	v.SetDefault("relevance.tag_match", 2.0)
	v.SetDefault("relevance.recency_bonus", 1.5)
	v.SetDefault("allocation.conversation", 0.40)
	v.SetDefault("allocation.context", 0.45)
	v.SetDefault("allocation.response", 0.15)
	v.SetDefault("roster.local", "muse-local")
	v.SetDefault("roster.realtime", "")
	v.SetDefault("roster.cloud", []string{})
}

// Validate rejects configurations the router cannot run with.
func (c *Config) Validate() error {
	if c.Roster.Local == "" {
		return fmt.Errorf("roster.local is required")
	}

	sum := c.Allocation.Conversation + c.Allocation.Context + c.Allocation.Response
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("allocation fractions must sum to 1.0, got %.2f", sum)
	}

	seen := make(map[string]bool, len(c.Backends))
	for i, b := range c.Backends {
		if b.ID == "" {
			return fmt.Errorf("backends[%d]: id is required", i)
		}
		if seen[b.ID] {
			return fmt.Errorf("backends[%d]: duplicate id %q", i, b.ID)
		}
		seen[b.ID] = true
		switch b.Kind {
		case KindOllama, KindOpenAI, KindMock:
		default:
			return fmt.Errorf("backends[%d]: unknown kind %q", i, b.Kind)
		}
		if b.Kind != KindMock && b.Model == "" {
			return fmt.Errorf("backends[%d]: model is required for kind %s", i, b.Kind)
		}
	}

	for _, name := range c.rosterNames() {
		if name != "" && len(c.Backends) > 0 && !seen[name] {
			return fmt.Errorf("roster references unknown backend %q", name)
		}
	}
	return nil
}

func (c *Config) rosterNames() []string {
	names := []string{c.Roster.Local, c.Roster.Realtime}
	return append(names, c.Roster.Cloud...)
}
