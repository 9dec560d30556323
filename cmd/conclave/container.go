package main

import (
	"fmt"

	"conclave/internal/assembler"
	"conclave/internal/backend"
	"conclave/internal/config"
	"conclave/internal/corpus"
	"conclave/internal/dispatch"
	"conclave/internal/events"
	"conclave/internal/ledger"
	"conclave/internal/ledger/sqlitestore"
	"conclave/internal/ports"
	"conclave/internal/relevance"
	"conclave/internal/router"
	"conclave/internal/shared/logging"
	"conclave/internal/synthesis"
	"conclave/internal/triage"
)

// Container holds the wired application, constructed once at startup.
type Container struct {
	Config      *config.Config
	Logger      logging.Logger
	Router      *router.Router
	Broadcaster *events.Broadcaster

	store *sqlitestore.Store
}

// buildContainer loads configuration and wires every component.
func buildContainer(configPath string) (*Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.NewFileLogger("conclave", logging.ParseLevel(cfg.LogLevel))

	registry := backend.NewRegistry()
	var classify ports.ClassifyBackend
	for _, b := range cfg.Backends {
		var agent ports.AgentBackend
		switch b.Kind {
		case config.KindOllama:
			ollama := backend.NewOllamaBackend(backend.OllamaConfig{
				ID:      b.ID,
				Model:   b.Model,
				BaseURL: b.BaseURL,
				Timeout: b.Timeout,
			}, logger)
			agent = ollama
			// The local model doubles as the triage and synthesis backend.
			if b.ID == cfg.Roster.Local {
				classify = ollama
			}
		case config.KindOpenAI:
			agent = backend.NewOpenAIBackend(backend.OpenAIConfig{
				ID:      b.ID,
				Model:   b.Model,
				APIKey:  b.APIKey,
				BaseURL: b.BaseURL,
			}, logger)
		case config.KindMock:
			agent = backend.NewMockBackend(b.ID, "")
		default:
			return nil, fmt.Errorf("unknown backend kind %q", b.Kind)
		}
		err := registry.Register(backend.Entry{
			Backend:     agent,
			TokenLimit:  b.TokenLimit,
			Timeout:     b.Timeout,
			CostPerCall: b.CostPerCall,
		})
		if err != nil {
			return nil, fmt.Errorf("register backend %s: %w", b.ID, err)
		}
	}

	var knowledge ports.CorpusAccessor
	if cfg.Corpus.Dir != "" {
		knowledge, err = corpus.NewFSCorpus(cfg.Corpus.Dir, cfg.Corpus.MaxCandidates)
		if err != nil {
			return nil, fmt.Errorf("open corpus: %w", err)
		}
	} else {
		knowledge = corpus.NewMemoryCorpus(cfg.Corpus.MaxCandidates)
	}

	store, err := sqlitestore.Open(cfg.LedgerPath)
	if err != nil {
		return nil, err
	}

	scorer := relevance.NewScorer(relevance.Weights{
		ExplicitMention: cfg.Relevance.ExplicitMention,
		FilePathMention: cfg.Relevance.PathMention,
		RepoMention:     cfg.Relevance.RepoMention,
		KeywordMatch:    cfg.Relevance.KeywordMatch,
		TagMatch:        cfg.Relevance.TagMatch,
		RecentAccess:    cfg.Relevance.RecencyBonus,
	})
	allocation := assembler.Allocation{
		Conversation: cfg.Allocation.Conversation,
		Context:      cfg.Allocation.Context,
		Response:     cfg.Allocation.Response,
	}
	roster := triage.Roster{
		Local:    cfg.Roster.Local,
		Realtime: cfg.Roster.Realtime,
		Cloud:    cfg.Roster.Cloud,
	}
	thresholds := triage.Thresholds{
		SimpleMaxLen:  cfg.Triage.SimpleMaxLen,
		ComplexMinLen: cfg.Triage.ComplexMinLen,
	}

	broadcaster := events.NewBroadcaster(logger)
	orchestrator := router.New(router.Deps{
		Classifier:  triage.New(classify, roster, thresholds, logger),
		Assembler:   assembler.New(knowledge, scorer, allocation, logger),
		Dispatcher:  dispatch.New(registry, broadcaster, logger),
		Synthesizer: synthesis.New(classify, logger),
		Recorder:    ledger.NewRecorder(store, logger),
		Registry:    registry,
		Logger:      logger,
	})

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Router:      orchestrator,
		Broadcaster: broadcaster,
		store:       store,
	}, nil
}

// Cleanup releases held resources.
func (c *Container) Cleanup() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
