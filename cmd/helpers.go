package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/helpdesk/internal/admin"
	"github.com/ziadkadry99/helpdesk/internal/audit"
	"github.com/ziadkadry99/helpdesk/internal/config"
	"github.com/ziadkadry99/helpdesk/internal/db"
	"github.com/ziadkadry99/helpdesk/internal/embeddings"
	"github.com/ziadkadry99/helpdesk/internal/incident"
	"github.com/ziadkadry99/helpdesk/internal/intent"
	"github.com/ziadkadry99/helpdesk/internal/kb"
	"github.com/ziadkadry99/helpdesk/internal/llm"
	"github.com/ziadkadry99/helpdesk/internal/logging"
	"github.com/ziadkadry99/helpdesk/internal/orchestrator"
	"github.com/ziadkadry99/helpdesk/internal/phrasing"
	"github.com/ziadkadry99/helpdesk/internal/session"
	"github.com/ziadkadry99/helpdesk/internal/vectordb"
)

const (
	dbFile        = "helpdesk.db"
	lexicalDims   = 256
	ollamaDims    = 0 // learned from the model
)

// app holds everything a command needs, wired from one config.
type app struct {
	cfg       *config.Config
	log       *logging.Logger
	db        *db.DB
	sessions  *session.Store
	incidents *incident.Store
	audit     *audit.Store
	kb        *kb.Service
	indexDir  string
	admin     *admin.Service
	orch      *orchestrator.Orchestrator
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `helpdesk init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.New(nil, level)
}

// createEmbedderFromConfig picks the KB embedder. With no embedding
// provider the KB runs on the local lexical embedder.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	model := cfg.EmbeddingModel
	if model == "" {
		_, model = config.DefaultModels(provider)
	}

	switch provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model), os.Getenv("OPENAI_BASE_URL")), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, ollamaDims, os.Getenv("OLLAMA_HOST")), nil
	default:
		return embeddings.NewLexicalEmbedder(lexicalDims), nil
	}
}

// createLLMProviderFromConfig returns nil, nil when the LLM is disabled.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	p, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if errors.Is(err, llm.ErrDisabled) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(p, cfg.LLMRequestsPerMin), nil
}

// openApp wires stores, the KB and the orchestrator. The caller closes
// the returned app.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := newLogger(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	database, err := db.Open(filepath.Join(cfg.DataDir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	vectors, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	kbStore := kb.NewStore(database)
	index := kb.NewIndex(vectors, kbStore, cfg.SimilarityThreshold)
	kbService := kb.NewService(kbStore, index, cfg.KBFile, logger)
	if _, err := kbService.WarmStart(ctx, indexDir(cfg, embedder)); err != nil {
		logger.Warn().Err(err).Msg("indexing knowledge base")
	}

	a := &app{
		cfg:       cfg,
		log:       logger,
		db:        database,
		sessions:  session.NewStore(database),
		incidents: incident.NewStore(database),
		audit:     audit.NewStore(database),
		kb:        kbService,
		indexDir:  indexDir(cfg, embedder),
	}
	a.admin = admin.NewService(a.incidents, kbService, a.audit, logger)

	ids := incident.NewIDGenerator()
	latest, err := a.incidents.LatestID(ctx)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("reading latest incident id: %w", err)
	}
	ids.Observe(latest)

	deps := orchestrator.Deps{
		Sessions:  a.sessions,
		Incidents: a.incidents,
		KB:        index,
		IDs:       ids,
	}
	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	if provider != nil {
		deps.Classifier = intent.NewLLMClassifier(provider)
		deps.Analyzer = intent.NewLLMAnalyzer(provider)
		if cfg.UseLLMPhrasing {
			deps.Phraser = phrasing.NewLLMPhraser(provider, logger)
		}
		logger.Info().Str("provider", provider.Name()).Msg("LLM collaborators enabled")
	} else {
		logger.Info().Msg("LLM disabled, using keyword classification")
	}

	a.orch = orchestrator.New(deps, orchestrator.Options{
		IgnorePolicy: orchestrator.IgnorePolicy(cfg.IgnorePolicy),
		Timeout:      cfg.Timeout(),
	}, logger)
	return a, nil
}

// indexDir keeps one KB index snapshot per embedder, since vectors from
// different models can't be mixed.
func indexDir(cfg *config.Config, e embeddings.Embedder) string {
	name := strings.NewReplacer("/", "_", ":", "_").Replace(e.Name())
	return filepath.Join(cfg.DataDir, "kb-index", name)
}

// Close snapshots the KB index and closes the database.
func (a *app) Close() error {
	if err := a.kb.SaveIndex(context.Background(), a.indexDir); err != nil {
		a.log.Warn().Err(err).Msg("kb index snapshot not saved")
	}
	return a.db.Close()
}
