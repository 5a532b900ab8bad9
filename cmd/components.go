package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/spigell/interview-brain/internal/ai"
	aigemini "github.com/spigell/interview-brain/internal/ai/gemini"
	aiopenai "github.com/spigell/interview-brain/internal/ai/openai"
	"github.com/spigell/interview-brain/internal/chunker"
	"github.com/spigell/interview-brain/internal/content"
	"github.com/spigell/interview-brain/internal/embedding"
	embgemini "github.com/spigell/interview-brain/internal/embedding/gemini"
	"github.com/spigell/interview-brain/internal/embedding/hashing"
	embopenai "github.com/spigell/interview-brain/internal/embedding/openai"
	"github.com/spigell/interview-brain/internal/embedding/rediscache"
	"github.com/spigell/interview-brain/internal/grounding"
	"github.com/spigell/interview-brain/internal/indexer"
	"github.com/spigell/interview-brain/internal/interview"
	"github.com/spigell/interview-brain/internal/retrieval"
	"github.com/spigell/interview-brain/internal/secrets"
	"github.com/spigell/interview-brain/internal/vectorstore"
	"github.com/spigell/interview-brain/internal/vectorstore/memory"
	"github.com/spigell/interview-brain/internal/vectorstore/qdrant"
)

// components is the wired object graph shared by all commands.
type components struct {
	content      *content.Store
	orchestrator *interview.Orchestrator
	registry     *prometheus.Registry
}

func buildComponents(ctx context.Context, cfg *Config, logger *zap.Logger) (*components, error) {
	store, err := loadContent(cfg.Content)
	if err != nil {
		return nil, err
	}
	logger.Info("content loaded", zap.Int("documents", store.Len()), zap.Strings("roles", store.Roles()))

	embedder, err := newEmbedder(ctx, cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	vectors, err := newVectorStore(cfg.VectorStore, logger)
	if err != nil {
		return nil, fmt.Errorf("building vector store: %w", err)
	}

	window, err := chunker.NewWindow(cfg.Indexer.ChunkSize, cfg.Indexer.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	completer, err := newCompleter(ctx, cfg.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("building ai completer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	policy := grounding.Policy(cfg.Interview.Grounding)
	chain := grounding.ForPolicy(policy, logger.Named("grounding"))
	for _, status := range grounding.Describe(chain.Checks()) {
		logger.Debug("grounding check", zap.String("check", status.Name), zap.Bool("enabled", status.Enabled), zap.String("reason", status.Reason))
	}

	orchestrator, err := interview.NewOrchestrator(interview.Config{
		Content:       store,
		Indexer:       indexer.New(window, embedder, vectors, logger.Named("indexer")),
		Retriever:     retrieval.NewRetriever(embedder, vectors, cfg.Interview.PerQueryLimit, cfg.Interview.TopK, logger.Named("retrieval")),
		Questioner:    ai.NewQuestioner(completer, logger.Named("questioner"), cfg.AI.MaxLogLength),
		Validator:     chain,
		Store:         interview.NewMemoryStore(),
		CallTimeout:   cfg.Interview.CallTimeout,
		HistoryWindow: cfg.Interview.HistoryWindow,
		Registerer:    registry,
	}, logger.Named("interview"))
	if err != nil {
		return nil, err
	}

	return &components{content: store, orchestrator: orchestrator, registry: registry}, nil
}

func loadContent(cfg *ContentConfig) (*content.Store, error) {
	if cfg == nil || cfg.File == "" {
		return content.Default(), nil
	}
	store, err := content.LoadFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return store, nil
}

func newEmbedder(ctx context.Context, cfg *EmbeddingConfig, logger *zap.Logger) (embedding.Embedder, error) {
	var (
		base embedding.Embedder
		err  error
	)

	switch cfg.Provider {
	case "hashing":
		base = hashing.New(cfg.Dimension)
	case "gemini":
		var key string
		key, err = secrets.Load(providerSecret("gemini api key", cfg.Gemini, "GEMINI_API_KEY"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		base, err = embgemini.New(ctx, embgemini.Options{
			APIKey:    key,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			BatchSize: cfg.BatchSize,
		}, logger.Named("embedding"))
	default:
		var key string
		key, err = secrets.Load(providerSecret("openai api key", cfg.OpenAI, "OPENAI_API_KEY"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		opts := embopenai.Options{
			APIKey:    key,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			BatchSize: cfg.BatchSize,
		}
		if cfg.OpenAI != nil {
			opts.BaseURL = cfg.OpenAI.BaseURL
		}
		base, err = embopenai.New(opts, logger.Named("embedding"))
	}
	if err != nil {
		return nil, err
	}

	switch cfg.Cache.Backend {
	case "none":
		return base, nil
	case "redis":
		r := cfg.Cache.Redis
		password, err := secrets.Load(secrets.Source{Name: "redis password", Value: r.Password, File: r.PasswordFile, Optional: true})
		if err != nil {
			return nil, err
		}
		cache, err := rediscache.New(ctx, rediscache.Options{Addr: r.Addr, Password: password, DB: r.DB, TTL: r.TTL})
		if err != nil {
			return nil, err
		}
		return embedding.NewCached(base, cache, logger.Named("embedding-cache")), nil
	default:
		return embedding.NewCached(base, embedding.NewMemoryCache(cfg.Cache.MaxEntries), logger.Named("embedding-cache")), nil
	}
}

func newVectorStore(cfg *VectorStoreConfig, logger *zap.Logger) (vectorstore.Store, error) {
	if cfg.Backend == "memory" {
		return memory.New(), nil
	}

	q := cfg.Qdrant
	apiKey, err := secrets.Load(secrets.Source{
		Name:     "qdrant api key",
		Value:    q.APIKey,
		File:     q.APIKeyFile,
		Env:      "QDRANT_API_KEY",
		Optional: true,
	})
	if err != nil {
		return nil, err
	}

	return qdrant.New(qdrant.Config{
		URL:        q.URL,
		APIKey:     apiKey,
		Collection: q.Collection,
		Timeout:    q.Timeout,
	}, logger.Named("qdrant"))
}

func newCompleter(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Completer, error) {
	switch cfg.Provider {
	case "gemini":
		key, err := secrets.Load(providerSecret("gemini api key", cfg.Gemini, "GEMINI_API_KEY"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		opts := aigemini.Options{APIKey: key}
		if cfg.Gemini != nil {
			opts.Model = cfg.Gemini.Model
			opts.MaxRetries = cfg.Gemini.MaxRetries
		}
		return aigemini.NewGenerator(ctx, opts, logger.Named("gemini"))
	default:
		key, err := secrets.Load(providerSecret("openai api key", cfg.OpenAI, "OPENAI_API_KEY"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		opts := aiopenai.Options{APIKey: key}
		if cfg.OpenAI != nil {
			opts.BaseURL = cfg.OpenAI.BaseURL
			opts.Model = cfg.OpenAI.Model
			opts.MaxTokens = cfg.OpenAI.MaxTokens
			opts.MaxRetries = cfg.OpenAI.MaxRetries
		}
		return aiopenai.New(opts, logger.Named("openai"))
	}
}

// providerSecret accepts either provider config type.
func providerSecret(name string, cfg any, env string) secrets.Source {
	src := secrets.Source{Name: name, Env: env}
	switch c := cfg.(type) {
	case *OpenAIConfig:
		if c != nil {
			src.Value, src.File = c.APIKey, c.APIKeyFile
		}
	case *GeminiConfig:
		if c != nil {
			src.Value, src.File = c.APIKey, c.APIKeyFile
		}
	}
	return src
}
