package openai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spigell/interview-brain/internal/embedding"
)

const (
	DefaultModel     = "text-embedding-3-large"
	defaultBatchSize = 64
)

var defaultDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

type embeddingsCreator interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Embedder calls the OpenAI embeddings endpoint.
type Embedder struct {
	client    embeddingsCreator
	model     string
	dimension int
	batchSize int
	logger    *zap.Logger
}

type Options struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	BatchSize int
}

func New(opts Options, logger *zap.Logger) (*Embedder, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.BaseURL = base
	}

	return newEmbedder(openai.NewClientWithConfig(cfg), opts, logger), nil
}

func newEmbedder(client embeddingsCreator, opts Options, logger *zap.Logger) *Embedder {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	dimension := opts.Dimension
	if dimension <= 0 {
		dimension = defaultDimensions[model]
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:    client,
		model:     model,
		dimension: dimension,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for _, batch := range embedding.Batches(texts, e.batchSize) {
		req := openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.model),
		}
		// Only the text-embedding-3 family accepts a custom output size.
		if strings.HasPrefix(e.model, "text-embedding-3") && e.dimension != defaultDimensions[e.model] {
			req.Dimensions = e.dimension
		}

		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("openai embeddings: %w", err)
		}

		data := resp.Data
		sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

		if len(data) != len(batch) {
			return nil, fmt.Errorf("openai embeddings: expected %d vectors, got %d", len(batch), len(data))
		}

		for _, d := range data {
			v := d.Embedding
			embedding.Normalize(v)
			vectors = append(vectors, v)
		}

		e.logger.Debug("embedded batch",
			zap.String("model", e.model),
			zap.Int("texts", len(batch)),
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		)
	}

	if err := embedding.CheckVectors(vectors, len(texts), e.dimension); err != nil {
		return nil, err
	}

	return vectors, nil
}

func (e *Embedder) Dimension() int { return e.dimension }

func (e *Embedder) Model() string { return e.model }
