package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-brain/internal/embedding"
)

const (
	DefaultModel     = "text-embedding-004"
	defaultDimension = 768
	defaultBatchSize = 100
	taskType         = "RETRIEVAL_DOCUMENT"
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder produces embeddings with the Gemini API.
type Embedder struct {
	models    contentEmbedder
	model     string
	dimension int
	batchSize int
	logger    *zap.Logger
}

type Options struct {
	APIKey    string
	Model     string
	Dimension int
	BatchSize int
}

func New(ctx context.Context, opts Options, logger *zap.Logger) (*Embedder, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, opts, logger), nil
}

func newEmbedder(models contentEmbedder, opts Options, logger *zap.Logger) *Embedder {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	dimension := opts.Dimension
	if dimension <= 0 {
		dimension = defaultDimension
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		models:    models,
		model:     model,
		dimension: dimension,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	outputDim := int32(e.dimension)

	for _, batch := range embedding.Batches(texts, e.batchSize) {
		contents := make([]*genai.Content, 0, len(batch))
		for _, text := range batch {
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: text}},
			})
		}

		resp, err := e.models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
			TaskType:             taskType,
			OutputDimensionality: &outputDim,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini embed content: %w", err)
		}
		if resp == nil || len(resp.Embeddings) != len(batch) {
			got := 0
			if resp != nil {
				got = len(resp.Embeddings)
			}
			return nil, fmt.Errorf("gemini embed content: expected %d vectors, got %d", len(batch), got)
		}

		for i, emb := range resp.Embeddings {
			if emb == nil {
				return nil, fmt.Errorf("gemini embed content: empty embedding at %d", i)
			}
			v := append([]float32(nil), emb.Values...)
			embedding.Normalize(v)
			vectors = append(vectors, v)
		}

		e.logger.Debug("embedded batch", zap.String("model", e.model), zap.Int("texts", len(batch)))
	}

	if err := embedding.CheckVectors(vectors, len(texts), e.dimension); err != nil {
		return nil, err
	}

	return vectors, nil
}

func (e *Embedder) Dimension() int { return e.dimension }

func (e *Embedder) Model() string { return e.model }
