package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

type fakeModels struct {
	calls   int
	configs []*genai.EmbedContentConfig
	short   bool
	err     error
}

func (f *fakeModels) EmbedContent(_ context.Context, _ string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.calls++
	f.configs = append(f.configs, config)
	if f.err != nil {
		return nil, f.err
	}

	resp := &genai.EmbedContentResponse{}
	for _, c := range contents {
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{
			Values: []float32{0, float32(len(c.Parts[0].Text))},
		})
	}
	if f.short {
		resp.Embeddings = resp.Embeddings[:len(resp.Embeddings)-1]
	}
	return resp, nil
}

func TestEmbedder(t *testing.T) {
	models := &fakeModels{}
	e := newEmbedder(models, Options{Dimension: 2, BatchSize: 2}, nil)

	vectors, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if models.calls != 2 {
		t.Fatalf("expected 2 batches, got %d", models.calls)
	}
	if got := *models.configs[0].OutputDimensionality; got != 2 {
		t.Fatalf("expected output dimensionality 2, got %d", got)
	}
	if len(vectors) != 3 || vectors[2][1] != 1 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
	if e.Model() != DefaultModel {
		t.Fatalf("unexpected model: %s", e.Model())
	}
}

func TestEmbedderErrors(t *testing.T) {
	e := newEmbedder(&fakeModels{short: true}, Options{Dimension: 2}, nil)
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error for missing vectors")
	}

	e = newEmbedder(&fakeModels{err: errors.New("quota")}, Options{Dimension: 2}, nil)
	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected api error")
	}
}
