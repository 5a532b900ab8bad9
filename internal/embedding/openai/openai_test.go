package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type fakeCreator struct {
	requests []openai.EmbeddingRequest
	err      error
	reverse  bool
}

func (f *fakeCreator) CreateEmbeddings(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	req := conv.(openai.EmbeddingRequest)
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.EmbeddingResponse{}, f.err
	}

	input := req.Input.([]string)
	data := make([]openai.Embedding, 0, len(input))
	for i, text := range input {
		data = append(data, openai.Embedding{Index: i, Embedding: []float32{float32(len(text)), 0, 0}})
	}
	if f.reverse {
		for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
			data[i], data[j] = data[j], data[i]
		}
	}
	return openai.EmbeddingResponse{Data: data}, nil
}

func TestEmbedderBatchesAndOrders(t *testing.T) {
	fake := &fakeCreator{reverse: true}
	e := newEmbedder(fake, Options{Model: "text-embedding-3-small", Dimension: 3, BatchSize: 2}, nil)

	vectors, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fake.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(fake.requests))
	}
	if fake.requests[0].Dimensions != 3 {
		t.Fatalf("expected custom dimensions to be requested, got %d", fake.requests[0].Dimensions)
	}
	if fake.requests[0].Model != openai.EmbeddingModel("text-embedding-3-small") {
		t.Fatalf("unexpected model: %s", fake.requests[0].Model)
	}

	// every vector is normalized, so only the first component survives as 1
	for i, v := range vectors {
		if v[0] != 1 {
			t.Fatalf("vector %d is not normalized or out of order: %v", i, v)
		}
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
}

func TestEmbedderDefaults(t *testing.T) {
	e := newEmbedder(&fakeCreator{}, Options{}, nil)
	if e.Model() != DefaultModel {
		t.Fatalf("unexpected default model: %s", e.Model())
	}
	if e.Dimension() != 3072 {
		t.Fatalf("unexpected default dimension: %d", e.Dimension())
	}
}

func TestEmbedderPropagatesErrors(t *testing.T) {
	e := newEmbedder(&fakeCreator{err: errors.New("rate limited")}, Options{Dimension: 3}, nil)
	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmbedderRejectsWrongDimension(t *testing.T) {
	e := newEmbedder(&fakeCreator{}, Options{Model: "text-embedding-3-small", Dimension: 8}, nil)
	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Options{APIKey: "  "}, nil); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
