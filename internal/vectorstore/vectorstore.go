package vectorstore

import (
	"context"
	"errors"
	"sort"
)

// Payload keys written by the indexer and read back by the retriever.
const (
	KeyDocID         = "doc_id"
	KeyChunkIdx      = "chunk_idx"
	KeyText          = "text"
	KeyDType         = "dtype"
	KeyRole          = "role"
	KeyCandidateName = "candidate_name"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Point is a vector with its payload. ID must be unique within the collection.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Hit is a single similarity search match.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Filter is an AND of payload equality constraints.
type Filter map[string]any

// Keys returns the filter keys in a stable order.
func (f Filter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Store is a vector index with cosine similarity.
type Store interface {
	// EnsureCollection creates the collection with the given dimension when it does not exist.
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []Point) error
	// Search returns at most limit hits ordered by score descending.
	Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]Hit, error)
	// DeleteByDocument removes every point whose doc_id payload equals docID.
	DeleteByDocument(ctx context.Context, docID string) error
}
