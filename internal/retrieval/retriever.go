package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/interview-brain/internal/embedding"
	"github.com/spigell/interview-brain/internal/vectorstore"
)

const (
	DefaultPerQueryLimit = 6
	DefaultTopK          = 6
	defaultDType         = "doc"
)

// Snippet is a retrieved chunk. Payload keys other than doc_id, chunk_idx and text end up in Meta.
type Snippet struct {
	Score    float64        `mapstructure:"-" json:"score"`
	DocID    string         `mapstructure:"doc_id" json:"doc_id"`
	ChunkIdx int            `mapstructure:"chunk_idx" json:"chunk_idx"`
	Text     string         `mapstructure:"text" json:"text"`
	Meta     map[string]any `mapstructure:",remain" json:"meta,omitempty"`
}

// DType returns the document type stored with the chunk, "doc" when missing.
func (s Snippet) DType() string {
	if v, ok := s.Meta[vectorstore.KeyDType].(string); ok && v != "" {
		return v
	}
	return defaultDType
}

// Citation returns the tag that identifies this chunk.
func (s Snippet) Citation() string {
	return Citation(s.DType(), s.DocID, s.ChunkIdx)
}

// Citation formats a citation tag as <dtype>:<doc_id>#c<chunk_idx>.
func Citation(dtype, docID string, chunkIdx int) string {
	return fmt.Sprintf("%s:%s#c%d", dtype, docID, chunkIdx)
}

// Result holds the ranked snippets and their citation tags, index-aligned.
type Result struct {
	Snippets  []Snippet `json:"snippets"`
	Citations []string  `json:"citations"`
}

// Retriever runs a query bundle against the vector store and merges the hits.
type Retriever struct {
	embedder embedding.Embedder
	store    vectorstore.Store
	perQuery int
	topK     int
	logger   *zap.Logger
}

func NewRetriever(embedder embedding.Embedder, store vectorstore.Store, perQuery, topK int, logger *zap.Logger) *Retriever {
	if perQuery <= 0 {
		perQuery = DefaultPerQueryLimit
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		perQuery: perQuery,
		topK:     topK,
		logger:   logger,
	}
}

type chunkKey struct {
	docID string
	idx   int
}

// Retrieve searches every query with the filter, pools hits in query order, drops repeated
// (doc_id, chunk_idx) pairs keeping the first, ranks by score with ties kept in pool order
// and returns the top results.
func (r *Retriever) Retrieve(ctx context.Context, queries []string, filter vectorstore.Filter) (Result, error) {
	if len(queries) == 0 {
		return Result{Snippets: []Snippet{}, Citations: []string{}}, nil
	}

	vectors, err := r.embedder.Embed(ctx, queries)
	if err != nil {
		return Result{}, fmt.Errorf("embed queries: %w", err)
	}
	if len(vectors) != len(queries) {
		return Result{}, errors.New("embedder returned a different number of vectors than queries")
	}

	perQuery := make([][]vectorstore.Hit, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i := range queries {
		g.Go(func() error {
			hits, err := r.store.Search(gctx, vectors[i], r.perQuery, filter)
			if err != nil {
				return fmt.Errorf("search query %d: %w", i, err)
			}
			perQuery[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	seen := make(map[chunkKey]bool)
	pool := make([]Snippet, 0, len(queries)*r.perQuery)
	for _, hits := range perQuery {
		for _, hit := range hits {
			snippet, err := decodeSnippet(hit)
			if err != nil {
				r.logger.Warn("skipping malformed hit", zap.String("point_id", hit.ID), zap.Error(err))
				continue
			}
			key := chunkKey{docID: snippet.DocID, idx: snippet.ChunkIdx}
			if seen[key] {
				continue
			}
			seen[key] = true
			pool = append(pool, snippet)
		}
	}

	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Score > pool[j].Score })
	if len(pool) > r.topK {
		pool = pool[:r.topK]
	}

	citations := make([]string, len(pool))
	for i, s := range pool {
		citations[i] = s.Citation()
	}

	r.logger.Debug("retrieved snippets",
		zap.Int("queries", len(queries)),
		zap.Int("unique_hits", len(seen)),
		zap.Strings("citations", citations),
	)

	return Result{Snippets: pool, Citations: citations}, nil
}

func decodeSnippet(hit vectorstore.Hit) (Snippet, error) {
	var s Snippet
	if err := mapstructure.Decode(hit.Payload, &s); err != nil {
		return s, err
	}
	if s.DocID == "" {
		return s, errors.New("payload has no doc_id")
	}
	s.Score = hit.Score
	return s, nil
}
