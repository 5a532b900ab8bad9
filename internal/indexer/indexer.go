package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/interview-brain/internal/chunker"
	"github.com/spigell/interview-brain/internal/content"
	"github.com/spigell/interview-brain/internal/embedding"
	"github.com/spigell/interview-brain/internal/vectorstore"
)

// Status describes what is currently indexed.
type Status struct {
	Documents   int               `json:"documents"`
	Chunks      int               `json:"chunks"`
	LastIndexed time.Time         `json:"last_indexed"`
	Checksums   map[string]string `json:"checksums"`
}

// Result summarizes a single indexing pass.
type Result struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Removed int `json:"removed"`
	Chunks  int `json:"chunks"`
}

type entry struct {
	checksum string
	chunks   int
}

// Indexer chunks documents, embeds the chunks and writes them to a vector store.
// A document is re-indexed only when its checksum changes.
type Indexer struct {
	window   *chunker.Window
	embedder embedding.Embedder
	store    vectorstore.Store
	logger   *zap.Logger
	newID    func() string

	mu          sync.Mutex
	ready       bool
	docs        map[string]entry
	lastIndexed time.Time
}

func New(window *chunker.Window, embedder embedding.Embedder, store vectorstore.Store, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		window:   window,
		embedder: embedder,
		store:    store,
		logger:   logger,
		newID:    uuid.NewString,
		docs:     make(map[string]entry),
	}
}

// Checksum identifies the indexed form of a document.
func Checksum(doc content.Document) string {
	h := sha256.New()
	for _, part := range []string{doc.ID, string(doc.Type), doc.Role, doc.CandidateName, doc.Text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Index brings the vector store in line with docs. Unchanged documents are skipped,
// every other document has its stored points deleted before it is written, and documents that are no
// longer present are removed. Calls are serialized.
func (ix *Indexer) Index(ctx context.Context, docs []content.Document) (Result, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var res Result

	if !ix.ready {
		if err := ix.store.EnsureCollection(ctx, ix.embedder.Dimension()); err != nil {
			return res, fmt.Errorf("ensure collection: %w", err)
		}
		ix.ready = true
	}

	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		seen[doc.ID] = true
		sum := Checksum(doc)

		prev, known := ix.docs[doc.ID]
		if known && prev.checksum == sum {
			res.Skipped++
			continue
		}

		// Points written by an earlier process are unknown here but may still be stored.
		if err := ix.store.DeleteByDocument(ctx, doc.ID); err != nil {
			return res, fmt.Errorf("remove stale chunks of %s: %w", doc.ID, err)
		}
		delete(ix.docs, doc.ID)

		n, err := ix.indexDocument(ctx, doc)
		if err != nil {
			return res, fmt.Errorf("index %s: %w", doc.ID, err)
		}

		ix.docs[doc.ID] = entry{checksum: sum, chunks: n}
		res.Indexed++
		res.Chunks += n

		ix.logger.Info("document indexed",
			zap.String("doc_id", doc.ID),
			zap.String("dtype", string(doc.Type)),
			zap.Int("chunks", n),
		)
	}

	for _, id := range ix.sortedIDs() {
		if seen[id] {
			continue
		}
		if err := ix.store.DeleteByDocument(ctx, id); err != nil {
			return res, fmt.Errorf("remove %s: %w", id, err)
		}
		delete(ix.docs, id)
		res.Removed++
	}

	if res.Indexed > 0 || res.Removed > 0 {
		ix.lastIndexed = time.Now()
	}

	return res, nil
}

func (ix *Indexer) indexDocument(ctx context.Context, doc content.Document) (int, error) {
	chunks := ix.window.Split(doc.Text)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if err := embedding.CheckVectors(vectors, len(texts), ix.embedder.Dimension()); err != nil {
		return 0, err
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		payload := map[string]any{
			vectorstore.KeyDocID:    doc.ID,
			vectorstore.KeyChunkIdx: c.Index,
			vectorstore.KeyText:     c.Text,
			vectorstore.KeyDType:    string(doc.Type),
			vectorstore.KeyRole:     doc.Role,
		}
		if doc.CandidateName != "" {
			payload[vectorstore.KeyCandidateName] = doc.CandidateName
		}
		points[i] = vectorstore.Point{
			ID:      ix.newID(),
			Vector:  vectors[i],
			Payload: payload,
		}
	}

	if err := ix.store.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("upsert chunks: %w", err)
	}

	return len(points), nil
}

func (ix *Indexer) sortedIDs() []string {
	ids := make([]string, 0, len(ix.docs))
	for id := range ix.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Status returns a snapshot of the index state.
func (ix *Indexer) Status() Status {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	st := Status{
		Documents:   len(ix.docs),
		LastIndexed: ix.lastIndexed,
		Checksums:   make(map[string]string, len(ix.docs)),
	}
	for id, e := range ix.docs {
		st.Chunks += e.chunks
		st.Checksums[id] = e.checksum
	}
	return st
}
