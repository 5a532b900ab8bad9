package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spigell/interview-brain/internal/vectorstore"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	apiKey string
	body   map[string]any
}

type fakeQdrant struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r recordedRequest)
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	rec := recordedRequest{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.RawQuery,
		apiKey: r.Header.Get("api-key"),
	}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &rec.body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	f.handler(w, rec)
}

func newClient(t *testing.T, handler func(w http.ResponseWriter, r recordedRequest)) (*Client, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL + "/", APIKey: "secret", Collection: "docs"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c, fake
}

func TestEnsureCollectionCreatesMissing(t *testing.T) {
	c, fake := newClient(t, func(w http.ResponseWriter, r recordedRequest) {
		if r.method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":{"error":"Not found: Collection docs doesn't exist!"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
	})

	if err := c.EnsureCollection(context.Background(), 3072); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fake.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(fake.requests))
	}

	create := fake.requests[1]
	if create.method != http.MethodPut || create.path != "/collections/docs" {
		t.Fatalf("unexpected create request: %s %s", create.method, create.path)
	}
	if create.apiKey != "secret" {
		t.Fatalf("expected api-key header, got %q", create.apiKey)
	}

	vectors := create.body["vectors"].(map[string]any)
	if vectors["size"].(float64) != 3072 || vectors["distance"] != "Cosine" {
		t.Fatalf("unexpected vectors config: %v", vectors)
	}
}

func TestEnsureCollectionChecksExistingSize(t *testing.T) {
	c, fake := newClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		_, _ = w.Write([]byte(`{"result":{"config":{"params":{"vectors":{"size":768,"distance":"Cosine"}}}}}`))
	})

	if err := c.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.requests) != 1 {
		t.Fatalf("existing collection must not be recreated, got %d requests", len(fake.requests))
	}

	if err := c.EnsureCollection(context.Background(), 3072); !errors.Is(err, vectorstore.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestUpsertAndSearch(t *testing.T) {
	c, fake := newClient(t, func(w http.ResponseWriter, r recordedRequest) {
		if r.path == "/collections/docs/points/search" {
			_, _ = w.Write([]byte(`{"result":[
				{"id":"a","score":0.9,"payload":{"doc_id":"rubric::x","chunk_idx":0,"text":"t","dtype":"rubric"}},
				{"id":"b","score":0.5,"payload":{"doc_id":"resume::y::x","chunk_idx":2,"text":"u","dtype":"resume"}}
			]}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	})
	ctx := context.Background()

	err := c.Upsert(ctx, []vectorstore.Point{{
		ID:      "a",
		Vector:  []float32{0.1, 0.2},
		Payload: map[string]any{"doc_id": "rubric::x"},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	upsert := fake.requests[0]
	if upsert.method != http.MethodPut || upsert.path != "/collections/docs/points" || upsert.query != "wait=true" {
		t.Fatalf("unexpected upsert request: %s %s?%s", upsert.method, upsert.path, upsert.query)
	}
	points := upsert.body["points"].([]any)
	if len(points) != 1 || points[0].(map[string]any)["id"] != "a" {
		t.Fatalf("unexpected points: %v", points)
	}

	hits, err := c.Search(ctx, []float32{0.1, 0.2}, 6, vectorstore.Filter{"role": "x", "dtype": "rubric"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 || hits[0].Score != 0.9 || hits[1].Payload["doc_id"] != "resume::y::x" {
		t.Fatalf("unexpected hits: %+v", hits)
	}

	search := fake.requests[1]
	if search.body["limit"].(float64) != 6 || search.body["with_payload"] != true {
		t.Fatalf("unexpected search body: %v", search.body)
	}
	must := search.body["filter"].(map[string]any)["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("expected 2 conditions, got %v", must)
	}
	first := must[0].(map[string]any)
	if first["key"] != "dtype" || first["match"].(map[string]any)["value"] != "rubric" {
		t.Fatalf("conditions must be sorted by key: %v", must)
	}
}

func TestSearchWithoutFilterOmitsIt(t *testing.T) {
	c, fake := newClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		_, _ = w.Write([]byte(`{"result":[]}`))
	})

	if _, err := c.Search(context.Background(), []float32{1}, 3, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := fake.requests[0].body["filter"]; ok {
		t.Fatal("empty filter must not be sent")
	}
}

func TestDeleteByDocument(t *testing.T) {
	c, fake := newClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	})

	if err := c.DeleteByDocument(context.Background(), "rubric::x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := fake.requests[0]
	if req.method != http.MethodPost || req.path != "/collections/docs/points/delete" {
		t.Fatalf("unexpected request: %s %s", req.method, req.path)
	}
	must := req.body["filter"].(map[string]any)["must"].([]any)
	cond := must[0].(map[string]any)
	if cond["key"] != "doc_id" || cond["match"].(map[string]any)["value"] != "rubric::x" {
		t.Fatalf("unexpected filter: %v", cond)
	}
}

func TestErrorStatusIsReported(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":{"error":"Wrong input: vector dimension error"}}`))
	})

	err := c.Upsert(context.Background(), []vectorstore.Point{{ID: "a", Vector: []float32{1}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "Wrong input: vector dimension error"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected qdrant error message in %q", err.Error())
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("expected error without url")
	}
	c, err := New(Config{URL: "http://localhost:6333"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Collection() != DefaultCollection {
		t.Fatalf("unexpected default collection: %s", c.Collection())
	}
}
