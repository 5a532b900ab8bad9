package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-brain/internal/vectorstore"
)

const (
	DefaultCollection = "interview_docs"
	defaultTimeout    = 15 * time.Second
	contentType       = "application/json"
	distance          = "Cosine"
)

var errNotFound = errors.New("not found")

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Client talks to the Qdrant REST API for a single collection.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	logger     *zap.Logger
	HTTPClient *http.Client
}

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("qdrant url is required")
	}

	collection := strings.TrimSpace(cfg.Collection)
	if collection == "" {
		collection = DefaultCollection
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    base,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		collection: collection,
		logger:     logger,
		HTTPClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Collection() string { return c.collection }

type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// EnsureCollection creates the collection with cosine distance when it is absent.
// An existing collection with another vector size is reported as an error.
func (c *Client) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	var info collectionInfo
	err := c.do(ctx, http.MethodGet, c.collectionPath(""), nil, &info)
	switch {
	case err == nil:
		size := info.Result.Config.Params.Vectors.Size
		if size != 0 && size != dimension {
			return fmt.Errorf("collection %s has size %d, embedder produces %d: %w", c.collection, size, dimension, vectorstore.ErrDimensionMismatch)
		}
		return nil
	case !errors.Is(err, errNotFound):
		return fmt.Errorf("get collection %s: %w", c.collection, err)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": distance,
		},
	}
	if err := c.do(ctx, http.MethodPut, c.collectionPath(""), body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", c.collection, err)
	}

	c.logger.Info("created qdrant collection",
		zap.String("collection", c.collection),
		zap.Int("dimension", dimension),
	)
	return nil
}

func (c *Client) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}

	items := make([]map[string]any, len(points))
	for i, p := range points {
		items[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}

	if err := c.do(ctx, http.MethodPut, c.collectionPath("/points?wait=true"), map[string]any{"points": items}, nil); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, vector []float32, limit int, filter vectorstore.Filter) ([]vectorstore.Hit, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if len(filter) > 0 {
		body["filter"] = buildFilter(filter)
	}

	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, c.collectionPath("/points/search"), body, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]vectorstore.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, vectorstore.Hit{
			ID:      fmt.Sprint(r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return hits, nil
}

func (c *Client) DeleteByDocument(ctx context.Context, docID string) error {
	body := map[string]any{
		"filter": buildFilter(vectorstore.Filter{vectorstore.KeyDocID: docID}),
	}
	if err := c.do(ctx, http.MethodPost, c.collectionPath("/points/delete?wait=true"), body, nil); err != nil {
		return fmt.Errorf("delete points of %s: %w", docID, err)
	}
	return nil
}

// buildFilter renders equality constraints as a Qdrant "must" filter.
func buildFilter(filter vectorstore.Filter) map[string]any {
	must := make([]map[string]any, 0, len(filter))
	for _, key := range filter.Keys() {
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": filter[key]},
		})
	}
	return map[string]any{"must": must}
}

func (c *Client) collectionPath(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", c.baseURL, url.PathEscape(c.collection), suffix)
}

func (c *Client) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	c.logger.Debug("make request", zap.String("method", method), zap.String("url", target))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("bad status: %s: %s", resp.Status, statusError(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(data []byte) string {
	var body struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Status.Error != "" {
		return body.Status.Error
	}
	return strings.TrimSpace(string(data))
}
