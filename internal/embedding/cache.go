package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"go.uber.org/zap"
)

// Cache stores vectors by key. A miss is reported with ok=false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (vector []float32, ok bool, err error)
	Set(ctx context.Context, key string, vector []float32) error
}

// CacheKey derives the cache key of a text embedded with the given model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return "embedding:" + model + ":" + hex.EncodeToString(sum[:])
}

// Cached serves repeated texts from a cache and sends only the misses to the wrapped embedder.
// Cache errors are logged and treated as misses.
type Cached struct {
	next   Embedder
	cache  Cache
	logger *zap.Logger
}

func NewCached(next Embedder, cache Cache, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, cache: cache, logger: logger}
}

func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	model := c.next.Model()

	var (
		missing []string
		slots   []int
	)
	for i, text := range texts {
		v, ok, err := c.cache.Get(ctx, CacheKey(model, text))
		if err != nil {
			c.logger.Warn("embedding cache lookup failed", zap.Error(err))
		}
		if ok && len(v) == c.next.Dimension() {
			vectors[i] = v
			continue
		}
		missing = append(missing, text)
		slots = append(slots, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := c.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if err := CheckVectors(fresh, len(missing), 0); err != nil {
		return nil, err
	}

	for j, v := range fresh {
		vectors[slots[j]] = v
		if err := c.cache.Set(ctx, CacheKey(model, missing[j]), v); err != nil {
			c.logger.Warn("embedding cache store failed", zap.Error(err))
		}
	}

	c.logger.Debug("embedding cache",
		zap.Int("hits", len(texts)-len(missing)),
		zap.Int("misses", len(missing)),
	)

	return vectors, nil
}

func (c *Cached) Dimension() int { return c.next.Dimension() }

func (c *Cached) Model() string { return c.next.Model() }

// DefaultMemoryCacheEntries bounds MemoryCache when no size is given.
const DefaultMemoryCacheEntries = 10000

// MemoryCache keeps at most maxEntries vectors in process memory, evicting the oldest first.
type MemoryCache struct {
	mu         sync.RWMutex
	items      map[string][]float32
	order      []string
	maxEntries int
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryCacheEntries
	}
	return &MemoryCache{items: make(map[string][]float32), maxEntries: maxEntries}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]float32(nil), v...), true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[key]; !ok {
		for len(m.order) >= m.maxEntries {
			delete(m.items, m.order[0])
			m.order = m.order[1:]
		}
		m.order = append(m.order, key)
	}
	m.items[key] = append([]float32(nil), vector...)
	return nil
}

func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
