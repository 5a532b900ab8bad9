package memory

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"
	"sync"

	"github.com/spigell/interview-brain/internal/vectorstore"
)

// Storage is a brute-force in-process vector index.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	points    []vectorstore.Point
	index     map[string]int
}

func New() *Storage {
	return &Storage{index: make(map[string]int)}
}

func (s *Storage) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("collection has dimension %d, requested %d: %w", s.dimension, dimension, vectorstore.ErrDimensionMismatch)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(_ context.Context, points []vectorstore.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if s.dimension != 0 && len(p.Vector) != s.dimension {
			return fmt.Errorf("point %s has dimension %d, expected %d: %w", p.ID, len(p.Vector), s.dimension, vectorstore.ErrDimensionMismatch)
		}
	}

	for _, p := range points {
		stored := vectorstore.Point{
			ID:      p.ID,
			Vector:  append([]float32(nil), p.Vector...),
			Payload: copyPayload(p.Payload),
		}
		if i, ok := s.index[p.ID]; ok {
			s.points[i] = stored
			continue
		}
		s.index[p.ID] = len(s.points)
		s.points = append(s.points, stored)
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, limit int, filter vectorstore.Filter) ([]vectorstore.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("query has dimension %d, expected %d: %w", len(vector), s.dimension, vectorstore.ErrDimensionMismatch)
	}

	hits := make([]vectorstore.Hit, 0, len(s.points))
	for _, p := range s.points {
		if !matches(p.Payload, filter) {
			continue
		}
		hits = append(hits, vectorstore.Hit{
			ID:      p.ID,
			Score:   cosine(vector, p.Vector),
			Payload: copyPayload(p.Payload),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Storage) DeleteByDocument(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.points[:0]
	for _, p := range s.points {
		if p.Payload[vectorstore.KeyDocID] == docID {
			continue
		}
		kept = append(kept, p)
	}
	s.points = kept

	s.index = make(map[string]int, len(s.points))
	for i, p := range s.points {
		s.index[p.ID] = i
	}
	return nil
}

// Len returns the number of stored points.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

func matches(payload map[string]any, filter vectorstore.Filter) bool {
	for k, want := range filter {
		got, ok := payload[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func copyPayload(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
