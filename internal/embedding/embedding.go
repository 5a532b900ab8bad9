package embedding

import (
	"context"
	"fmt"
	"math"
)

// Embedder turns texts into fixed-dimension vectors.
// Implementations return exactly one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// Batches splits texts into consecutive groups of at most size elements.
func Batches(texts []string, size int) [][]string {
	if size <= 0 || len(texts) <= size {
		if len(texts) == 0 {
			return nil
		}
		return [][]string{texts}
	}

	batches := make([][]string, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		batches = append(batches, texts[start:end])
	}
	return batches
}

// CheckVectors verifies that a provider returned one vector of the expected dimension per text.
func CheckVectors(vectors [][]float32, texts, dimension int) error {
	if len(vectors) != texts {
		return fmt.Errorf("expected %d embeddings, got %d", texts, len(vectors))
	}
	if dimension <= 0 {
		return nil
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(v), dimension)
		}
	}
	return nil
}

// Normalize scales v to unit length in place. Zero vectors are left untouched.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
