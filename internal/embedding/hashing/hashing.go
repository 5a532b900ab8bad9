// Package hashing implements an offline embedder that maps words into a fixed
// number of buckets. It needs no network access and is used for local runs and tests.
package hashing

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/spigell/interview-brain/internal/embedding"
)

const DefaultDimension = 256

type Embedder struct {
	dim int
}

func New(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dim: dimension}
}

func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.vector(text)
	}
	return vectors, nil
}

func (e *Embedder) vector(text string) []float32 {
	v := make([]float32, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, word := range words {
		h := fnv.New32a()
		h.Write([]byte(word))
		sum := h.Sum32()
		// the top bit decides the sign so unrelated words partly cancel out
		if sum&(1<<31) != 0 {
			v[sum%uint32(e.dim)] -= 1
		} else {
			v[sum%uint32(e.dim)] += 1
		}
	}

	embedding.Normalize(v)
	return v
}

func (e *Embedder) Dimension() int { return e.dim }

func (e *Embedder) Model() string { return "hashing" }
