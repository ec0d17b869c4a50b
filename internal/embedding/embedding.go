// Package embedding turns job descriptions and resumes into unit-length
// vectors. Similarity between two embeddings is their dot product.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrDisabled is returned by the no-op embedder.
var ErrDisabled = errors.New("embedding provider disabled")

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 input", len(vecs))
	}
	return vecs[0], nil
}

// Normalize returns v scaled to unit length. A zero vector is returned
// unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// NopEmbedder is used when embedding.provider is "none".
type NopEmbedder struct{}

// NewNopEmbedder returns a NopEmbedder.
func NewNopEmbedder() *NopEmbedder {
	return &NopEmbedder{}
}

// Embed always fails with ErrDisabled.
func (NopEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, ErrDisabled
}

// ModelName is empty.
func (NopEmbedder) ModelName() string { return "" }
