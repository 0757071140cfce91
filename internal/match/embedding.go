package match

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Embedding is a fixed-length vector produced by an embedding model for a
// resume or a job description.
type Embedding []float64

// NewEmbedding copies values into an Embedding, rejecting empty input and
// non-finite entries.
func NewEmbedding(values []float64) (Embedding, error) {
	e := make(Embedding, len(values))
	copy(e, values)

	if err := e.Validate(); err != nil {
		return nil, err
	}

	return e, nil
}

// NewEmbeddingOfDimension is NewEmbedding with an additional check that the
// vector has exactly dim entries. A non-positive dim disables the check.
func NewEmbeddingOfDimension(values []float64, dim int) (Embedding, error) {
	e, err := NewEmbedding(values)
	if err != nil {
		return nil, err
	}

	if dim > 0 && len(e) != dim {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", ErrDimensionMismatch, dim, len(e))
	}

	return e, nil
}

// Validate reports ErrInvalidVector when the embedding is empty or holds NaN
// or infinite values.
func (e Embedding) Validate() error {
	if len(e) == 0 {
		return fmt.Errorf("%w: embedding is empty", ErrInvalidVector)
	}

	for i, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value %v at index %d", ErrInvalidVector, v, i)
		}
	}

	return nil
}

func (e Embedding) Dimension() int {
	return len(e)
}

// Norm returns the euclidean length of the embedding.
func (e Embedding) Norm() float64 {
	return floats.Norm(e, 2)
}

// scaled returns a copy of e divided by norm. Dividing instead of multiplying
// by 1/norm keeps subnormal norms from turning into an infinite factor.
func (e Embedding) scaled(norm float64) []float64 {
	out := make([]float64, len(e))
	for i, v := range e {
		out[i] = v / norm
	}
	return out
}
