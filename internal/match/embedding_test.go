package match

import (
	"errors"
	"math"
	"testing"
)

func TestNewEmbeddingCopiesInput(t *testing.T) {
	values := []float64{1, 2, 3}

	e, err := NewEmbedding(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	values[0] = 42
	if e[0] != 1 {
		t.Fatalf("expected embedding to own its data, got %v", e)
	}

	if e.Dimension() != 3 {
		t.Fatalf("expected dimension 3, got %d", e.Dimension())
	}
}

func TestNewEmbeddingRejectsInvalid(t *testing.T) {
	for _, values := range [][]float64{nil, {}, {1, math.NaN()}, {math.Inf(1)}} {
		if _, err := NewEmbedding(values); !errors.Is(err, ErrInvalidVector) {
			t.Fatalf("expected ErrInvalidVector for %v, got %v", values, err)
		}
	}
}

func TestNewEmbeddingOfDimension(t *testing.T) {
	if _, err := NewEmbeddingOfDimension([]float64{1, 2}, 3); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	if _, err := NewEmbeddingOfDimension([]float64{1, 2, 3}, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := NewEmbeddingOfDimension([]float64{1, 2}, 0); err != nil {
		t.Fatalf("expected disabled dimension check, got %v", err)
	}
}

func TestNorm(t *testing.T) {
	if got := (Embedding{3, 4}).Norm(); got != 5 {
		t.Fatalf("expected norm 5, got %v", got)
	}
}
