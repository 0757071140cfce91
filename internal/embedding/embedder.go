// Package embedding turns resume and job texts into vectors and decodes
// vectors read back from storage.
package embedding

import (
	"context"

	"github.com/spigell/placement-assistant/internal/match"
)

// Embedder converts free text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (match.Embedding, error)
	// Dimension is the configured vector length, 0 when unknown.
	Dimension() int
	Model() string
}
