// Package embeddings defines the embedding provider contract.
package embeddings

import (
	"context"
	"fmt"

	"github.com/memspace/memspace/internal/model"
)

// Provider produces fixed-dimension vector representations for text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VerifyDimensions embeds a probe string and checks the vector length against
// the configured dimensionality. Stored vectors and the provider must agree;
// a mismatch is a fatal wiring error, not a recoverable one.
func VerifyDimensions(ctx context.Context, p Provider, want int) error {
	vec, err := p.Embed(ctx, "dimension probe")
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrEmbeddingUnavailable, err)
	}
	if len(vec) != want {
		return fmt.Errorf("embedding dimension mismatch: provider returned %d, configured %d", len(vec), want)
	}
	return nil
}
