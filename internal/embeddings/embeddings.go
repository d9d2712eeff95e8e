// Package embeddings defines the embedding provider contract used by the
// search path and the chromem backend.
package embeddings

import "context"

// Embedder produces vector representations for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HealthPinger is optionally implemented by providers that can be probed.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
