// Package embedder defines the embedding half of the generation capability:
// converting text into fixed-length numeric vectors for similarity scoring.
package embedder

import "context"

// Provider is the interface every embedding backend must satisfy.
//
// A provider always produces vectors of the same length, reported by
// Dimensions; mixing vectors from providers with different dimensions in one
// memory store makes them mutually irrelevant during retrieval.
type Provider interface {
	// Embed converts one text into its embedding vector.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts several texts in a single request. Results are
	// returned in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the length of vectors this provider produces.
	Dimensions() int

	// Close releases provider resources.
	Close() error
}
