package core

import (
	"log/slog"

	"github.com/simulacra-labs/simulacra-go/pkg/embedder"
	"github.com/simulacra-labs/simulacra-go/pkg/llm"
	"github.com/simulacra-labs/simulacra-go/pkg/storage"
)

// Option customizes client construction.
type Option func(*Client)

// WithLogger sets the structured logger used by the client and everything it
// wires up. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithLLMProvider injects a pre-built text-generation provider, bypassing the
// LLM section of the config. Useful for tests and custom backends.
func WithLLMProvider(provider llm.Provider) Option {
	return func(c *Client) {
		c.llm = provider
	}
}

// WithEmbedderProvider injects a pre-built embedding provider, bypassing the
// embedder section of the config.
func WithEmbedderProvider(provider embedder.Provider) Option {
	return func(c *Client) {
		c.embedder = provider
	}
}

// WithNodeStore injects a pre-built persistence backend, bypassing the store
// section of the config.
func WithNodeStore(store storage.NodeStore) Option {
	return func(c *Client) {
		c.store = store
	}
}
