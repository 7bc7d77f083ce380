// Package llm defines the text-generation half of the generation capability
// consumed by the dialogue core.
//
// All calls are request/response and stateless from the caller's point of
// view. A provider may fail on any call; policy for handling that failure
// belongs to the call site, not to the provider.
package llm

import "context"

// Provider is the interface every text-generation backend must satisfy.
type Provider interface {
	// Generate produces text from a single prompt.
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// GenerateWithMessages produces text from a conversation history
	// (system, user, and assistant messages).
	GenerateWithMessages(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)

	// Close releases provider resources.
	Close() error
}

// Message is a single message in a generation request.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// GenerateOptions holds the tunable generation parameters.
type GenerateOptions struct {
	// Temperature controls randomness (0.0-2.0).
	Temperature float64

	// MaxTokens caps the response length.
	MaxTokens int

	// TopP controls nucleus sampling (0.0-1.0).
	TopP float64

	// Stop lists sequences that end generation early.
	Stop []string
}

// GenerateOption configures a single generation call.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Temperature = temp
	}
}

// WithMaxTokens caps the number of tokens in the response.
func WithMaxTokens(max int) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.MaxTokens = max
	}
}

// WithTopP sets the nucleus-sampling parameter.
func WithTopP(topP float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.TopP = topP
	}
}

// WithStop sets the stop sequences.
func WithStop(stop ...string) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Stop = stop
	}
}

// ApplyGenerateOptions resolves a slice of options against the defaults
// (Temperature 0.8, MaxTokens 512, TopP 1.0). Dialogue generation favors a
// slightly higher temperature than typical extraction workloads.
func ApplyGenerateOptions(opts []GenerateOption) *GenerateOptions {
	options := &GenerateOptions{
		Temperature: 0.8,
		MaxTokens:   512,
		TopP:        1.0,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
