// Package ollama implements llm.Provider against a local Ollama server.
//
// Ollama exposes an OpenAI-compatible chat endpoint, so the client reuses the
// OpenAI SDK pointed at the local server. Useful for running simulations
// without a hosted API key.
package ollama

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/simulacra-labs/simulacra-go/pkg/llm"
)

// DefaultBaseURL is the OpenAI-compatible endpoint of a local Ollama server.
const DefaultBaseURL = "http://localhost:11434/v1"

// Client is an Ollama-backed text-generation provider.
type Client struct {
	client *openai.Client
	model  string
}

// Config configures the Ollama provider.
type Config struct {
	// Model is the local model name (e.g. "llama3.1"). Required.
	Model string

	// BaseURL overrides the server address. Defaults to DefaultBaseURL.
	BaseURL string
}

// NewClient creates an Ollama text-generation client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, errors.New("ollama: model is required")
	}

	// Ollama ignores the API key but the SDK requires a non-empty one.
	config := openai.DefaultConfig("ollama")
	config.BaseURL = cfg.BaseURL
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}, nil
}

// Generate produces text from a single user prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return c.GenerateWithMessages(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// GenerateWithMessages produces text from a full message history.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		TopP:        float32(options.TopP),
		Stop:        options.Stop,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ollama: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op; the underlying SDK holds no closable resources.
func (c *Client) Close() error {
	return nil
}
