package core

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the complete, explicit configuration for a simulation client.
// It is passed in once at construction; there is no ambient global model
// selection.
type Config struct {
	// LLM configures the text-generation provider.
	LLM LLMConfig `json:"llm"`

	// Embedder configures the embedding provider.
	Embedder EmbedderConfig `json:"embedder"`

	// Retrieval tunes the memory retrieval engine.
	Retrieval RetrievalConfig `json:"retrieval"`

	// Dialogue tunes the conversation state machine.
	Dialogue DialogueConfig `json:"dialogue"`

	// Store configures optional node persistence. Nil disables
	// persistence; personas then live only in memory.
	Store *StoreConfig `json:"store,omitempty"`
}

// LLMConfig configures the text-generation provider.
//
// Supported providers: openai, ollama.
type LLMConfig struct {
	// Provider is the provider name.
	Provider string `json:"provider"`

	// APIKey is the provider API key (unused by ollama).
	APIKey string `json:"api_key,omitempty"`

	// Model is the model name.
	Model string `json:"model,omitempty"`

	// BaseURL overrides the API endpoint (optional).
	BaseURL string `json:"base_url,omitempty"`
}

// EmbedderConfig configures the embedding provider.
//
// Supported providers: openai.
type EmbedderConfig struct {
	// Provider is the provider name.
	Provider string `json:"provider"`

	// APIKey is the provider API key.
	APIKey string `json:"api_key,omitempty"`

	// Model is the embedding model name.
	Model string `json:"model,omitempty"`

	// BaseURL overrides the API endpoint (optional).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the embedding vector length.
	Dimensions int `json:"dimensions,omitempty"`
}

// RetrievalConfig tunes the retrieval engine. Zero values select the
// documented defaults (decay 0.995, equal weights).
type RetrievalConfig struct {
	// Decay is the recency decay constant in (0, 1).
	Decay float64 `json:"decay,omitempty"`

	// RecencyWeight, RelevanceWeight, and ImportanceWeight are the
	// non-negative combination weights of the three scoring components.
	RecencyWeight    float64 `json:"recency_weight,omitempty"`
	RelevanceWeight  float64 `json:"relevance_weight,omitempty"`
	ImportanceWeight float64 `json:"importance_weight,omitempty"`
}

// DialogueConfig tunes the conversation state machine.
type DialogueConfig struct {
	// MaxTurns is the outer-iteration cap; each outer turn gives both
	// personas one utterance. Zero selects the default of 8.
	MaxTurns int `json:"max_turns,omitempty"`
}

// StoreConfig configures node persistence.
//
// Supported providers: sqlite, postgres.
type StoreConfig struct {
	// Provider is the backend name.
	Provider string `json:"provider"`

	// DBPath is the database file path (sqlite).
	DBPath string `json:"db_path,omitempty"`

	// Host, Port, User, Password, DBName, SSLMode configure the server
	// connection (postgres).
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	DBName   string `json:"db_name,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty"`

	// Table is the table name. Defaults to "memory_nodes".
	Table string `json:"table,omitempty"`
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if err := c.LLM.validate(); err != nil {
		return err
	}
	if err := c.Embedder.validate(); err != nil {
		return err
	}
	if err := c.Retrieval.validate(); err != nil {
		return err
	}
	if err := c.Dialogue.validate(); err != nil {
		return err
	}
	if c.Store != nil {
		return c.Store.validate()
	}
	return nil
}

func (c *LLMConfig) validate() error {
	switch c.Provider {
	case "openai":
		if c.APIKey == "" {
			return fmt.Errorf("%w: llm api key is required for openai", ErrInvalidConfig)
		}
	case "ollama":
		if c.Model == "" {
			return fmt.Errorf("%w: llm model is required for ollama", ErrInvalidConfig)
		}
	case "":
		return fmt.Errorf("%w: llm provider is required", ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: unknown llm provider %q", ErrInvalidConfig, c.Provider)
	}
	return nil
}

func (c *EmbedderConfig) validate() error {
	switch c.Provider {
	case "openai":
		if c.APIKey == "" {
			return fmt.Errorf("%w: embedder api key is required for openai", ErrInvalidConfig)
		}
	case "":
		return fmt.Errorf("%w: embedder provider is required", ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: unknown embedder provider %q", ErrInvalidConfig, c.Provider)
	}
	return nil
}

func (c *RetrievalConfig) validate() error {
	if d := c.Decay; d != 0 && (d <= 0 || d >= 1) {
		return fmt.Errorf("%w: retrieval decay must be in (0, 1)", ErrInvalidConfig)
	}
	if c.RecencyWeight < 0 || c.RelevanceWeight < 0 || c.ImportanceWeight < 0 {
		return fmt.Errorf("%w: retrieval weights must be non-negative", ErrInvalidConfig)
	}
	return nil
}

func (c *DialogueConfig) validate() error {
	if c.MaxTurns < 0 {
		return fmt.Errorf("%w: dialogue max turns must be non-negative", ErrInvalidConfig)
	}
	return nil
}

func (c *StoreConfig) validate() error {
	switch c.Provider {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("%w: store db_path is required for sqlite", ErrInvalidConfig)
		}
	case "postgres":
		if c.Host == "" || c.DBName == "" {
			return fmt.Errorf("%w: store host and db_name are required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store provider %q", ErrInvalidConfig, c.Provider)
	}
	return nil
}

// LoadConfigFromEnv builds a Config from environment variables, loading a
// .env file first when one is present.
//
// Recognized variables:
//
//	SIMULACRA_LLM_PROVIDER, SIMULACRA_LLM_API_KEY, SIMULACRA_LLM_MODEL, SIMULACRA_LLM_BASE_URL
//	SIMULACRA_EMBEDDER_PROVIDER, SIMULACRA_EMBEDDER_API_KEY, SIMULACRA_EMBEDDER_MODEL,
//	SIMULACRA_EMBEDDER_BASE_URL, SIMULACRA_EMBEDDER_DIMENSIONS
//	SIMULACRA_RETRIEVAL_DECAY
//	SIMULACRA_DIALOGUE_MAX_TURNS
//	SIMULACRA_STORE_PROVIDER, SIMULACRA_STORE_DB_PATH, SIMULACRA_STORE_HOST,
//	SIMULACRA_STORE_PORT, SIMULACRA_STORE_USER, SIMULACRA_STORE_PASSWORD,
//	SIMULACRA_STORE_DB_NAME, SIMULACRA_STORE_SSL_MODE
func LoadConfigFromEnv() (*Config, error) {
	// A missing .env file is fine; plain environment variables still apply.
	_ = godotenv.Load()

	cfg := &Config{
		LLM: LLMConfig{
			Provider: envOr("SIMULACRA_LLM_PROVIDER", "openai"),
			APIKey:   os.Getenv("SIMULACRA_LLM_API_KEY"),
			Model:    os.Getenv("SIMULACRA_LLM_MODEL"),
			BaseURL:  os.Getenv("SIMULACRA_LLM_BASE_URL"),
		},
		Embedder: EmbedderConfig{
			Provider: envOr("SIMULACRA_EMBEDDER_PROVIDER", "openai"),
			APIKey:   os.Getenv("SIMULACRA_EMBEDDER_API_KEY"),
			Model:    os.Getenv("SIMULACRA_EMBEDDER_MODEL"),
			BaseURL:  os.Getenv("SIMULACRA_EMBEDDER_BASE_URL"),
		},
	}

	if v := os.Getenv("SIMULACRA_EMBEDDER_DIMENSIONS"); v != "" {
		dims, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: SIMULACRA_EMBEDDER_DIMENSIONS: %v", ErrInvalidConfig, err)
		}
		cfg.Embedder.Dimensions = dims
	}
	if v := os.Getenv("SIMULACRA_RETRIEVAL_DECAY"); v != "" {
		decay, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: SIMULACRA_RETRIEVAL_DECAY: %v", ErrInvalidConfig, err)
		}
		cfg.Retrieval.Decay = decay
	}
	if v := os.Getenv("SIMULACRA_DIALOGUE_MAX_TURNS"); v != "" {
		turns, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: SIMULACRA_DIALOGUE_MAX_TURNS: %v", ErrInvalidConfig, err)
		}
		cfg.Dialogue.MaxTurns = turns
	}

	if provider := os.Getenv("SIMULACRA_STORE_PROVIDER"); provider != "" {
		store := &StoreConfig{
			Provider: provider,
			DBPath:   os.Getenv("SIMULACRA_STORE_DB_PATH"),
			Host:     os.Getenv("SIMULACRA_STORE_HOST"),
			User:     os.Getenv("SIMULACRA_STORE_USER"),
			Password: os.Getenv("SIMULACRA_STORE_PASSWORD"),
			DBName:   os.Getenv("SIMULACRA_STORE_DB_NAME"),
			SSLMode:  os.Getenv("SIMULACRA_STORE_SSL_MODE"),
		}
		if v := os.Getenv("SIMULACRA_STORE_PORT"); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%w: SIMULACRA_STORE_PORT: %v", ErrInvalidConfig, err)
			}
			store.Port = port
		}
		cfg.Store = store
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromFile builds a Config from a JSON file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewSimError("LoadConfigFromFile", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, NewSimError("LoadConfigFromFile", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
