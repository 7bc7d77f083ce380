package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		LLM:      LLMConfig{Provider: "openai", APIKey: "sk-test"},
		Embedder: EmbedderConfig{Provider: "openai", APIKey: "sk-test"},
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing llm provider", func(c *Config) { c.LLM.Provider = "" }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "bedrock" }},
		{"openai llm without key", func(c *Config) { c.LLM.APIKey = "" }},
		{"ollama without model", func(c *Config) { c.LLM = LLMConfig{Provider: "ollama"} }},
		{"unknown embedder", func(c *Config) { c.Embedder.Provider = "word2vec" }},
		{"embedder without key", func(c *Config) { c.Embedder.APIKey = "" }},
		{"decay out of range", func(c *Config) { c.Retrieval.Decay = 1.5 }},
		{"negative weight", func(c *Config) { c.Retrieval.RelevanceWeight = -1 }},
		{"negative max turns", func(c *Config) { c.Dialogue.MaxTurns = -1 }},
		{"sqlite without path", func(c *Config) { c.Store = &StoreConfig{Provider: "sqlite"} }},
		{"postgres without host", func(c *Config) { c.Store = &StoreConfig{Provider: "postgres", DBName: "sim"} }},
		{"unknown store provider", func(c *Config) { c.Store = &StoreConfig{Provider: "redis"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfigValidateAcceptsOllama(t *testing.T) {
	cfg := validConfig()
	cfg.LLM = LLMConfig{Provider: "ollama", Model: "llama3.1"}
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SIMULACRA_LLM_PROVIDER", "ollama")
	t.Setenv("SIMULACRA_LLM_MODEL", "llama3.1")
	t.Setenv("SIMULACRA_EMBEDDER_API_KEY", "sk-test")
	t.Setenv("SIMULACRA_RETRIEVAL_DECAY", "0.99")
	t.Setenv("SIMULACRA_DIALOGUE_MAX_TURNS", "4")
	t.Setenv("SIMULACRA_STORE_PROVIDER", "sqlite")
	t.Setenv("SIMULACRA_STORE_DB_PATH", "sim.db")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3.1", cfg.LLM.Model)
	assert.Equal(t, "openai", cfg.Embedder.Provider, "embedder provider defaults to openai")
	assert.Equal(t, 0.99, cfg.Retrieval.Decay)
	assert.Equal(t, 4, cfg.Dialogue.MaxTurns)
	require.NotNil(t, cfg.Store)
	assert.Equal(t, "sqlite", cfg.Store.Provider)
	assert.Equal(t, "sim.db", cfg.Store.DBPath)
}

func TestLoadConfigFromEnvBadNumber(t *testing.T) {
	t.Setenv("SIMULACRA_LLM_PROVIDER", "ollama")
	t.Setenv("SIMULACRA_LLM_MODEL", "llama3.1")
	t.Setenv("SIMULACRA_EMBEDDER_API_KEY", "sk-test")
	t.Setenv("SIMULACRA_DIALOGUE_MAX_TURNS", "many")

	_, err := LoadConfigFromEnv()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"llm": {"provider": "ollama", "model": "llama3.1"},
		"embedder": {"provider": "openai", "api_key": "sk-test", "dimensions": 256},
		"retrieval": {"decay": 0.99, "recency_weight": 2},
		"dialogue": {"max_turns": 3}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "llama3.1", cfg.LLM.Model)
	assert.Equal(t, 256, cfg.Embedder.Dimensions)
	assert.Equal(t, 2.0, cfg.Retrieval.RecencyWeight)
	assert.Equal(t, 3, cfg.Dialogue.MaxTurns)
}

func TestLoadConfigFromFileMissing(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)

	var simErr *SimError
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, "LoadConfigFromFile", simErr.Op)
}
