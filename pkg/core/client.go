package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/simulacra-labs/simulacra-go/pkg/cognition"
	"github.com/simulacra-labs/simulacra-go/pkg/dialogue"
	"github.com/simulacra-labs/simulacra-go/pkg/embedder"
	openaiembedder "github.com/simulacra-labs/simulacra-go/pkg/embedder/openai"
	"github.com/simulacra-labs/simulacra-go/pkg/llm"
	"github.com/simulacra-labs/simulacra-go/pkg/llm/ollama"
	openaillm "github.com/simulacra-labs/simulacra-go/pkg/llm/openai"
	"github.com/simulacra-labs/simulacra-go/pkg/memory"
	"github.com/simulacra-labs/simulacra-go/pkg/persona"
	"github.com/simulacra-labs/simulacra-go/pkg/retrieval"
	"github.com/simulacra-labs/simulacra-go/pkg/storage"
	"github.com/simulacra-labs/simulacra-go/pkg/storage/postgres"
	"github.com/simulacra-labs/simulacra-go/pkg/storage/sqlite"
)

// Client is the top-level entry point of the simulation core.
//
// It owns the providers, the retrieval engine, the dialogue machinery, and a
// registry of live personas. A Client is safe for concurrent use by multiple
// goroutines, but each persona's memory still has a single writer: run one
// operation per persona at a time.
type Client struct {
	config   *Config
	llm      llm.Provider
	embedder embedder.Provider
	store    storage.NodeStore
	engine   *retrieval.Engine
	gen      *cognition.Generator
	orch     *dialogue.Orchestrator
	whisper  *dialogue.WhisperIngestor
	log      *slog.Logger

	mu       sync.RWMutex
	personas map[string]*persona.Persona
}

// NewClient builds a fully wired client from an explicit configuration.
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	c := &Client{
		config:   cfg,
		log:      slog.Default(),
		personas: make(map[string]*persona.Persona),
	}
	for _, opt := range opts {
		opt(c)
	}

	// Injected providers satisfy their config sections, so only the
	// sections the client still has to build get validated.
	if c.llm == nil {
		if err := cfg.LLM.validate(); err != nil {
			return nil, err
		}
	}
	if c.embedder == nil {
		if err := cfg.Embedder.validate(); err != nil {
			return nil, err
		}
	}
	if c.store == nil && cfg.Store != nil {
		if err := cfg.Store.validate(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Retrieval.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Dialogue.validate(); err != nil {
		return nil, err
	}

	var err error
	if c.llm == nil {
		c.llm, err = newLLMProvider(&cfg.LLM)
		if err != nil {
			return nil, NewSimError("NewClient", err)
		}
	}
	if c.embedder == nil {
		c.embedder, err = newEmbedderProvider(&cfg.Embedder)
		if err != nil {
			return nil, NewSimError("NewClient", err)
		}
	}
	if c.store == nil && cfg.Store != nil {
		c.store, err = newNodeStore(cfg.Store)
		if err != nil {
			return nil, NewSimError("NewClient", err)
		}
	}

	c.engine = retrieval.NewEngine(c.embedder, retrieval.Config{
		Decay: cfg.Retrieval.Decay,
		Weights: retrieval.Weights{
			Recency:    cfg.Retrieval.RecencyWeight,
			Relevance:  cfg.Retrieval.RelevanceWeight,
			Importance: cfg.Retrieval.ImportanceWeight,
		},
	})
	c.gen = cognition.NewGenerator(c.llm, c.log)

	c.orch, err = dialogue.NewOrchestrator(c.engine, c.gen, c.log)
	if err != nil {
		return nil, NewSimError("NewClient", err)
	}
	if cfg.Dialogue.MaxTurns > 0 {
		c.orch.SetMaxTurns(cfg.Dialogue.MaxTurns)
	}
	c.whisper = dialogue.NewWhisperIngestor(c.gen, c.embedder)

	c.log.Debug("client initialized",
		"llm", cfg.LLM.Provider, "embedder", cfg.Embedder.Provider,
		"persistent", c.store != nil)
	return c, nil
}

func newLLMProvider(cfg *LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaillm.NewClient(&openaillm.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "ollama":
		return ollama.NewClient(&ollama.Config{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func newEmbedderProvider(cfg *EmbedderConfig) (embedder.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiembedder.NewClient(&openaiembedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Provider)
	}
}

func newNodeStore(cfg *StoreConfig) (storage.NodeStore, error) {
	switch cfg.Provider {
	case "sqlite":
		return sqlite.NewClient(&sqlite.Config{
			DBPath: cfg.DBPath,
			Table:  cfg.Table,
		})
	case "postgres":
		return postgres.NewClient(&postgres.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			SSLMode:  cfg.SSLMode,
			Table:    cfg.Table,
		})
	default:
		return nil, fmt.Errorf("unknown store provider %q", cfg.Provider)
	}
}

// CreatePersona registers a new persona with an empty memory store.
func (c *Client) CreatePersona(name, identity string) (*persona.Persona, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.personas[name]; ok {
		return nil, NewSimError("CreatePersona", fmt.Errorf("%w: %s", ErrPersonaExists, name))
	}
	p := persona.New(name, identity)
	c.personas[name] = p
	return p, nil
}

// LoadPersona registers a persona and rebuilds its memory store from the
// configured node store. Requires persistence to be configured.
func (c *Client) LoadPersona(ctx context.Context, name, identity string) (*persona.Persona, error) {
	if c.store == nil {
		return nil, NewSimError("LoadPersona", ErrNoStore)
	}

	records, err := c.store.LoadNodes(ctx, name)
	if err != nil {
		return nil, NewSimError("LoadPersona", err)
	}

	p, err := c.CreatePersona(name, identity)
	if err != nil {
		return nil, err
	}
	if err := replayRecords(p.Memory, records); err != nil {
		c.mu.Lock()
		delete(c.personas, name)
		c.mu.Unlock()
		return nil, NewSimError("LoadPersona", err)
	}
	c.log.Debug("persona loaded", "name", name, "nodes", p.Memory.Len())
	return p, nil
}

// SavePersona persists a persona's entire memory store. Requires persistence
// to be configured.
func (c *Client) SavePersona(ctx context.Context, p *persona.Persona) error {
	if c.store == nil {
		return NewSimError("SavePersona", ErrNoStore)
	}

	nodes := p.Memory.All()
	records := make([]*storage.Record, 0, len(nodes))
	for _, n := range nodes {
		records = append(records, nodeToRecord(p.Name, n))
	}
	if err := c.store.SaveNodes(ctx, records); err != nil {
		return NewSimError("SavePersona", err)
	}
	c.log.Debug("persona saved", "name", p.Name, "nodes", len(records))
	return nil
}

// Lookup implements persona.Directory over the client's registry.
func (c *Client) Lookup(name string) (*persona.Persona, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.personas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPersonaNotFound, name)
	}
	return p, nil
}

// Converse runs a turn-by-turn conversation between two registered personas,
// init speaking first.
func (c *Client) Converse(ctx context.Context, initName, targetName string) (*dialogue.Conversation, error) {
	init, err := c.Lookup(initName)
	if err != nil {
		return nil, NewSimError("Converse", err)
	}
	target, err := c.Lookup(targetName)
	if err != nil {
		return nil, NewSimError("Converse", err)
	}

	conv, err := c.orch.Converse(ctx, init, target)
	if err != nil {
		return nil, NewSimError("Converse", err)
	}
	return conv, nil
}

// ConverseOneShot runs the single-call conversation variant between two
// registered personas.
func (c *Client) ConverseOneShot(ctx context.Context, initName, targetName string) (*dialogue.Conversation, error) {
	init, err := c.Lookup(initName)
	if err != nil {
		return nil, NewSimError("ConverseOneShot", err)
	}
	target, err := c.Lookup(targetName)
	if err != nil {
		return nil, NewSimError("ConverseOneShot", err)
	}

	conv, err := c.orch.ConverseOneShot(ctx, init, target)
	if err != nil {
		return nil, NewSimError("ConverseOneShot", err)
	}
	return conv, nil
}

// RecordChat stores a finished conversation as a chat memory in one
// participant's store, embedding the conversation summary. Call once per
// participant that should remember the exchange.
func (c *Client) RecordChat(ctx context.Context, personaName, otherName string, conv *dialogue.Conversation) (*memory.Node, error) {
	p, err := c.Lookup(personaName)
	if err != nil {
		return nil, NewSimError("RecordChat", err)
	}

	poignancy, err := c.gen.PoignancyScore(ctx, p, memory.KindChat, conv.Summary)
	if err != nil {
		return nil, NewSimError("RecordChat", err)
	}
	embedding, err := c.embedder.Embed(ctx, conv.Summary)
	if err != nil {
		return nil, NewSimError("RecordChat", err)
	}

	node := p.Memory.AddChat(
		p.CurrTime, nil,
		p.Name, "chat with", otherName,
		conv.Summary,
		[]string{p.Name, otherName},
		poignancy,
		conv.Summary, embedding,
		conv.Transcript,
	)
	return node, nil
}

// Whisper injects one whispered suggestion into a registered persona,
// creating a new thought node.
func (c *Client) Whisper(ctx context.Context, personaName, whisper string) (*memory.Node, error) {
	p, err := c.Lookup(personaName)
	if err != nil {
		return nil, NewSimError("Whisper", err)
	}
	node, err := c.whisper.Ingest(ctx, p, whisper)
	if err != nil {
		return nil, NewSimError("Whisper", err)
	}
	return node, nil
}

// LoadHistory replays a batch of whisper records against the registry.
// Replay stops at the first failure.
func (c *Client) LoadHistory(ctx context.Context, records []dialogue.WhisperRecord) error {
	if err := c.whisper.ReplayHistory(ctx, c, records); err != nil {
		return NewSimError("LoadHistory", err)
	}
	return nil
}

// OpenAnalysis opens an interrogation session with a registered persona.
func (c *Client) OpenAnalysis(personaName string) (*dialogue.AnalysisSession, error) {
	p, err := c.Lookup(personaName)
	if err != nil {
		return nil, NewSimError("OpenAnalysis", err)
	}
	return dialogue.NewAnalysisSession(p, c.engine, c.gen), nil
}

// Retrieve exposes the retrieval engine directly: ranks a registered
// persona's memories against the focal points and returns the topN per focal
// point.
func (c *Client) Retrieve(ctx context.Context, personaName string, focalPoints []string, topN int) (map[string][]*memory.Node, error) {
	p, err := c.Lookup(personaName)
	if err != nil {
		return nil, NewSimError("Retrieve", err)
	}
	out, err := c.engine.Retrieve(ctx, p.Memory, focalPoints, topN)
	if err != nil {
		return nil, NewSimError("Retrieve", err)
	}
	return out, nil
}

// Close releases provider and store resources.
func (c *Client) Close() error {
	var firstErr error
	if err := c.llm.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
