package dialogue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simulacra-labs/simulacra-go/pkg/cognition"
	"github.com/simulacra-labs/simulacra-go/pkg/dialogue"
	"github.com/simulacra-labs/simulacra-go/pkg/memory"
	"github.com/simulacra-labs/simulacra-go/pkg/persona"
)

func whisperScript() *scriptLLM {
	return (&scriptLLM{}).
		on("first-person inner thought", func(string) (string, error) {
			return "Maria is thinking that she must prepare the surprise stream", nil
		}).
		on("(subject, predicate, object) triple", func(string) (string, error) {
			return `{"subject": "Maria", "predicate": "prepares", "object": "surprise stream"}`, nil
		}).
		on("poignancy of the following event", func(string) (string, error) {
			return `{"score": 5}`, nil
		})
}

func TestWhisperIngest(t *testing.T) {
	gen := cognition.NewGenerator(whisperScript(), nil)
	ing := dialogue.NewWhisperIngestor(gen, flatEmbedder{})

	p := persona.New("Maria", "Maria is a physics student.")
	p.CurrTime = time.Date(2023, 2, 13, 8, 0, 0, 0, time.UTC)

	node, err := ing.Ingest(context.Background(), p, "you are secretly preparing a surprise stream")
	require.NoError(t, err)

	// Exactly one node, of kind thought, holding the generated inner
	// thought rather than the raw whisper.
	assert.Equal(t, 1, p.Memory.Len())
	assert.Equal(t, memory.KindThought, node.Kind)
	assert.Equal(t, "Maria is thinking that she must prepare the surprise stream", node.Description)
	assert.Equal(t, node.Description, node.EmbeddingKey)
	assert.Equal(t, 5.0, node.Poignancy)
	assert.Equal(t, []float64{1, 0, 0}, node.Embedding)

	s, pr, o := node.SPO()
	assert.Equal(t, []string{"Maria", "prepares", "surprise stream"}, []string{s, pr, o})

	// Expiration is exactly 30 days after creation.
	require.NotNil(t, node.Expiration)
	assert.Equal(t, p.CurrTime.Add(30*24*time.Hour), *node.Expiration)
	assert.Equal(t, p.CurrTime, node.CreatedAt)

	// The triple terms are indexed as keywords.
	assert.Len(t, p.Memory.ByKeyword(memory.KindThought, "maria"), 1)
	assert.Len(t, p.Memory.ByKeyword(memory.KindThought, "prepares"), 1)
}

func TestWhisperIdlePoignancy(t *testing.T) {
	gen := cognition.NewGenerator(whisperScript(), nil)
	ing := dialogue.NewWhisperIngestor(gen, flatEmbedder{})

	p := persona.New("Klaus", "Klaus is a student.")
	node, err := ing.Ingest(context.Background(), p, "Klaus is idle right now")
	require.NoError(t, err)
	assert.Equal(t, 1.0, node.Poignancy)
}

func TestWhisperFailureCreatesNoNode(t *testing.T) {
	// No handler matches the triple prompt, and the empty fallback makes
	// triple parsing fail.
	script := (&scriptLLM{}).
		on("first-person inner thought", func(string) (string, error) {
			return "Maria is thinking about the stream", nil
		})
	gen := cognition.NewGenerator(script, nil)
	ing := dialogue.NewWhisperIngestor(gen, flatEmbedder{})

	p := persona.New("Maria", "Maria is a physics student.")
	_, err := ing.Ingest(context.Background(), p, "you are preparing a stream")
	require.Error(t, err)
	assert.Zero(t, p.Memory.Len())
}

func TestReplayHistory(t *testing.T) {
	gen := cognition.NewGenerator(whisperScript(), nil)
	ing := dialogue.NewWhisperIngestor(gen, flatEmbedder{})

	maria := persona.New("Maria", "Maria is a physics student.")
	dir := persona.MapDirectory{"Maria": maria}

	err := ing.ReplayHistory(context.Background(), dir, []dialogue.WhisperRecord{
		{Persona: "Maria", Whisper: "you are preparing a stream"},
		{Persona: "Maria", Whisper: "you failed the quiz"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, maria.Memory.Len())
}

func TestReplayHistoryUnknownPersona(t *testing.T) {
	gen := cognition.NewGenerator(whisperScript(), nil)
	ing := dialogue.NewWhisperIngestor(gen, flatEmbedder{})

	err := ing.ReplayHistory(context.Background(), persona.MapDirectory{}, []dialogue.WhisperRecord{
		{Persona: "Nobody", Whisper: "anything"},
	})
	assert.ErrorIs(t, err, persona.ErrNotFound)
}
