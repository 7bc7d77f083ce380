package dialogue

import (
	"context"
	"time"

	"github.com/simulacra-labs/simulacra-go/pkg/cognition"
	"github.com/simulacra-labs/simulacra-go/pkg/embedder"
	"github.com/simulacra-labs/simulacra-go/pkg/memory"
	"github.com/simulacra-labs/simulacra-go/pkg/persona"
)

// ThoughtExpiration is the lifetime of a thought node created from a
// whisper: 30 days from creation.
const ThoughtExpiration = 30 * 24 * time.Hour

// WhisperIngestor turns whispered suggestions into thought memories. A
// whisper is an out-of-band nudge ("you are secretly planning a party")
// injected during history replay or an interactive session; the persona
// internalizes it as its own inner thought.
type WhisperIngestor struct {
	gen      *cognition.Generator
	embedder embedder.Provider
}

// NewWhisperIngestor creates a whisper ingestor.
func NewWhisperIngestor(gen *cognition.Generator, provider embedder.Provider) *WhisperIngestor {
	return &WhisperIngestor{gen: gen, embedder: provider}
}

// Ingest converts one whisper into exactly one new thought node in the
// persona's store.
//
// The pipeline: generate the inner thought, derive its semantic triple,
// score poignancy against the originating whisper (fixed at 1 when the
// whisper describes idleness), embed the thought, and append the node with
// expiration exactly ThoughtExpiration after creation. Any generation
// failure propagates and no node is created.
func (w *WhisperIngestor) Ingest(ctx context.Context, p *persona.Persona, whisper string) (*memory.Node, error) {
	thought, err := w.gen.InnerThought(ctx, p, whisper)
	if err != nil {
		return nil, err
	}

	subject, predicate, object, err := w.gen.EventTriple(ctx, p, thought)
	if err != nil {
		return nil, err
	}

	poignancy, err := w.gen.PoignancyScore(ctx, p, memory.KindEvent, whisper)
	if err != nil {
		return nil, err
	}

	embedding, err := w.embedder.Embed(ctx, thought)
	if err != nil {
		return nil, err
	}

	created := p.CurrTime
	expiration := created.Add(ThoughtExpiration)
	node := p.Memory.AddThought(
		created, &expiration,
		subject, predicate, object,
		thought,
		[]string{subject, predicate, object},
		poignancy,
		thought, embedding,
	)
	return node, nil
}

// WhisperRecord is one row of a whisper history file: the target persona's
// name and the whisper text.
type WhisperRecord struct {
	Persona string
	Whisper string
}

// ReplayHistory ingests a batch of whisper records, resolving each target
// persona through the directory. Replay stops at the first failure.
func (w *WhisperIngestor) ReplayHistory(ctx context.Context, dir persona.Directory, records []WhisperRecord) error {
	for _, rec := range records {
		p, err := dir.Lookup(rec.Persona)
		if err != nil {
			return err
		}
		if _, err := w.Ingest(ctx, p, rec.Whisper); err != nil {
			return err
		}
	}
	return nil
}
