// Package cognition holds every operation that asks the language model to
// think on a persona's behalf: summarizing retrieved memories, producing
// dialogue utterances, scoring poignancy and safety, and deriving thoughts
// from whispers.
//
// Failure policy differs per operation and is part of each operation's
// contract. Operations that feed essential content into a dialogue turn
// (relationship summaries, utterances, whisper thoughts) propagate
// generation failures; idea summaries are soft hints only, so their failures
// are logged and suppressed.
package cognition

import (
	"context"
	"log/slog"
	"strings"

	"github.com/simulacra-labs/simulacra-go/pkg/llm"
	"github.com/simulacra-labs/simulacra-go/pkg/memory"
	"github.com/simulacra-labs/simulacra-go/pkg/persona"
)

// IdleMarker is the substring identifying an idle action description.
// Poignancy scoring short-circuits to the minimum score when the originating
// description contains it, skipping the generation call entirely.
const IdleMarker = "is idle"

// Utterance is the explicit result of one iterative dialogue turn.
type Utterance struct {
	// Text is what the speaker says.
	Text string

	// End reports whether the speaker wants the conversation to end after
	// this line. The state machine consumes this directly; conversation
	// termination is never signaled through errors.
	End bool
}

// Generator issues generation requests on behalf of the dialogue core.
type Generator struct {
	llm llm.Provider
	log *slog.Logger
}

// NewGenerator creates a Generator. A nil logger defaults to slog.Default().
func NewGenerator(provider llm.Provider, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{llm: provider, log: log}
}

// SummarizeRelationship condenses the retrieved nodes into a short prose
// description of viewer's relationship with subject.
//
// Failures propagate: the relationship summary anchors the narrow retrieval
// pass of a dialogue turn, so a turn cannot proceed without it.
func (g *Generator) SummarizeRelationship(ctx context.Context, viewer, subject *persona.Persona, retrieved map[string][]*memory.Node, focalPoints []string) (string, error) {
	stmts := statements(flattenRetrieved(retrieved, focalPoints))
	response, err := g.llm.Generate(ctx, relationshipPrompt(viewer, subject, stmts))
	if err != nil {
		return "", newGenerationError("SummarizeRelationship", err)
	}
	return strings.TrimSpace(response), nil
}

// SummarizeIdeas condenses the retrieved nodes into a synthesis relevant to
// currContext.
//
// Failures are suppressed: the summary is only a soft hint to later
// generation, so availability wins over completeness. On failure the result
// is an empty string and the error is logged at warn.
func (g *Generator) SummarizeIdeas(ctx context.Context, viewer *persona.Persona, retrieved map[string][]*memory.Node, focalPoints []string, currContext string) string {
	stmts := statements(flattenRetrieved(retrieved, focalPoints))
	response, err := g.llm.Generate(ctx, ideasPrompt(viewer, stmts, currContext))
	if err != nil {
		g.log.Warn("idea summarization failed, continuing without it",
			"persona", viewer.Name, "error", err)
		return ""
	}
	return strings.TrimSpace(response)
}

// SynthesizeIdeas answers a direct question from the retrieved nodes. Used
// by the analysis session; failures are suppressed the same way as
// SummarizeIdeas.
func (g *Generator) SynthesizeIdeas(ctx context.Context, p *persona.Persona, nodes []*memory.Node, question string) string {
	response, err := g.llm.Generate(ctx, synthesizeIdeasPrompt(p, statements(nodes), question))
	if err != nil {
		g.log.Warn("idea synthesis failed, continuing without it",
			"persona", p.Name, "error", err)
		return ""
	}
	return strings.TrimSpace(response)
}

// GenerateUtterance produces the speaker's next line and the end-of-
// conversation signal. Failures propagate; a malformed reply is a
// generation failure.
func (g *Generator) GenerateUtterance(ctx context.Context, speaker, listener *persona.Persona, retrieved map[string][]*memory.Node, focalPoints []string, currContext string, transcript []memory.DialogueLine) (Utterance, error) {
	stmts := statements(flattenRetrieved(retrieved, focalPoints))
	response, err := g.llm.Generate(ctx, utterancePrompt(speaker, listener, stmts, currContext, transcript))
	if err != nil {
		return Utterance{}, newGenerationError("GenerateUtterance", err)
	}
	reply, err := parseUtterance(response)
	if err != nil {
		return Utterance{}, newGenerationError("GenerateUtterance", err)
	}
	return Utterance{Text: reply.Utterance, End: reply.End}, nil
}

// GenerateFullConversation produces an entire transcript in one call, for
// callers that do not need incremental turn-by-turn behavior.
func (g *Generator) GenerateFullConversation(ctx context.Context, init, target *persona.Persona, currContext, initIdeas, targetIdeas string) ([]memory.DialogueLine, error) {
	response, err := g.llm.Generate(ctx, fullConversationPrompt(init, target, currContext, initIdeas, targetIdeas))
	if err != nil {
		return nil, newGenerationError("GenerateFullConversation", err)
	}
	lines, err := parseTranscript(response)
	if err != nil {
		return nil, newGenerationError("GenerateFullConversation", err)
	}
	return lines, nil
}

// InnerThought turns a whisper into a first-person thought of the persona.
// Failures propagate.
func (g *Generator) InnerThought(ctx context.Context, p *persona.Persona, whisper string) (string, error) {
	response, err := g.llm.Generate(ctx, innerThoughtPrompt(p, whisper))
	if err != nil {
		return "", newGenerationError("InnerThought", err)
	}
	thought := strings.TrimSpace(response)
	if thought == "" {
		return "", newGenerationError("InnerThought", ErrMalformedOutput)
	}
	return thought, nil
}

// EventTriple derives a (subject, predicate, object) triple describing the
// given text. Failures propagate.
func (g *Generator) EventTriple(ctx context.Context, p *persona.Persona, description string) (subject, predicate, object string, err error) {
	response, err := g.llm.Generate(ctx, triplePrompt(p, description))
	if err != nil {
		return "", "", "", newGenerationError("EventTriple", err)
	}
	subject, predicate, object, err = parseTriple(response)
	if err != nil {
		return "", "", "", newGenerationError("EventTriple", err)
	}
	return subject, predicate, object, nil
}

// PoignancyScore rates the importance of a new memory on a 1-10 scale.
//
// When the originating description contains IdleMarker the score is fixed at
// 1 without a generation call. Events and thoughts are rated from the
// description itself; chats are rated from the persona's current action
// description.
func (g *Generator) PoignancyScore(ctx context.Context, p *persona.Persona, kind memory.Kind, description string) (float64, error) {
	if strings.Contains(description, IdleMarker) {
		return 1, nil
	}

	var prompt string
	switch kind {
	case memory.KindChat:
		prompt = chatPoignancyPrompt(p, p.CurrentAction)
	default:
		prompt = eventPoignancyPrompt(p, description)
	}

	response, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return 0, newGenerationError("PoignancyScore", err)
	}
	score, err := parseScore(response, 1, 10)
	if err != nil {
		return 0, newGenerationError("PoignancyScore", err)
	}
	return score, nil
}

// SafetyScore rates how problematic a line of user input is on a 1-10
// scale. The analysis session refuses to respond at or above its threshold.
func (g *Generator) SafetyScore(ctx context.Context, line string) (float64, error) {
	response, err := g.llm.Generate(ctx, safetyPrompt(line))
	if err != nil {
		return 0, newGenerationError("SafetyScore", err)
	}
	score, err := parseScore(response, 1, 10)
	if err != nil {
		return 0, newGenerationError("SafetyScore", err)
	}
	return score, nil
}

// NextConvoLine produces the persona's next reply in an analysis session.
// Failures propagate.
func (g *Generator) NextConvoLine(ctx context.Context, p *persona.Persona, interlocutor string, convo []memory.DialogueLine, idea string) (string, error) {
	response, err := g.llm.Generate(ctx, nextLinePrompt(p, interlocutor, convo, idea))
	if err != nil {
		return "", newGenerationError("NextConvoLine", err)
	}
	line := strings.TrimSpace(response)
	if line == "" {
		return "", newGenerationError("NextConvoLine", ErrMalformedOutput)
	}
	return line, nil
}
