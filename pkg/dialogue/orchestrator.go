// Package dialogue drives conversations between personas.
//
// The orchestrator is a bounded turn-taking state machine: each turn
// retrieves context from the speaker's memory, asks the generation
// capability for an utterance plus an explicit end-of-conversation signal,
// and appends to the transcript. Turns are strictly sequential; the
// transcript's append order is the single source of truth for what was said
// when. A one-shot variant generates the whole transcript in a single call
// for hosts that do not need incremental behavior.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/snowflake"

	"github.com/simulacra-labs/simulacra-go/pkg/cognition"
	"github.com/simulacra-labs/simulacra-go/pkg/memory"
	"github.com/simulacra-labs/simulacra-go/pkg/persona"
	"github.com/simulacra-labs/simulacra-go/pkg/retrieval"
)

const (
	// DefaultMaxTurns is the outer-iteration cap: each outer turn gives
	// both personas one utterance, so 8 outer turns bound a conversation
	// at 16 utterances.
	DefaultMaxTurns = 8

	// broadTopN is the retrieval depth of the per-turn relationship pass.
	broadTopN = 50

	// narrowTopN is the retrieval depth of the per-turn context pass.
	narrowTopN = 15

	// oneShotTopN is the retrieval depth of the one-shot idea pass.
	oneShotTopN = 25

	// transcriptTail is how many trailing transcript lines feed the
	// third focal point of the narrow pass.
	transcriptTail = 4
)

// EndReason records which terminal state a conversation reached.
type EndReason string

const (
	// EndedByModel means a speaker signaled the end of the conversation.
	EndedByModel EndReason = "ended_by_model"

	// EndedByTurnLimit means the outer-turn cap was reached with neither
	// party signaling an end.
	EndedByTurnLimit EndReason = "ended_by_turn_limit"
)

// Conversation is the result of one dialogue session. The transcript is
// append-only while the session runs and owned exclusively by the
// orchestrator invocation that created it; after the session it belongs to
// the caller.
type Conversation struct {
	// ID uniquely identifies the session.
	ID int64

	// Transcript is the ordered sequence of [speaker, utterance] pairs.
	Transcript []memory.DialogueLine

	// End is the terminal state the session reached.
	End EndReason

	// Summary is a short action-description string for display, derived
	// from the opening line (see SummarizeConvo).
	Summary string
}

// Orchestrator runs conversations between pairs of personas.
//
// Execution is single-threaded and synchronous per conversation: every
// retrieval and generation call blocks until it returns, and no two turns of
// one invocation overlap. One Orchestrator may serve many conversations.
type Orchestrator struct {
	engine   *retrieval.Engine
	gen      *cognition.Generator
	ids      *snowflake.Node
	log      *slog.Logger
	maxTurns int
}

// NewOrchestrator creates an orchestrator with the default turn limit.
// A nil logger defaults to slog.Default().
func NewOrchestrator(engine *retrieval.Engine, gen *cognition.Generator, log *slog.Logger) (*Orchestrator, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("dialogue: id generator: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		engine:   engine,
		gen:      gen,
		ids:      node,
		log:      log,
		maxTurns: DefaultMaxTurns,
	}, nil
}

// SetMaxTurns overrides the outer-iteration cap. Values below 1 are ignored.
func (o *Orchestrator) SetMaxTurns(n int) {
	if n >= 1 {
		o.maxTurns = n
	}
}

// Converse runs the iterative turn-by-turn conversation between init and
// target, starting with init speaking.
//
// A fatal generation failure during a turn aborts the conversation attempt
// and no partial turn is appended; the caller decides whether to retry the
// whole conversation.
func (o *Orchestrator) Converse(ctx context.Context, init, target *persona.Persona) (*Conversation, error) {
	conv := &Conversation{ID: o.ids.Generate().Int64()}
	o.log.Debug("starting conversation",
		"id", conv.ID, "init", init.Name, "target", target.Name)

	end := EndedByTurnLimit
outer:
	for turn := 0; turn < o.maxTurns; turn++ {
		// Both parties speak once per outer turn, but an end signal
		// stops the session immediately, even mid-pair.
		for _, pair := range [][2]*persona.Persona{{init, target}, {target, init}} {
			ended, err := o.takeTurn(ctx, pair[0], pair[1], conv)
			if err != nil {
				return nil, err
			}
			if ended {
				end = EndedByModel
				break outer
			}
		}
	}

	conv.End = end
	conv.Summary = SummarizeConvo(conv.Transcript)
	o.log.Debug("conversation finished",
		"id", conv.ID, "end", conv.End, "utterances", len(conv.Transcript))
	return conv, nil
}

// takeTurn executes one half-turn: speaker produces one utterance directed
// at listener. The transcript is only appended once the whole turn has
// succeeded, so a failed turn leaves the conversation untouched.
func (o *Orchestrator) takeTurn(ctx context.Context, speaker, listener *persona.Persona, conv *Conversation) (ended bool, err error) {
	// Broad pass: everything the speaker remembers about the listener.
	broadFocal := []string{listener.Name}
	broad, err := o.engine.Retrieve(ctx, speaker.Memory, broadFocal, broadTopN)
	if err != nil {
		return false, err
	}

	relationship, err := o.gen.SummarizeRelationship(ctx, speaker, listener, broad, broadFocal)
	if err != nil {
		return false, err
	}

	// Narrow pass: the relationship summary, what the listener is doing,
	// and the tail of the conversation so far.
	narrowFocal := []string{
		relationship,
		fmt.Sprintf("%s is %s", listener.Name, listener.CurrentAction),
	}
	if tail := transcriptTailString(conv.Transcript); tail != "" {
		narrowFocal = append(narrowFocal, tail)
	}
	narrow, err := o.engine.Retrieve(ctx, speaker.Memory, narrowFocal, narrowTopN)
	if err != nil {
		return false, err
	}

	currContext := cognition.ConversationPreamble(speaker, listener)
	utt, err := o.gen.GenerateUtterance(ctx, speaker, listener, narrow, narrowFocal, currContext, conv.Transcript)
	if err != nil {
		return false, err
	}

	conv.Transcript = append(conv.Transcript, memory.DialogueLine{
		Speaker:   speaker.Name,
		Utterance: utt.Text,
	})
	return utt.End, nil
}

// ConverseOneShot runs the single-call variant: one relationship-and-idea
// retrieval pass per participant, then one generation call that produces the
// entire transcript.
func (o *Orchestrator) ConverseOneShot(ctx context.Context, init, target *persona.Persona) (*Conversation, error) {
	conv := &Conversation{ID: o.ids.Generate().Int64()}
	currContext := cognition.ConversationPreamble(init, target)

	ideas := make([]string, 2)
	pairs := [][2]*persona.Persona{{init, target}, {target, init}}
	for i, pair := range pairs {
		viewer, subject := pair[0], pair[1]

		broadFocal := []string{subject.Name}
		broad, err := o.engine.Retrieve(ctx, viewer.Memory, broadFocal, broadTopN)
		if err != nil {
			return nil, err
		}
		relationship, err := o.gen.SummarizeRelationship(ctx, viewer, subject, broad, broadFocal)
		if err != nil {
			return nil, err
		}

		ideaFocal := []string{
			relationship,
			fmt.Sprintf("%s is %s", subject.Name, subject.CurrentAction),
		}
		retrieved, err := o.engine.Retrieve(ctx, viewer.Memory, ideaFocal, oneShotTopN)
		if err != nil {
			return nil, err
		}
		ideas[i] = o.gen.SummarizeIdeas(ctx, viewer, retrieved, ideaFocal, currContext)
	}

	transcript, err := o.gen.GenerateFullConversation(ctx, init, target, currContext, ideas[0], ideas[1])
	if err != nil {
		return nil, err
	}

	conv.Transcript = transcript
	conv.End = EndedByModel
	conv.Summary = SummarizeConvo(conv.Transcript)
	return conv, nil
}

// transcriptTailString renders the last transcriptTail lines of the
// transcript as "speaker: utterance\n" concatenation, or "" for an empty
// transcript.
func transcriptTailString(transcript []memory.DialogueLine) string {
	if len(transcript) == 0 {
		return ""
	}
	start := len(transcript) - transcriptTail
	if start < 0 {
		start = 0
	}
	var b strings.Builder
	for _, line := range transcript[start:] {
		b.WriteString(line.Speaker)
		b.WriteString(": ")
		b.WriteString(line.Utterance)
		b.WriteByte('\n')
	}
	return b.String()
}

// SummarizeConvo produces a short action-description string from a finished
// transcript, for external display.
//
// The heuristic looks only at the opening line: an empty transcript yields
// the fixed fallback phrase, otherwise the topic is the first 50 characters
// of the first utterance (truncated to 47 plus an ellipsis when the
// utterance runs to 50 or more), embedded in a fixed template.
func SummarizeConvo(transcript []memory.DialogueLine) string {
	if len(transcript) == 0 {
		return "had a conversation"
	}

	topic := transcript[0].Utterance
	if topic == "" {
		topic = "various topics"
	}
	if len(topic) >= 50 {
		topic = topic[:47] + "..."
	}
	return fmt.Sprintf("conversing about %s", topic)
}
