package dialogue

import (
	"context"
	"fmt"

	"github.com/simulacra-labs/simulacra-go/pkg/cognition"
	"github.com/simulacra-labs/simulacra-go/pkg/memory"
	"github.com/simulacra-labs/simulacra-go/pkg/persona"
	"github.com/simulacra-labs/simulacra-go/pkg/retrieval"
)

const (
	// EndSentinel is the input value that terminates an analysis session.
	EndSentinel = "end_convo"

	// safetyThreshold is the safety score at or above which the session
	// refuses to reply.
	safetyThreshold = 8

	// sessionTopN is the retrieval depth for each analysis question.
	sessionTopN = 50

	// DefaultInterlocutor is the display name for the human side of an
	// analysis session.
	DefaultInterlocutor = "Interviewer"
)

// AnalysisSession lets a host interrogate one persona about its memories.
//
// The session is a pure step function over (current transcript, next
// external input): each Step consumes one line of input and returns the
// outcome, so the host may source input from a terminal, a socket, or a
// test harness. There is no blocking input loop inside the core.
type AnalysisSession struct {
	persona      *persona.Persona
	engine       *retrieval.Engine
	gen          *cognition.Generator
	interlocutor string
	transcript   []memory.DialogueLine
}

// NewAnalysisSession opens an analysis session with the given persona.
func NewAnalysisSession(p *persona.Persona, engine *retrieval.Engine, gen *cognition.Generator) *AnalysisSession {
	return &AnalysisSession{
		persona:      p,
		engine:       engine,
		gen:          gen,
		interlocutor: DefaultInterlocutor,
	}
}

// StepResult is the outcome of feeding one input line to the session.
type StepResult struct {
	// Reply is the persona's response, or the advisory message when the
	// input was refused. Empty when Done.
	Reply string

	// Refused reports that the input tripped the safety threshold; the
	// transcript is unchanged and Reply holds the fixed advisory.
	Refused bool

	// Done reports that the session has ended (sentinel input).
	Done bool
}

// Step consumes one line of external input.
//
// The sentinel input ends the session. Otherwise the line is safety-scored;
// at or above the threshold the session refuses with a fixed advisory and
// leaves the transcript untouched. An accepted line triggers retrieval over
// the persona's memory, an idea synthesis, and a generated reply; input and
// reply are appended together once the reply has been produced, so a failed
// step leaves the transcript unchanged.
func (s *AnalysisSession) Step(ctx context.Context, input string) (StepResult, error) {
	if input == EndSentinel {
		return StepResult{Done: true}, nil
	}

	safety, err := s.gen.SafetyScore(ctx, input)
	if err != nil {
		return StepResult{}, err
	}
	if safety >= safetyThreshold {
		return StepResult{Reply: s.advisory(), Refused: true}, nil
	}

	retrieved, err := s.engine.Retrieve(ctx, s.persona.Memory, []string{input}, sessionTopN)
	if err != nil {
		return StepResult{}, err
	}
	idea := s.gen.SynthesizeIdeas(ctx, s.persona, retrieved[input], input)

	pending := append(cloneTranscript(s.transcript), memory.DialogueLine{
		Speaker:   s.interlocutor,
		Utterance: input,
	})
	reply, err := s.gen.NextConvoLine(ctx, s.persona, s.interlocutor, pending, idea)
	if err != nil {
		return StepResult{}, err
	}

	s.transcript = append(pending, memory.DialogueLine{
		Speaker:   s.persona.Name,
		Utterance: reply,
	})
	return StepResult{Reply: reply}, nil
}

// Transcript returns the session transcript accumulated so far.
func (s *AnalysisSession) Transcript() []memory.DialogueLine {
	return cloneTranscript(s.transcript)
}

// advisory is the fixed refusal message for unsafe input.
func (s *AnalysisSession) advisory() string {
	return fmt.Sprintf("%s is a computational agent, and as such, it may be inappropriate to attribute human agency to the agent in your communication.", s.persona.Name)
}

func cloneTranscript(t []memory.DialogueLine) []memory.DialogueLine {
	out := make([]memory.DialogueLine, len(t))
	copy(out, t)
	return out
}
