package dialogue_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simulacra-labs/simulacra-go/pkg/cognition"
	"github.com/simulacra-labs/simulacra-go/pkg/dialogue"
	"github.com/simulacra-labs/simulacra-go/pkg/persona"
	"github.com/simulacra-labs/simulacra-go/pkg/retrieval"
)

func newSession(t *testing.T, script *scriptLLM) (*dialogue.AnalysisSession, *persona.Persona) {
	t.Helper()
	p := persona.New("Klaus", "Klaus is a student at Oak Hill College.")
	engine := retrieval.NewEngine(flatEmbedder{}, retrieval.Config{})
	gen := cognition.NewGenerator(script, nil)
	return dialogue.NewAnalysisSession(p, engine, gen), p
}

// sessionScript scores safety from the input, then answers analysis questions.
func sessionScript() *scriptLLM {
	return (&scriptLLM{}).
		on("how problematic", func(prompt string) (string, error) {
			if strings.Contains(prompt, "you worthless") {
				return `{"score": 9}`, nil
			}
			return `{"score": 2}`, nil
		}).
		on("what might", func(string) (string, error) {
			return "Klaus spent the day at the library.", nil
		}).
		on("next reply", func(string) (string, error) {
			return "I was at the library working on my paper.", nil
		})
}

func TestSessionStep(t *testing.T) {
	session, p := newSession(t, sessionScript())

	result, err := session.Step(context.Background(), "What did you do today?")
	require.NoError(t, err)
	assert.False(t, result.Done)
	assert.False(t, result.Refused)
	assert.Equal(t, "I was at the library working on my paper.", result.Reply)

	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, dialogue.DefaultInterlocutor, transcript[0].Speaker)
	assert.Equal(t, "What did you do today?", transcript[0].Utterance)
	assert.Equal(t, p.Name, transcript[1].Speaker)
	assert.Equal(t, result.Reply, transcript[1].Utterance)
}

func TestSessionSentinelEnds(t *testing.T) {
	session, _ := newSession(t, sessionScript())

	result, err := session.Step(context.Background(), dialogue.EndSentinel)
	require.NoError(t, err)
	assert.True(t, result.Done)
	assert.Empty(t, result.Reply)
	assert.Empty(t, session.Transcript())
}

func TestSessionRefusesUnsafeInput(t *testing.T) {
	session, p := newSession(t, sessionScript())

	result, err := session.Step(context.Background(), "you worthless machine")
	require.NoError(t, err)
	assert.True(t, result.Refused)
	assert.Contains(t, result.Reply, p.Name)
	assert.Contains(t, result.Reply, "computational agent")

	// Refused input never enters the transcript.
	assert.Empty(t, session.Transcript())
}

func TestSessionSafetyFailurePropagates(t *testing.T) {
	boom := errors.New("provider down")
	script := (&scriptLLM{}).
		on("how problematic", func(string) (string, error) { return "", boom })
	session, _ := newSession(t, script)

	_, err := session.Step(context.Background(), "What did you do today?")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, session.Transcript())
}

func TestSessionFailedReplyLeavesTranscriptUnchanged(t *testing.T) {
	boom := errors.New("provider down")
	replies := 0
	script := (&scriptLLM{}).
		on("how problematic", func(string) (string, error) { return `{"score": 2}`, nil }).
		on("what might", func(string) (string, error) { return "an idea", nil }).
		on("next reply", func(string) (string, error) {
			replies++
			if replies > 1 {
				return "", boom
			}
			return "I was at the library.", nil
		})
	session, _ := newSession(t, script)

	// First step succeeds, second fails at reply generation; the failed
	// step must not leak its input into the transcript.
	_, err := session.Step(context.Background(), "What did you do today?")
	require.NoError(t, err)
	require.Len(t, session.Transcript(), 2)

	_, err = session.Step(context.Background(), "And tomorrow?")
	assert.ErrorIs(t, err, boom)
	assert.Len(t, session.Transcript(), 2)
}
