package cognition_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simulacra-labs/simulacra-go/pkg/cognition"
	"github.com/simulacra-labs/simulacra-go/pkg/llm"
	"github.com/simulacra-labs/simulacra-go/pkg/memory"
	"github.com/simulacra-labs/simulacra-go/pkg/persona"
)

// mockLLM answers every Generate call with respond(prompt).
type mockLLM struct {
	respond func(prompt string) (string, error)
	calls   int
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ ...llm.GenerateOption) (string, error) {
	m.calls++
	return m.respond(prompt)
}

func (m *mockLLM) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	return m.Generate(ctx, messages[len(messages)-1].Content, opts...)
}

func (m *mockLLM) Close() error { return nil }

func fixed(response string) *mockLLM {
	return &mockLLM{respond: func(string) (string, error) { return response, nil }}
}

func failing(err error) *mockLLM {
	return &mockLLM{respond: func(string) (string, error) { return "", err }}
}

func testPersona(name string) *persona.Persona {
	p := persona.New(name, name+" is a test persona.")
	p.CurrentAction = "doing something"
	return p
}

func TestSummarizeRelationshipPropagatesFailure(t *testing.T) {
	boom := errors.New("provider down")
	gen := cognition.NewGenerator(failing(boom), nil)

	_, err := gen.SummarizeRelationship(context.Background(), testPersona("Klaus"), testPersona("Maria"), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, cognition.ErrGeneration)

	var genErr *cognition.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "SummarizeRelationship", genErr.Op)
}

func TestSummarizeIdeasSuppressesFailure(t *testing.T) {
	gen := cognition.NewGenerator(failing(errors.New("provider down")), nil)

	idea := gen.SummarizeIdeas(context.Background(), testPersona("Klaus"), nil, nil, "context")
	assert.Empty(t, idea)
}

func TestSynthesizeIdeasSuppressesFailure(t *testing.T) {
	gen := cognition.NewGenerator(failing(errors.New("provider down")), nil)

	idea := gen.SynthesizeIdeas(context.Background(), testPersona("Klaus"), nil, "what happened today?")
	assert.Empty(t, idea)
}

func TestGenerateUtterance(t *testing.T) {
	gen := cognition.NewGenerator(fixed(`{"utterance": "Hello there!", "end": false}`), nil)

	utt, err := gen.GenerateUtterance(context.Background(),
		testPersona("Isabella"), testPersona("Klaus"), nil, nil, "context", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", utt.Text)
	assert.False(t, utt.End)
}

func TestGenerateUtteranceMalformed(t *testing.T) {
	gen := cognition.NewGenerator(fixed("not json at all"), nil)

	_, err := gen.GenerateUtterance(context.Background(),
		testPersona("Isabella"), testPersona("Klaus"), nil, nil, "context", nil)
	assert.ErrorIs(t, err, cognition.ErrMalformedOutput)
}

func TestGenerateFullConversation(t *testing.T) {
	gen := cognition.NewGenerator(fixed(`[["Isabella", "Hi!"], ["Klaus", "Hey."]]`), nil)

	lines, err := gen.GenerateFullConversation(context.Background(),
		testPersona("Isabella"), testPersona("Klaus"), "context", "", "")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Isabella", lines[0].Speaker)
}

func TestEventTriple(t *testing.T) {
	gen := cognition.NewGenerator(fixed(`{"subject": "Maria", "predicate": "prepares", "object": "stream"}`), nil)

	s, p, o, err := gen.EventTriple(context.Background(), testPersona("Maria"), "Maria is preparing a stream")
	require.NoError(t, err)
	assert.Equal(t, []string{"Maria", "prepares", "stream"}, []string{s, p, o})
}

func TestPoignancyScoreIdleShortCircuit(t *testing.T) {
	provider := failing(errors.New("must not be called"))
	gen := cognition.NewGenerator(provider, nil)

	score, err := gen.PoignancyScore(context.Background(), testPersona("Klaus"),
		memory.KindEvent, "Klaus is idle")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
	assert.Zero(t, provider.calls, "idle descriptions skip the generation call")
}

func TestPoignancyScoreChatUsesCurrentAction(t *testing.T) {
	var prompt string
	provider := &mockLLM{respond: func(p string) (string, error) {
		prompt = p
		return `{"score": 6}`, nil
	}}
	gen := cognition.NewGenerator(provider, nil)

	p := testPersona("Maria")
	p.CurrentAction = "confessing to Klaus"
	score, err := gen.PoignancyScore(context.Background(), p, memory.KindChat, "some summary")
	require.NoError(t, err)
	assert.Equal(t, 6.0, score)
	assert.Contains(t, prompt, "confessing to Klaus")
}

func TestSafetyScore(t *testing.T) {
	gen := cognition.NewGenerator(fixed(`{"score": 9}`), nil)

	score, err := gen.SafetyScore(context.Background(), "something abusive")
	require.NoError(t, err)
	assert.Equal(t, 9.0, score)
}

func TestInnerThoughtRejectsEmpty(t *testing.T) {
	gen := cognition.NewGenerator(fixed("   "), nil)

	_, err := gen.InnerThought(context.Background(), testPersona("Klaus"), "whisper")
	assert.ErrorIs(t, err, cognition.ErrMalformedOutput)
}

func TestNextConvoLine(t *testing.T) {
	gen := cognition.NewGenerator(fixed("  I spent the day at the library.  "), nil)

	line, err := gen.NextConvoLine(context.Background(), testPersona("Klaus"),
		"Interviewer", nil, "idea")
	require.NoError(t, err)
	assert.Equal(t, "I spent the day at the library.", line)
}
