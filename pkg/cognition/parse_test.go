package cognition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     float64
	}{
		{"json object", `{"score": 7}`, 7},
		{"fenced json", "```json\n{\"score\": 4}\n```", 4},
		{"json with prose", `Sure! Here is the rating: {"score": 9.5}`, 9.5},
		{"bare number fallback", "I would rate this event a 6 out of 10.", 6},
		{"decimal fallback", "3.5", 3.5},
		{"clamped high", `{"score": 42}`, 10},
		{"clamped low", `{"score": 0}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScore(tt.response, 1, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseScoreMalformed(t *testing.T) {
	_, err := parseScore("no idea, sorry", 1, 10)
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestParseUtterance(t *testing.T) {
	reply, err := parseUtterance(`{"utterance": "Hi Klaus, how is the paper going?", "end": false}`)
	require.NoError(t, err)
	assert.Equal(t, "Hi Klaus, how is the paper going?", reply.Utterance)
	assert.False(t, reply.End)

	reply, err = parseUtterance("```json\n{\"utterance\": \"See you at the party!\", \"end\": true}\n```")
	require.NoError(t, err)
	assert.Equal(t, "See you at the party!", reply.Utterance)
	assert.True(t, reply.End)
}

func TestParseUtteranceMalformed(t *testing.T) {
	for _, response := range []string{
		"just prose, no json",
		`{"utterance": "", "end": false}`,
		`{"end": true}`,
	} {
		_, err := parseUtterance(response)
		assert.ErrorIs(t, err, ErrMalformedOutput, "response %q", response)
	}
}

func TestParseTranscript(t *testing.T) {
	lines, err := parseTranscript(`[["Isabella", "Hi Klaus!"], ["Klaus", "Hello Isabella."]]`)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Isabella", lines[0].Speaker)
	assert.Equal(t, "Hi Klaus!", lines[0].Utterance)
	assert.Equal(t, "Klaus", lines[1].Speaker)
}

func TestParseTranscriptSkipsBadRows(t *testing.T) {
	lines, err := parseTranscript(`[["Isabella", "Hi"], ["Klaus"], ["Maria", ""]]`)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Isabella", lines[0].Speaker)
}

func TestParseTranscriptMalformed(t *testing.T) {
	_, err := parseTranscript("no array here")
	assert.ErrorIs(t, err, ErrMalformedOutput)

	_, err = parseTranscript(`[["Klaus"], ["Maria", ""]]`)
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestParseTriple(t *testing.T) {
	s, p, o, err := parseTriple(`{"subject": "Klaus", "predicate": "writes", "object": "paper"}`)
	require.NoError(t, err)
	assert.Equal(t, "Klaus", s)
	assert.Equal(t, "writes", p)
	assert.Equal(t, "paper", o)
}

func TestParseTripleIncomplete(t *testing.T) {
	_, _, _, err := parseTriple(`{"subject": "Klaus", "predicate": "writes"}`)
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestStripCodeBlocks(t *testing.T) {
	assert.Equal(t, `{"score": 1}`, stripCodeBlocks("```json\n{\"score\": 1}\n```"))
	assert.Equal(t, "plain", stripCodeBlocks("plain"))
}
