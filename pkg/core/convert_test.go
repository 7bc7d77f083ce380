package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simulacra-labs/simulacra-go/pkg/memory"
	"github.com/simulacra-labs/simulacra-go/pkg/storage"
)

func TestNodeRecordRoundTrip(t *testing.T) {
	src := memory.NewStore()
	created := time.Date(2023, 2, 13, 8, 0, 0, 0, time.UTC)
	exp := created.Add(30 * 24 * time.Hour)

	src.AddEvent(created, nil, "Klaus", "is", "reading", "Klaus is reading",
		[]string{"Klaus", "reading"}, 3, "Klaus is reading", []float64{0.1, 0.2})
	src.AddThought(created.Add(time.Minute), &exp, "Klaus", "worried about", "paper",
		"Klaus is worried about his paper", []string{"paper"}, 6,
		"Klaus is worried about his paper", []float64{0.3, 0.4})
	src.AddChat(created.Add(2*time.Minute), nil, "Klaus", "chat with", "Maria",
		"conversing about physics", []string{"Klaus", "Maria"}, 4,
		"conversing about physics", []float64{0.5, 0.6},
		[]memory.DialogueLine{{Speaker: "Klaus", Utterance: "hey"}})
	src.MarkAccessed(0, created.Add(time.Hour))

	records := make([]*storage.Record, 0, src.Len())
	for _, n := range src.All() {
		records = append(records, nodeToRecord("Klaus", n))
	}

	dst := memory.NewStore()
	require.NoError(t, replayRecords(dst, records))
	require.Equal(t, src.Len(), dst.Len())

	for _, want := range src.All() {
		got := dst.Get(want.ID)
		require.NotNil(t, got)
		assert.Equal(t, want.Kind, got.Kind)
		assert.Equal(t, want.Description, got.Description)
		assert.Equal(t, want.Keywords, got.Keywords)
		assert.Equal(t, want.Poignancy, got.Poignancy)
		assert.Equal(t, want.Embedding, got.Embedding)
		assert.Equal(t, want.EmbeddingKey, got.EmbeddingKey)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, want.LastAccessed.Equal(got.LastAccessed))
		assert.Equal(t, want.Filling, got.Filling)
		if want.Expiration == nil {
			assert.Nil(t, got.Expiration)
		} else {
			require.NotNil(t, got.Expiration)
			assert.True(t, want.Expiration.Equal(*got.Expiration))
		}
	}

	// Keyword indices are rebuilt too.
	assert.Len(t, dst.ByKeyword(memory.KindEvent, "klaus"), 1)
	assert.Len(t, dst.ByKeyword(memory.KindChat, "maria"), 1)
}

func TestReplayRecordsRejectsGaps(t *testing.T) {
	now := time.Now()
	records := []*storage.Record{
		{ID: 0, Kind: "event", CreatedAt: now, Description: "first"},
		{ID: 2, Kind: "event", CreatedAt: now, Description: "gap"},
	}
	err := replayRecords(memory.NewStore(), records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of sequence")
}

func TestReplayRecordsRejectsUnknownKind(t *testing.T) {
	records := []*storage.Record{
		{ID: 0, Kind: "dream", CreatedAt: time.Now(), Description: "?"},
	}
	err := replayRecords(memory.NewStore(), records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}
