package core

import (
	"fmt"
	"sort"

	"github.com/simulacra-labs/simulacra-go/pkg/memory"
	"github.com/simulacra-labs/simulacra-go/pkg/storage"
)

// nodeToRecord flattens a memory node into a storage record owned by the
// named persona. Keywords are sorted so repeated saves produce identical
// rows.
func nodeToRecord(personaName string, n *memory.Node) *storage.Record {
	keywords := make([]string, 0, len(n.Keywords))
	for kw := range n.Keywords {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	var filling [][2]string
	if len(n.Filling) > 0 {
		filling = make([][2]string, 0, len(n.Filling))
		for _, line := range n.Filling {
			filling = append(filling, [2]string{line.Speaker, line.Utterance})
		}
	}

	return &storage.Record{
		Persona:      personaName,
		ID:           n.ID,
		Kind:         string(n.Kind),
		CreatedAt:    n.CreatedAt,
		Expiration:   n.Expiration,
		Subject:      n.Subject,
		Predicate:    n.Predicate,
		Object:       n.Object,
		Description:  n.Description,
		Keywords:     keywords,
		Poignancy:    n.Poignancy,
		Embedding:    n.Embedding,
		EmbeddingKey: n.EmbeddingKey,
		LastAccessed: n.LastAccessed,
		Filling:      filling,
	}
}

// replayRecords rebuilds a memory store from persisted records.
//
// Records must be ordered by id; replaying them in that order reassigns the
// same sequential ids the nodes had when saved. A gap or out-of-order id
// means the stored rows do not describe a valid store, so replay fails
// rather than silently renumbering.
func replayRecords(store *memory.Store, records []*storage.Record) error {
	for _, rec := range records {
		if want := int64(store.Len()); rec.ID != want {
			return fmt.Errorf("record id %d out of sequence (want %d)", rec.ID, want)
		}

		var filling []memory.DialogueLine
		if len(rec.Filling) > 0 {
			filling = make([]memory.DialogueLine, 0, len(rec.Filling))
			for _, pair := range rec.Filling {
				filling = append(filling, memory.DialogueLine{Speaker: pair[0], Utterance: pair[1]})
			}
		}

		var node *memory.Node
		switch memory.Kind(rec.Kind) {
		case memory.KindEvent:
			node = store.AddEvent(rec.CreatedAt, rec.Expiration, rec.Subject, rec.Predicate, rec.Object,
				rec.Description, rec.Keywords, rec.Poignancy, rec.EmbeddingKey, rec.Embedding)
		case memory.KindThought:
			node = store.AddThought(rec.CreatedAt, rec.Expiration, rec.Subject, rec.Predicate, rec.Object,
				rec.Description, rec.Keywords, rec.Poignancy, rec.EmbeddingKey, rec.Embedding)
		case memory.KindChat:
			node = store.AddChat(rec.CreatedAt, rec.Expiration, rec.Subject, rec.Predicate, rec.Object,
				rec.Description, rec.Keywords, rec.Poignancy, rec.EmbeddingKey, rec.Embedding, filling)
		default:
			return fmt.Errorf("record id %d has unknown kind %q", rec.ID, rec.Kind)
		}

		if !rec.LastAccessed.IsZero() {
			store.MarkAccessed(node.ID, rec.LastAccessed)
		}
	}
	return nil
}
