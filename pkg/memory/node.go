// Package memory implements the associative memory of a single persona.
//
// A persona's memory is an append-only arena of nodes describing events it
// perceived, thoughts it formed, and chats it took part in. Auxiliary indices
// (by id, by keyword, by kind) store offsets into the arena, never pointers,
// so nodes are retrievable both chronologically and by direct lookup.
package memory

import "time"

// Kind identifies the category of a memory node.
//
// Nodes of different kinds are indexed separately, so keyword lookup and
// chronological traversal can be scoped to events, thoughts, or chats.
type Kind string

const (
	// KindEvent marks a memory of something the persona perceived.
	KindEvent Kind = "event"

	// KindThought marks a memory the persona synthesized itself,
	// including inner thoughts produced from whispers.
	KindThought Kind = "thought"

	// KindChat marks a memory of a conversation the persona took part in.
	KindChat Kind = "chat"
)

// DialogueLine is a single [speaker, utterance] pair inside a chat node's
// filling.
type DialogueLine struct {
	// Speaker is the display name of the persona who spoke.
	Speaker string `json:"speaker"`

	// Utterance is the text that was said.
	Utterance string `json:"utterance"`
}

// Node is a single memory record owned by one persona's Store.
//
// A node's ID, Poignancy, and Embedding are assigned exactly once at creation
// and never mutated afterwards; recording new information means creating a
// new node. The only mutable field is LastAccessed, which the retrieval
// engine updates whenever the node is returned.
type Node struct {
	// ID is a sequential integer unique within the owning store.
	// IDs are never reused and increase monotonically with insertion order,
	// so id ordering is total and consistent with chronological order.
	ID int64 `json:"id"`

	// Kind is the node category (event, thought, chat). Immutable.
	Kind Kind `json:"kind"`

	// CreatedAt is the simulation time at which the memory was formed.
	CreatedAt time.Time `json:"created_at"`

	// Expiration is when the memory stops being valid. Nil means the
	// memory never expires.
	Expiration *time.Time `json:"expiration,omitempty"`

	// Subject, Predicate, and Object form a semantic triple describing
	// the memory (e.g. "Klaus", "chat with", "Maria").
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`

	// Description is the free-text content of the memory.
	Description string `json:"description"`

	// Keywords is the set of terms under which the node is indexed.
	Keywords map[string]struct{} `json:"keywords"`

	// Poignancy is the importance score assigned at creation time,
	// in the range 1-10. Set once, never mutated.
	Poignancy float64 `json:"poignancy"`

	// Embedding is the vector representation of EmbeddingKey, produced by
	// the embedding provider at creation time. Set once, never mutated.
	Embedding []float64 `json:"embedding,omitempty"`

	// EmbeddingKey is the exact string that was embedded. For chat nodes
	// this may be just the utterance rather than the full description.
	EmbeddingKey string `json:"embedding_key"`

	// LastAccessed is updated whenever the node is returned by retrieval.
	// Distinct from CreatedAt.
	LastAccessed time.Time `json:"last_accessed"`

	// Filling holds the [speaker, utterance] pairs of the exchange that
	// produced a chat node. Empty for events and thoughts.
	Filling []DialogueLine `json:"filling,omitempty"`
}

// Expired reports whether the node has expired as of t.
//
// Nodes without an expiration never expire.
func (n *Node) Expired(t time.Time) bool {
	return n.Expiration != nil && t.After(*n.Expiration)
}

// SPO returns the node's semantic triple as a single tuple.
func (n *Node) SPO() (subject, predicate, object string) {
	return n.Subject, n.Predicate, n.Object
}
