package memory

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is the associative memory store of exactly one persona.
//
// The store follows the arena + index pattern: all nodes live in a single
// growable slice in insertion order, and the id, kind, and keyword indices
// hold offsets into that slice. Nodes are never removed or reordered, so a
// node's offset, and therefore its id, is stable for the store's lifetime.
//
// A store has a single writer: the owning persona's cognitive pipeline.
// During a two-party conversation both sides read each other's stores, but
// each side only ever writes its own, so there is no shared-mutable-state
// hazard between participants. The internal lock exists so a host may read a
// store (e.g. for display) while the owning pipeline appends to it.
type Store struct {
	mu sync.RWMutex

	// nodes is the arena. Offset i holds the node with ID int64(i).
	nodes []*Node

	// byKind holds arena offsets per node kind, in insertion order.
	byKind map[Kind][]int

	// keywords maps kind -> lowercased keyword -> arena offsets.
	keywords map[Kind]map[string][]int
}

// NewStore creates an empty associative memory store.
func NewStore() *Store {
	return &Store{
		byKind: make(map[Kind][]int),
		keywords: map[Kind]map[string][]int{
			KindEvent:   make(map[string][]int),
			KindThought: make(map[string][]int),
			KindChat:    make(map[string][]int),
		},
	}
}

// AddEvent records a perceived event and returns the created node.
//
// The node receives the next sequential id. Keywords are indexed
// case-insensitively.
func (s *Store) AddEvent(created time.Time, expiration *time.Time, subject, predicate, object, description string, keywords []string, poignancy float64, embeddingKey string, embedding []float64) *Node {
	return s.add(KindEvent, created, expiration, subject, predicate, object, description, keywords, poignancy, embeddingKey, embedding, nil)
}

// AddThought records a synthesized thought and returns the created node.
func (s *Store) AddThought(created time.Time, expiration *time.Time, subject, predicate, object, description string, keywords []string, poignancy float64, embeddingKey string, embedding []float64) *Node {
	return s.add(KindThought, created, expiration, subject, predicate, object, description, keywords, poignancy, embeddingKey, embedding, nil)
}

// AddChat records a conversation the persona took part in and returns the
// created node. filling holds the [speaker, utterance] pairs of the exchange.
func (s *Store) AddChat(created time.Time, expiration *time.Time, subject, predicate, object, description string, keywords []string, poignancy float64, embeddingKey string, embedding []float64, filling []DialogueLine) *Node {
	return s.add(KindChat, created, expiration, subject, predicate, object, description, keywords, poignancy, embeddingKey, embedding, filling)
}

func (s *Store) add(kind Kind, created time.Time, expiration *time.Time, subject, predicate, object, description string, keywords []string, poignancy float64, embeddingKey string, embedding []float64, filling []DialogueLine) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	kwSet := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if kw != "" {
			kwSet[normalizeKeyword(kw)] = struct{}{}
		}
	}

	node := &Node{
		ID:           int64(len(s.nodes)),
		Kind:         kind,
		CreatedAt:    created,
		Expiration:   expiration,
		Subject:      subject,
		Predicate:    predicate,
		Object:       object,
		Description:  description,
		Keywords:     kwSet,
		Poignancy:    poignancy,
		Embedding:    embedding,
		EmbeddingKey: embeddingKey,
		LastAccessed: created,
		Filling:      filling,
	}

	offset := len(s.nodes)
	s.nodes = append(s.nodes, node)
	s.byKind[kind] = append(s.byKind[kind], offset)
	for kw := range kwSet {
		s.keywords[kind][kw] = append(s.keywords[kind][kw], offset)
	}
	return node
}

// Len returns the total number of nodes in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Get returns the node with the given id, or nil if no such node exists.
func (s *Store) Get(id int64) *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || id >= int64(len(s.nodes)) {
		return nil
	}
	return s.nodes[id]
}

// All returns every node in chronological (insertion) order.
func (s *Store) All() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// ByKind returns all nodes of the given kind in chronological order.
func (s *Store) ByKind(kind Kind) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	offsets := s.byKind[kind]
	out := make([]*Node, 0, len(offsets))
	for _, off := range offsets {
		out = append(out, s.nodes[off])
	}
	return out
}

// ByKeyword returns all nodes of the given kind whose keyword set contains
// the term. Matching is case-insensitive. The result is in chronological
// order; it is empty when the keyword is unknown.
func (s *Store) ByKeyword(kind Kind, keyword string) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	offsets := s.keywords[kind][normalizeKeyword(keyword)]
	out := make([]*Node, 0, len(offsets))
	for _, off := range offsets {
		out = append(out, s.nodes[off])
	}
	return out
}

// Latest returns the n most recent nodes of the given kind, most recent
// first. If fewer than n exist, all of them are returned.
func (s *Store) Latest(kind Kind, n int) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	offsets := s.byKind[kind]
	if n > len(offsets) {
		n = len(offsets)
	}
	out := make([]*Node, 0, n)
	for i := len(offsets) - 1; i >= len(offsets)-n; i-- {
		out = append(out, s.nodes[offsets[i]])
	}
	return out
}

// Since returns all nodes of the given kind created at or after t, in
// chronological order.
func (s *Store) Since(kind Kind, t time.Time) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	offsets := s.byKind[kind]
	// Insertion order is chronological, so binary search for the cutoff.
	i := sort.Search(len(offsets), func(i int) bool {
		return !s.nodes[offsets[i]].CreatedAt.Before(t)
	})
	out := make([]*Node, 0, len(offsets)-i)
	for ; i < len(offsets); i++ {
		out = append(out, s.nodes[offsets[i]])
	}
	return out
}

// MarkAccessed records that the node with the given id was returned by
// retrieval at time t. Unknown ids are ignored.
func (s *Store) MarkAccessed(id int64, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= int64(len(s.nodes)) {
		return
	}
	s.nodes[id].LastAccessed = t
}

func normalizeKeyword(kw string) string {
	return strings.ToLower(strings.TrimSpace(kw))
}
