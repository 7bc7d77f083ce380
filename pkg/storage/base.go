// Package storage defines durable persistence for persona memories.
//
// A NodeStore holds flat records of memory nodes keyed by persona name and
// node id, so a simulation can be stopped and personas rebuilt later with
// their memories intact. The record type mirrors the memory node structure
// rather than importing it, keeping storage backends free of core
// dependencies.
package storage

import (
	"context"
	"time"
)

// Record is one persisted memory node.
type Record struct {
	// Persona is the owning persona's name; together with ID it forms
	// the record key.
	Persona string

	// ID is the node's sequential id within its persona's store.
	ID int64

	// Kind is the node category ("event", "thought", "chat").
	Kind string

	// CreatedAt is the node's creation time.
	CreatedAt time.Time

	// Expiration is when the node expires; nil means never.
	Expiration *time.Time

	// Subject, Predicate, Object form the node's semantic triple.
	Subject   string
	Predicate string
	Object    string

	// Description is the node's free-text content.
	Description string

	// Keywords is the node's keyword set.
	Keywords []string

	// Poignancy is the node's importance score.
	Poignancy float64

	// Embedding is the node's vector, serialized by the backend.
	Embedding []float64

	// EmbeddingKey is the exact string that was embedded.
	EmbeddingKey string

	// LastAccessed is the node's last retrieval time.
	LastAccessed time.Time

	// Filling holds [speaker, utterance] pairs for chat nodes.
	Filling [][2]string
}

// NodeStore is the interface every persistence backend must satisfy.
type NodeStore interface {
	// SaveNodes upserts records by (persona, id).
	SaveNodes(ctx context.Context, records []*Record) error

	// LoadNodes returns all records for a persona ordered by id, so the
	// caller can rebuild the store in insertion order. An unknown
	// persona yields an empty slice, not an error.
	LoadNodes(ctx context.Context, persona string) ([]*Record, error)

	// DeletePersona removes all records for a persona.
	DeletePersona(ctx context.Context, persona string) error

	// Close releases backend resources.
	Close() error
}
