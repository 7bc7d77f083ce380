// Package persona describes the agents that populate the simulated world.
//
// The dialogue core consumes a persona as a read-only descriptor (display
// name, current action, current location) plus its associative memory store.
// Only the persona's own cognitive pipeline ever writes to its store.
package persona

import (
	"errors"
	"time"

	"github.com/simulacra-labs/simulacra-go/pkg/memory"
)

// ErrNotFound is returned by a Directory when no persona has the given name.
var ErrNotFound = errors.New("persona not found")

// Persona is one autonomous agent in the simulation.
type Persona struct {
	// Name is the display name, used as the speaker label in transcripts
	// and as a focal point when other personas retrieve memories about
	// this one.
	Name string

	// Identity is a short prose self-description (age, traits, lifestyle)
	// folded into generation prompts.
	Identity string

	// CurrentAction describes what the persona is doing right now
	// (e.g. "watering the garden"). Supplied by the world model.
	CurrentAction string

	// CurrentLocation describes where the persona currently is.
	// Supplied by the world model.
	CurrentLocation string

	// CurrTime is the persona's simulation clock, used as the creation
	// timestamp of new memories.
	CurrTime time.Time

	// Memory is the persona's associative memory store. Single writer:
	// this persona's own pipeline.
	Memory *memory.Store
}

// New creates a persona with an empty memory store and the clock set to now.
func New(name, identity string) *Persona {
	return &Persona{
		Name:     name,
		Identity: identity,
		CurrTime: time.Now(),
		Memory:   memory.NewStore(),
	}
}

// Directory resolves persona names to personas. The whisper history loader
// uses it to route [name, whisper] rows; implementations are typically backed
// by the world model.
type Directory interface {
	// Lookup returns the persona with the given display name, or
	// ErrNotFound.
	Lookup(name string) (*Persona, error)
}

// MapDirectory is a Directory backed by an in-memory map keyed by name.
type MapDirectory map[string]*Persona

// Lookup implements Directory.
func (d MapDirectory) Lookup(name string) (*Persona, error) {
	p, ok := d[name]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}
