// Package registry holds the durable set of forward destinations.
//
// The Registry wrapper is the only shared mutable state in the relay: the
// registration workflow writes through it and the dispatcher reads through
// it, each under one critical section covering a full load/save cycle.
package registry

import (
	"context"
	"errors"
	"sync"
)

// DestinationID is an opaque identifier of one forward target chat.
type DestinationID string

// ErrCorrupt marks durable registry state that exists but cannot be read.
// Absence of prior state is not corruption; a first run loads an empty set.
var ErrCorrupt = errors.New("registry storage corrupt")

// Store persists the destination set.
//
// Load returns the empty set when no prior storage exists. Save atomically
// replaces the stored set and must never leave a torn state behind.
type Store interface {
	Load(ctx context.Context) ([]DestinationID, error)
	Save(ctx context.Context, destinations []DestinationID) error
}

// Registry serializes all access to a Store.
type Registry struct {
	mu    sync.Mutex
	store Store
}

// New wraps a store in the shared-access discipline.
func New(store Store) *Registry {
	return &Registry{store: store}
}

// Add registers a destination if it is not already present.
//
// The load, membership check, and save run under one lock so concurrent
// registrations cannot lose updates. Returns false when the destination was
// already registered.
func (r *Registry) Add(ctx context.Context, id DestinationID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	destinations, err := r.store.Load(ctx)
	if err != nil {
		return false, err
	}

	for _, existing := range destinations {
		if existing == id {
			return false, nil
		}
	}

	destinations = append(destinations, id)
	if err := r.store.Save(ctx, destinations); err != nil {
		return false, err
	}

	return true, nil
}

// Snapshot returns the current destination set.
//
// The slice is private to the caller; a registration committing afterwards
// is observed by the next snapshot, never by a torn read.
func (r *Registry) Snapshot(ctx context.Context) ([]DestinationID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.store.Load(ctx)
}
