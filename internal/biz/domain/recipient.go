package domain

import (
	"errors"
	"sync"
)

// ErrOutOfRange is returned when a 1-based position does not address a
// saved recipient.
var ErrOutOfRange = errors.New("position out of range")

// Recipient is an opaque channel address (a Feishu chat ID).
type Recipient string

// Registry is the ordered set of saved recipients. Insertion order is
// preserved and is the basis for the 1-based positions used by Remove
// and List. All operations are safe for concurrent use.
type Registry struct {
	mu  sync.Mutex
	ids []Recipient
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends id to the registry. It returns false if the id was
// already saved; duplicates are never stored.
func (r *Registry) Add(id Recipient) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.ids {
		if existing == id {
			return false
		}
	}
	r.ids = append(r.ids, id)
	return true
}

// Remove deletes the recipient at the given 1-based position and
// returns it. Positions after the removed one shift down by one.
func (r *Registry) Remove(position int) (Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if position < 1 || position > len(r.ids) {
		return "", ErrOutOfRange
	}
	removed := r.ids[position-1]
	r.ids = append(r.ids[:position-1], r.ids[position:]...)
	return removed, nil
}

// List returns a snapshot of the saved recipients in insertion order.
// Recipients added after the call are not reflected in the snapshot.
func (r *Registry) List() []Recipient {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]Recipient, len(r.ids))
	copy(snapshot, r.ids)
	return snapshot
}

// Len returns the number of saved recipients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}
