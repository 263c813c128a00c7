package domain

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrQueueFull is returned when the scheduled-delivery queue has
// reached its capacity bound.
var ErrQueueFull = errors.New("scheduled-delivery queue is full")

// DefaultQueueCapacity bounds the number of pending scheduled entries.
const DefaultQueueCapacity = 512

// ScheduledEntry is a one-shot message pending delivery at DueAt.
type ScheduledEntry struct {
	ID        string
	Recipient Recipient
	Text      string
	DueAt     time.Time
	CreatedAt time.Time
}

// NewScheduledEntry creates an entry with a fresh ID.
func NewScheduledEntry(recipient Recipient, text string, dueAt time.Time) *ScheduledEntry {
	return &ScheduledEntry{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Text:      text,
		DueAt:     dueAt,
		CreatedAt: time.Now(),
	}
}

// Due reports whether the entry should fire at the given time.
// The comparison is inclusive: an entry whose DueAt equals now fires.
func (e *ScheduledEntry) Due(now time.Time) bool {
	return !e.DueAt.After(now)
}

// Queue holds pending scheduled entries. Entries carry no ordering
// invariant; each is evaluated independently. Enqueue and TakeDue
// serialize on the same mutex, so an entry enqueued during a sweep is
// either seen by that sweep or left intact for the next one.
type Queue struct {
	mu       sync.Mutex
	entries  []*ScheduledEntry
	capacity int
}

// NewQueue creates a queue bounded at capacity. A capacity of zero or
// less falls back to DefaultQueueCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{capacity: capacity}
}

// Enqueue adds an entry. No dedup: multiple entries may share a
// recipient or a due time.
func (q *Queue) Enqueue(entry *ScheduledEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.capacity {
		return ErrQueueFull
	}
	q.entries = append(q.entries, entry)
	return nil
}

// TakeDue removes and returns every entry with DueAt <= now. Each
// entry is returned by exactly one TakeDue call: a second sweep with
// no intervening enqueues returns nothing.
func (q *Queue) TakeDue(now time.Time) []*ScheduledEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*ScheduledEntry
	var remaining []*ScheduledEntry
	for _, entry := range q.entries {
		if entry.Due(now) {
			due = append(due, entry)
		} else {
			remaining = append(remaining, entry)
		}
	}
	q.entries = remaining
	return due
}

// Restore re-adds entries loaded from storage, ignoring the capacity
// bound so a persisted backlog is never dropped at startup.
func (q *Queue) Restore(entries []*ScheduledEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entries...)
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
