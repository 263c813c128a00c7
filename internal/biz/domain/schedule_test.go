package domain

import (
	"errors"
	"testing"
	"time"
)

func TestQueue_TakeDue_PartitionsByDueTime(t *testing.T) {
	now := time.Now()
	q := NewQueue(0)

	past := NewScheduledEntry("oc_a", "past", now.Add(-time.Minute))
	exact := NewScheduledEntry("oc_b", "exact", now)
	future := NewScheduledEntry("oc_c", "future", now.Add(time.Minute))

	for _, e := range []*ScheduledEntry{past, exact, future} {
		if err := q.Enqueue(e); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	due := q.TakeDue(now)
	if len(due) != 2 {
		t.Fatalf("Expected 2 due entries, got %d", len(due))
	}
	seen := map[string]bool{}
	for _, e := range due {
		seen[e.Text] = true
	}
	if !seen["past"] || !seen["exact"] {
		t.Errorf("Expected past and exactly-due entries to fire, got %v", seen)
	}

	if got := q.Len(); got != 1 {
		t.Errorf("Expected 1 remaining entry, got %d", got)
	}
}

func TestQueue_TakeDue_NoDoubleDelivery(t *testing.T) {
	now := time.Now()
	q := NewQueue(0)
	if err := q.Enqueue(NewScheduledEntry("oc_a", "hello", now.Add(-time.Second))); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	first := q.TakeDue(now)
	if len(first) != 1 {
		t.Fatalf("Expected 1 due entry on first sweep, got %d", len(first))
	}

	second := q.TakeDue(now)
	if len(second) != 0 {
		t.Errorf("Expected 0 due entries on second sweep, got %d", len(second))
	}
}

func TestQueue_Enqueue_NoDedup(t *testing.T) {
	now := time.Now().Add(time.Hour)
	q := NewQueue(0)

	for i := 0; i < 3; i++ {
		if err := q.Enqueue(NewScheduledEntry("oc_a", "same", now)); err != nil {
			t.Fatalf("Enqueue %d failed: %v", i, err)
		}
	}
	if got := q.Len(); got != 3 {
		t.Errorf("Expected 3 entries sharing recipient and due time, got %d", got)
	}
}

func TestQueue_Enqueue_CapacityBound(t *testing.T) {
	q := NewQueue(2)
	due := time.Now().Add(time.Hour)

	if err := q.Enqueue(NewScheduledEntry("oc_a", "1", due)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue(NewScheduledEntry("oc_a", "2", due)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	err := q.Enqueue(NewScheduledEntry("oc_a", "3", due))
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
	if got := q.Len(); got != 2 {
		t.Errorf("Expected queue unchanged at 2 entries, got %d", got)
	}
}

func TestScheduledEntry_Due_InclusiveComparison(t *testing.T) {
	now := time.Now()
	entry := NewScheduledEntry("oc_a", "x", now)

	if !entry.Due(now) {
		t.Error("Expected entry due exactly at sweep time to fire")
	}
	if entry.Due(now.Add(-time.Millisecond)) {
		t.Error("Expected future entry not to fire")
	}
}

func TestQueue_Restore_IgnoresCapacity(t *testing.T) {
	q := NewQueue(1)
	due := time.Now().Add(time.Hour)

	q.Restore([]*ScheduledEntry{
		NewScheduledEntry("oc_a", "1", due),
		NewScheduledEntry("oc_b", "2", due),
	})

	if got := q.Len(); got != 2 {
		t.Errorf("Expected restored backlog of 2, got %d", got)
	}
}
