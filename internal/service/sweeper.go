package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anthropics/feishu-promo-bot/internal/biz/domain"
	"github.com/anthropics/feishu-promo-bot/internal/biz/repo"
	"github.com/anthropics/feishu-promo-bot/internal/biz/usecase"
)

// SweepRunner drives the scheduled-delivery queue: every interval it
// takes all due entries and hands each to the sender. A failure on one
// entry never blocks the rest of the sweep.
type SweepRunner struct {
	queue  *domain.Queue
	sender usecase.Sender
	store  repo.StateRepo // optional; nil disables persistence

	interval time.Duration
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSweepRunner creates a sweep runner. The recommended interval is
// one minute. store may be nil.
func NewSweepRunner(queue *domain.Queue, sender usecase.Sender, store repo.StateRepo, interval time.Duration) *SweepRunner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweepRunner{
		queue:    queue,
		sender:   sender,
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the sweep loop.
func (r *SweepRunner) Start() {
	if r.running {
		return
	}
	r.running = true
	r.wg.Add(1)
	go r.loop()
	fmt.Printf("[Sweep] Started with interval %v\n", r.interval)
}

// Stop stops the sweep loop.
func (r *SweepRunner) Stop() {
	if !r.running {
		return
	}
	r.running = false
	close(r.stopCh)
	r.wg.Wait()
	fmt.Println("[Sweep] Stopped")
}

func (r *SweepRunner) loop() {
	defer r.wg.Done()

	// Initial sweep catches entries that came due while the process
	// was down.
	r.Sweep(time.Now())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep(time.Now())
		case <-r.stopCh:
			return
		}
	}
}

// Sweep emits every entry due at now. Each entry is delivered at most
// once; entries are removed from the queue before delivery, so a slow
// or failed send cannot cause a second emission on the next sweep.
func (r *SweepRunner) Sweep(now time.Time) {
	due := r.queue.TakeDue(now)
	if len(due) == 0 {
		return
	}

	fmt.Printf("[Sweep] Delivering %d due entries\n", len(due))
	ctx := context.Background()

	for _, entry := range due {
		r.sender.Deliver(ctx, entry.Recipient, entry.Text)
		fmt.Printf("[Sweep] Scheduled message %s sent to %s\n", entry.ID, entry.Recipient)

		if r.store != nil {
			if err := r.store.DeleteEntry(ctx, entry.ID); err != nil {
				fmt.Printf("[Sweep] Failed to delete entry %s from store: %v\n", entry.ID, err)
			}
		}
	}
}
