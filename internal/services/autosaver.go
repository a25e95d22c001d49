package services

import (
	"context"
	"sync"
	"time"

	"github.com/espython/website-builder/internal/sections"
)

// autosaver persists store snapshots on a dedicated goroutine. Only the latest pending
// snapshot is kept; intermediate ones are skipped.
type autosaver struct {
	save    func(ctx context.Context, snap sections.Snapshot)
	timeout time.Duration

	mu      sync.Mutex
	pending *sections.Snapshot
	seen    uint64
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newAutosaver(timeout time.Duration, save func(context.Context, sections.Snapshot)) *autosaver {
	a := &autosaver{
		save:    save,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// enqueue never blocks; it is called from store listeners.
func (a *autosaver) enqueue(snap sections.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	// Listeners run outside the store lock, so snapshots can arrive out of order.
	if a.closed || snap.Version <= a.seen {
		return
	}
	a.seen = snap.Version
	a.pending = &snap
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *autosaver) run() {
	defer close(a.done)
	for range a.wake {
		a.saveLatest()
	}
	// The wake channel is closed; write whatever arrived before shutdown.
	a.saveLatest()
}

func (a *autosaver) saveLatest() {
	a.mu.Lock()
	snap := a.pending
	a.pending = nil
	a.mu.Unlock()
	if snap == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	a.save(ctx, *snap)
}

// stop ends the goroutine. With flush false the pending snapshot is dropped.
func (a *autosaver) stop(ctx context.Context, flush bool) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return a.wait(ctx)
	}
	a.closed = true
	if !flush {
		a.pending = nil
	}
	close(a.wake)
	a.mu.Unlock()
	return a.wait(ctx)
}

func (a *autosaver) wait(ctx context.Context) error {
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
