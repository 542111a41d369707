package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DeferredState is the lifecycle of a Deferred task.
type DeferredState int

const (
	DeferredPending DeferredState = iota
	DeferredRunning
	DeferredDone
	DeferredCanceled
)

func (s DeferredState) String() string {
	switch s {
	case DeferredPending:
		return "pending"
	case DeferredRunning:
		return "running"
	case DeferredDone:
		return "done"
	case DeferredCanceled:
		return "canceled"
	}
	return "unknown"
}

// Deferred is a task that runs once on a clock after a delay, unless it is
// canceled first.
type Deferred struct {
	mu    sync.Mutex
	state DeferredState
	timer clockwork.Timer
	err   error
	done  chan struct{}
}

// Schedule runs fn on clock after d.
func Schedule(clock clockwork.Clock, d time.Duration, fn func() error) *Deferred {
	t := &Deferred{done: make(chan struct{})}
	t.mu.Lock()
	t.timer = clock.AfterFunc(d, func() { t.run(fn) })
	t.mu.Unlock()
	return t
}

func (t *Deferred) run(fn func() error) {
	t.mu.Lock()
	if t.state != DeferredPending {
		t.mu.Unlock()
		return
	}
	t.state = DeferredRunning
	t.mu.Unlock()

	err := fn()

	t.mu.Lock()
	t.state = DeferredDone
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

// Cancel stops the task if it has not started and reports whether it did.
// A task that is already running is waited for.
func (t *Deferred) Cancel() bool {
	t.mu.Lock()
	switch t.state {
	case DeferredPending:
		t.state = DeferredCanceled
		t.timer.Stop()
		t.mu.Unlock()
		close(t.done)
		return true
	case DeferredRunning:
		t.mu.Unlock()
		<-t.done
		return false
	default:
		t.mu.Unlock()
		return false
	}
}

// Wait blocks until the task finished or was canceled, and returns the
// task's error.
func (t *Deferred) Wait(ctx context.Context) error {
	select {
	case <-t.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed once the task finished or was canceled.
func (t *Deferred) Done() <-chan struct{} {
	return t.done
}

// State returns the current state.
func (t *Deferred) State() DeferredState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
