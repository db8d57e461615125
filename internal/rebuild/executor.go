package rebuild

import (
	"context"
	"sync"
)

// RunFunc handles one batch.
type RunFunc func(ctx context.Context, batch Batch)

// Executor runs batches one at a time on a single goroutine. Batches
// submitted while a pass is running are merged and handled together by
// the next pass.
type Executor struct {
	run RunFunc

	mu      sync.Mutex
	pending Batch
	has     bool
	running bool
	wake    chan struct{}
	idle    chan struct{}
}

func NewExecutor(run RunFunc) *Executor {
	return &Executor{
		run:  run,
		wake: make(chan struct{}, 1),
	}
}

// Submit queues batch, merging it with anything already waiting.
func (e *Executor) Submit(batch Batch) {
	if len(batch) == 0 {
		return
	}
	e.mu.Lock()
	e.pending = Merge(e.pending, batch)
	e.has = true
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Running reports whether a pass is in progress.
func (e *Executor) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Idle returns a channel closed once no pass is running and nothing is
// queued. A new channel is handed out for every wait.
func (e *Executor) Idle() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan struct{})
	if !e.running && !e.has {
		close(ch)
		return ch
	}
	if e.idle == nil {
		e.idle = make(chan struct{})
	}
	return e.idle
}

// Run processes batches until ctx is done.
func (e *Executor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.wake:
		}
		for {
			batch, ok := e.take()
			if !ok {
				break
			}
			e.run(ctx, batch)
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

func (e *Executor) take() (Batch, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.has {
		e.running = false
		if e.idle != nil {
			close(e.idle)
			e.idle = nil
		}
		return nil, false
	}
	batch := e.pending
	e.pending = nil
	e.has = false
	e.running = true
	return batch, true
}
