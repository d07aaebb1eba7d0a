package lives

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher runs subscriber callbacks on some execution context.
// Implementations must run callbacks in the order they were dispatched.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) {
	f(fn)
}

type immediate struct{}

func (immediate) Dispatch(fn func()) {
	fn()
}

// Immediate returns a Dispatcher that calls fn before Dispatch returns.
func Immediate() Dispatcher {
	return immediate{}
}

// Loop is a Dispatcher that queues callbacks and runs them one at a time
// on the goroutine calling Run.
// Dispatch never blocks, so callbacks running on the loop may dispatch again.
type Loop struct {
	log *slog.Logger

	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

// NewLoop returns a Loop. Nothing runs until Run is called.
func NewLoop(log *slog.Logger) *Loop {
	if log == nil {
		log = discardLogger()
	}
	return &Loop{
		log:  log,
		wake: make(chan struct{}, 1),
	}
}

func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes queued callbacks until ctx is cancelled, and returns ctx.Err().
// Callbacks still queued at cancellation are dropped.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Debug("Dispatch loop starting")
	defer l.log.Debug("Dispatch loop stopped")

	for {
		for {
			l.mu.Lock()
			batch := l.pending
			l.pending = nil
			l.mu.Unlock()

			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fn()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}
