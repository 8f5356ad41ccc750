package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/localnerve/macroai/internal/logger"
)

// State is the bootstrap lifecycle state
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// BuildFunc constructs the application
type BuildFunc func(ctx context.Context) (*App, error)

// Bootstrapper builds the application at most once at a time and reuses it
// afterwards. A failed build returns to Uninitialized so the next call
// tries again.
type Bootstrapper struct {
	build BuildFunc
	log   *logger.Logger

	mu    sync.Mutex
	state atomic.Int32
	app   *App
}

func NewBootstrapper(build BuildFunc, log *logger.Logger) *Bootstrapper {
	return &Bootstrapper{build: build, log: log}
}

// State reports the current lifecycle state
func (b *Bootstrapper) State() State {
	return State(b.state.Load())
}

// Get returns the ready application, building it first if needed
func (b *Bootstrapper) Get(ctx context.Context) (*App, error) {
	if b.State() == StateReady {
		b.mu.Lock()
		a := b.app
		b.mu.Unlock()
		if a != nil {
			return a, nil
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.State() == StateReady && b.app != nil {
		return b.app, nil
	}

	b.state.Store(int32(StateInitializing))
	b.log.Info("Initializing application")

	a, err := b.build(ctx)
	if err != nil {
		b.state.Store(int32(StateUninitialized))
		b.log.Error("Application initialization failed", "error", err)
		return nil, err
	}

	b.app = a
	b.state.Store(int32(StateReady))
	b.log.Info("Application ready")
	return a, nil
}

// Close releases the application, if one was built, and resets the state
func (b *Bootstrapper) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	a := b.app
	b.app = nil
	b.state.Store(int32(StateUninitialized))
	if a == nil {
		return nil
	}
	return a.Close()
}
