package whisper

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrInitInProgress is returned when a second initialization starts
// while one is running. Callers fail fast instead of racing.
var ErrInitInProgress = errors.New("runtime initialization already in progress")

// Registry caches the active runtime keyed by model file path. At most
// one runtime exists process-wide; swapping models releases the old
// context fully before the new one is built.
type Registry struct {
	mu             sync.Mutex
	active         *Runtime
	initInProgress bool

	newRuntime func(path string, opts Options) (*Runtime, error)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{newRuntime: NewRuntime}
}

// GetOrCreate returns the cached runtime when the path matches, else
// drops the previous runtime and builds a fresh one.
func (g *Registry) GetOrCreate(path string, opts Options) (*Runtime, error) {
	g.mu.Lock()
	if g.active != nil && g.active.ModelPath() == path {
		rt := g.active
		g.mu.Unlock()
		return rt, nil
	}
	if g.initInProgress {
		g.mu.Unlock()
		return nil, ErrInitInProgress
	}
	g.initInProgress = true
	old := g.active
	g.active = nil
	g.mu.Unlock()

	// The old context must be gone before the new one is built; two
	// loaded models would double peak memory.
	if old != nil {
		if err := old.Close(); err != nil {
			slog.Warn("close previous runtime", "error", err)
		}
	}

	rt, err := g.newRuntime(path, opts)

	g.mu.Lock()
	g.initInProgress = false
	if err == nil {
		g.active = rt
	}
	g.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("create runtime: %w", err)
	}
	slog.Info("whisper model loaded", "model", path)
	return rt, nil
}

// ForceReload rebuilds the runtime even when the path matches.
func (g *Registry) ForceReload(path string, opts Options) (*Runtime, error) {
	g.mu.Lock()
	if g.initInProgress {
		g.mu.Unlock()
		return nil, ErrInitInProgress
	}
	old := g.active
	g.active = nil
	g.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			slog.Warn("close previous runtime", "error", err)
		}
	}
	return g.GetOrCreate(path, opts)
}

// Clear drops the active runtime.
func (g *Registry) Clear() {
	g.mu.Lock()
	old := g.active
	g.active = nil
	g.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			slog.Warn("close runtime", "error", err)
		}
	}
}

// Active returns the current runtime, or nil.
func (g *Registry) Active() *Runtime {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
