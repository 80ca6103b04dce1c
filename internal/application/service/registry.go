package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"browser-agent/internal/application/port/output"
)

type ExecutorMode string

const (
	ModeLive      ExecutorMode = "live"
	ModeSimulated ExecutorMode = "simulated"
)

// ExecutorBackend is an opened executor: the locator that resolves the active
// page, an inspector for diagnostics and a release func.
type ExecutorBackend struct {
	Mode      ExecutorMode
	Locator   output.TargetLocator
	Inspector output.PageInspector
	Close     func()
}

type ExecutorFactory func(ctx context.Context) (*ExecutorBackend, error)

// ExecutorRegistry maps configured modes to executor factories. The mode is
// always chosen by the caller.
type ExecutorRegistry struct {
	mu        sync.RWMutex
	factories map[ExecutorMode]ExecutorFactory
}

func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{
		factories: make(map[ExecutorMode]ExecutorFactory),
	}
}

func (r *ExecutorRegistry) Register(mode ExecutorMode, factory ExecutorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[mode] = factory
}

func (r *ExecutorRegistry) Modes() []ExecutorMode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ExecutorMode, 0, len(r.factories))
	for mode := range r.factories {
		result = append(result, mode)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Open builds the executor registered for mode.
func (r *ExecutorRegistry) Open(ctx context.Context, mode ExecutorMode) (*ExecutorBackend, error) {
	r.mu.RLock()
	factory, ok := r.factories[mode]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown executor mode %q (available: %s)", mode, joinModes(r.Modes()))
	}

	backend, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s executor: %w", mode, err)
	}
	backend.Mode = mode
	if backend.Close == nil {
		backend.Close = func() {}
	}
	return backend, nil
}

func ParseMode(s string) (ExecutorMode, error) {
	switch mode := ExecutorMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case ModeLive, ModeSimulated:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid executor mode %q: want live or simulated", s)
	}
}

func joinModes(modes []ExecutorMode) string {
	names := make([]string, 0, len(modes))
	for _, m := range modes {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}
