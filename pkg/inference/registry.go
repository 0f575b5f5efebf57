package inference

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory creates a Model for the given configuration.
type Factory func(ctx context.Context, cfg Config) (Model, error)

var (
	factoryRegistryLocker sync.Mutex
	factoryRegistry       = map[Backend]Factory{}
)

// RegisterBackend makes the backend available to New. It is supposed to be
// called from init() of the implementation package.
func RegisterBackend(
	backend Backend,
	factory Factory,
) {
	factoryRegistryLocker.Lock()
	defer factoryRegistryLocker.Unlock()
	if _, ok := factoryRegistry[backend]; ok {
		panic(fmt.Errorf("there is already registered a factory for backend '%s'", backend))
	}
	factoryRegistry[backend] = factory
}

// Backends lists the registered backends.
func Backends() []Backend {
	factoryRegistryLocker.Lock()
	defer factoryRegistryLocker.Unlock()
	var result []Backend
	for backend := range factoryRegistry {
		result = append(result, backend)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i] < result[j]
	})
	return result
}

// New creates the model of the configured backend wrapped into an Adapter.
func New(
	ctx context.Context,
	cfg Config,
) (*Adapter, error) {
	factoryRegistryLocker.Lock()
	factory, ok := factoryRegistry[cfg.Backend]
	factoryRegistryLocker.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown inference backend '%s' (known: %v)", cfg.Backend, Backends())
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}

	model, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize backend '%s': %w", cfg.Backend, err)
	}
	return NewAdapter(model), nil
}
