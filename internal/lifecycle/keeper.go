// Package lifecycle guarantees exactly one tracking registry and one
// persistence interceptor per process, no matter how many differently
// named entry points the host initializes.
//
// The host runtime aggressively re-executes integration code under
// different module names, so instance storage cannot live in package
// state owned by any one entry point. It lives here instead, behind a
// stable key. This is a workaround for host behavior, not a pattern to
// copy elsewhere.
package lifecycle

import "sync"

// Well-known instance keys.
const (
	KeyRegistry    = "tracking-registry"
	KeyInterceptor = "persistence-interceptor"
	KeyGraph       = "workflow-graph"
)

// Keeper is a process-wide keyed instance store. One lock guards
// construction; steady-state reads take the same lock but hold it only
// for a map lookup.
type Keeper struct {
	mu        sync.Mutex
	instances map[string]any
}

// NewKeeper creates an empty keeper. Production code uses Process();
// tests create their own isolated keepers.
func NewKeeper() *Keeper {
	return &Keeper{instances: make(map[string]any)}
}

// processKeeper is the one keeper shared by every entry point in this
// process.
var processKeeper = NewKeeper()

// Process returns the process-wide keeper.
func Process() *Keeper {
	return processKeeper
}

// GetOrCreate returns the instance stored under key, constructing and
// storing it first if absent. Construction happens under the lock, so
// concurrent callers for the same key observe exactly one construction.
// A construct error stores nothing, letting a later call retry.
func (k *Keeper) GetOrCreate(key string, construct func() (any, error)) (any, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if instance, ok := k.instances[key]; ok {
		return instance, nil
	}
	instance, err := construct()
	if err != nil {
		return nil, err
	}
	k.instances[key] = instance
	return instance, nil
}

// Peek returns the instance under key without constructing.
func (k *Keeper) Peek(key string) (any, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	instance, ok := k.instances[key]
	return instance, ok
}

// Drop removes the instance under key. Used on shutdown so a later
// GetOrCreate builds a fresh instance.
func (k *Keeper) Drop(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.instances, key)
}

// GetOrCreate is the typed convenience wrapper over Keeper.GetOrCreate.
func GetOrCreate[T any](k *Keeper, key string, construct func() (T, error)) (T, error) {
	instance, err := k.GetOrCreate(key, func() (any, error) {
		return construct()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return instance.(T), nil
}
