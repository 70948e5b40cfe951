package layers

import (
	"fmt"
	"sort"
	"sync"

	"neurolint/internal/logging"
)

// Registry holds all available layers and provides ordered, filtered
// lookup. Thread-safe, supports registration at startup.
//
// A name-keyed map +
// Register/Get/All), generalized from string tool names to numbered
// LayerIDs with a total, meaningful order.
type Registry struct {
	mu     sync.RWMutex
	byID   map[ID]Layer
	order  []ID
}

// NewRegistry creates an empty layer registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[ID]Layer)}
}

// Register adds a layer. Returns an error if its ID is already taken.
func (r *Registry) Register(l Layer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[l.ID()]; exists {
		return fmt.Errorf("%w: layer %d", ErrLayerAlreadyRegistered, l.ID())
	}
	r.byID[l.ID()] = l
	r.order = append(r.order, l.ID())
	sort.Slice(r.order, func(i, j int) bool { return r.order[i] < r.order[j] })

	logging.LayersDebug("registered layer %d (%s)", l.ID(), l.Name())
	return nil
}

// MustRegister registers a layer and panics on error. Used for static
// registration of the built-in layers at startup.
func (r *Registry) MustRegister(l Layer) {
	if err := r.Register(l); err != nil {
		panic(fmt.Sprintf("failed to register layer %d: %v", l.ID(), err))
	}
}

// Get returns a layer by ID, or nil if not registered.
func (r *Registry) Get(id ID) Layer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// All returns every registered layer in ascending ID order.
func (r *Registry) All() []Layer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Layer, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Select returns the registered layers whose ID appears in ids,
// ordered by registry order (ascending ID) regardless of the order
// ids were given in — execution order is always registry order
// intersected with the selection.
func (r *Registry) Select(ids []ID) []Layer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[ID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	out := make([]Layer, 0, len(ids))
	for _, id := range r.order {
		if wanted[id] {
			out = append(out, r.byID[id])
		}
	}
	return out
}

// Count returns the number of registered layers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
