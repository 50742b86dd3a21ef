// Package cache holds identity-keyed registries of long-lived entities and
// the synchronizer that reconciles them against freshly parsed git records.
//
// Every registry owns exactly one lock. All lookups, mutations and whole
// synchronization passes run under it, so readers never observe a
// half-applied diff. Event handlers registered with OnCreated, OnDeleted and
// OnUpdated run synchronously inside that critical section and must not call
// back into the same registry.
package cache

import (
	"errors"
	"fmt"
	"sync"
)

// Registry errors.
var (
	// ErrDuplicateKey indicates an entity with the same key is already registered.
	ErrDuplicateKey = errors.New("duplicate registry key")

	// ErrEmptyKey indicates a record produced the zero key.
	ErrEmptyKey = errors.New("empty registry key")
)

// Registry maps keys to entities. Entities are never replaced in place: a
// key maps to the same instance until that instance is removed.
type Registry[K comparable, E any] struct {
	mu    sync.RWMutex
	items map[K]E

	onCreated []func(E)
	onDeleted []func(E)
	onUpdated []func(E)
}

// NewRegistry creates an empty registry.
func NewRegistry[K comparable, E any]() *Registry[K, E] {
	return &Registry[K, E]{items: make(map[K]E)}
}

// OnCreated subscribes fn to entity creation.
func (r *Registry[K, E]) OnCreated(fn func(E)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCreated = append(r.onCreated, fn)
}

// OnDeleted subscribes fn to entity removal. The entity is already marked
// deleted by its owner when fn runs.
func (r *Registry[K, E]) OnDeleted(fn func(E)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDeleted = append(r.onDeleted, fn)
}

// OnUpdated subscribes fn to in-place updates that changed at least one field.
func (r *Registry[K, E]) OnUpdated(fn func(E)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUpdated = append(r.onUpdated, fn)
}

// TryGet returns the entity registered under key.
func (r *Registry[K, E]) TryGet(key K) (E, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[key]
	return e, ok
}

// Exists reports whether key is registered.
func (r *Registry[K, E]) Exists(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[key]
	return ok
}

// Count returns the number of registered entities.
func (r *Registry[K, E]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Keys returns a snapshot of the registered keys in no particular order.
func (r *Registry[K, E]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, 0, len(r.items))
	for k := range r.items {
		keys = append(keys, k)
	}
	return keys
}

// Values returns a snapshot of the registered entities in no particular order.
func (r *Registry[K, E]) Values() []E {
	r.mu.RLock()
	defer r.mu.RUnlock()
	values := make([]E, 0, len(r.items))
	for _, e := range r.items {
		values = append(values, e)
	}
	return values
}

// Find returns the entities matching pred, evaluated under the read lock.
func (r *Registry[K, E]) Find(pred func(E) bool) []E {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found []E
	for _, e := range r.items {
		if pred(e) {
			found = append(found, e)
		}
	}
	return found
}

// GetOrCreate returns the entity for key, constructing and registering it
// with create when absent. The boolean reports whether it was created.
func (r *Registry[K, E]) GetOrCreate(key K, create func() E) (E, bool) {
	if e, ok := r.TryGet(key); ok {
		return e, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.items[key]; ok {
		return e, false
	}
	e := create()
	r.items[key] = e
	r.notify(r.onCreated, e)
	return e, true
}

// Add registers e under key. Fails with ErrDuplicateKey if key is taken.
func (r *Registry[K, E]) Add(key K, e E) error {
	var zero K
	if key == zero {
		return ErrEmptyKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[key]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, key)
	}
	r.items[key] = e
	r.notify(r.onCreated, e)
	return nil
}

// Remove unregisters the entity under key. markDeleted, when non-nil, runs
// before the OnDeleted subscribers are notified.
func (r *Registry[K, E]) Remove(key K, markDeleted func(E)) (E, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[key]
	if !ok {
		return e, false
	}
	delete(r.items, key)
	if markDeleted != nil {
		markDeleted(e)
	}
	r.notify(r.onDeleted, e)
	return e, true
}

// Update applies fn to the entity under key while holding the write lock.
// fn reports whether it changed anything; changed entities raise OnUpdated.
// Returns false if key is not registered.
func (r *Registry[K, E]) Update(key K, fn func(E) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[key]
	if !ok {
		return false
	}
	if fn(e) {
		r.notify(r.onUpdated, e)
	}
	return true
}

func (r *Registry[K, E]) notify(handlers []func(E), e E) {
	for _, h := range handlers {
		h(e)
	}
}
