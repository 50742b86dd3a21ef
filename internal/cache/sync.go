package cache

import (
	"fmt"
)

// Syncer describes how records of type R map onto entities of type E.
type Syncer[K comparable, E any, R any] struct {
	// KeyOf extracts the identity key of a record. Required.
	KeyOf func(R) K

	// Create builds a new entity from a record. It must not have side
	// effects: an error from any Create call aborts the whole pass.
	Create func(R) (E, error)

	// Update applies a record onto an existing entity in place and reports
	// whether any field changed.
	Update func(E, R) bool

	// OnCreated runs after a new entity is inserted, before registry subscribers.
	OnCreated func(E)

	// OnDeleted runs after an entity is removed, before registry subscribers.
	// Owners use it to mark the entity deleted.
	OnDeleted func(E)

	// RemoveStale removes entities whose key is absent from the records.
	RemoveStale bool
}

// Stats summarizes one synchronization pass.
type Stats struct {
	Created int
	Updated int
	Deleted int
}

// Sync reconciles reg against records in a single critical section.
//
// Keys present only in records are created, keys present in both are
// updated in place, and, when RemoveStale is set, keys present only in reg
// are removed. When records repeat a key the last record wins. Planning
// (key extraction and entity construction) completes before anything is
// applied, so a failing pass leaves reg exactly as it was.
func Sync[K comparable, E any, R any](reg *Registry[K, E], records []R, s Syncer[K, E, R]) (Stats, error) {
	var stats Stats
	if s.KeyOf == nil || s.Create == nil || s.Update == nil {
		return stats, fmt.Errorf("cache: incomplete syncer")
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	// plan
	var zero K
	fresh := make(map[K]R, len(records))
	order := make([]K, 0, len(records))
	for i, rec := range records {
		key := s.KeyOf(rec)
		if key == zero {
			return stats, fmt.Errorf("%w: record %d", ErrEmptyKey, i)
		}
		if _, seen := fresh[key]; !seen {
			order = append(order, key)
		}
		fresh[key] = rec
	}

	created := make(map[K]E)
	for _, key := range order {
		if _, ok := reg.items[key]; ok {
			continue
		}
		e, err := s.Create(fresh[key])
		if err != nil {
			return stats, fmt.Errorf("cache: create %v: %w", key, err)
		}
		created[key] = e
	}

	// apply
	for _, key := range order {
		if e, ok := created[key]; ok {
			reg.items[key] = e
			stats.Created++
			if s.OnCreated != nil {
				s.OnCreated(e)
			}
			reg.notify(reg.onCreated, e)
			continue
		}
		e := reg.items[key]
		if s.Update(e, fresh[key]) {
			stats.Updated++
			reg.notify(reg.onUpdated, e)
		}
	}

	if s.RemoveStale {
		for key, e := range reg.items {
			if _, ok := fresh[key]; ok {
				continue
			}
			delete(reg.items, key)
			stats.Deleted++
			if s.OnDeleted != nil {
				s.OnDeleted(e)
			}
			reg.notify(reg.onDeleted, e)
		}
	}

	return stats, nil
}
