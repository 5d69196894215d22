// Package registry holds the process-wide plant collection.
//
// Lock discipline: readers take the read lock, mutations take the write lock,
// and no disk I/O ever happens while either is held. Writes to the backing
// store are serialised by a separate mutex and always snapshot the collection
// after that mutex is acquired, so the newest completed write is never older
// than an earlier one.
package registry

import (
	"context"
	"sync"

	"github.com/fastygo/plantcare/domain"
	"github.com/fastygo/plantcare/repository"
)

type Registry struct {
	mu     sync.RWMutex
	plants []domain.Plant

	saveMu sync.Mutex
	store  repository.PlantStore
}

// Open loads the collection from store once.
func Open(ctx context.Context, store repository.PlantStore) (*Registry, error) {
	plants, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return New(store, plants), nil
}

// New builds a registry over an already loaded collection.
func New(store repository.PlantStore, plants []domain.Plant) *Registry {
	owned := make([]domain.Plant, 0, len(plants))
	for _, p := range plants {
		owned = append(owned, p.Clone())
	}
	return &Registry{plants: owned, store: store}
}

// Snapshot returns a deep copy of every plant in registry order.
func (r *Registry) Snapshot() []domain.Plant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.plants)
}

// Get returns a copy of the plant with the given id.
func (r *Registry) Get(id string) (domain.Plant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.plants[i].Clone(), true
	}
	return domain.Plant{}, false
}

func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOf(id) >= 0
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plants)
}

// Append adds a plant at the end of the collection.
func (r *Registry) Append(p domain.Plant) {
	owned := p.Clone()
	r.mu.Lock()
	r.plants = append(r.plants, owned)
	r.mu.Unlock()
}

// Update applies fn to the plant in place under the write lock and returns a
// copy of the result. fn must not block.
func (r *Registry) Update(id string, fn func(p *domain.Plant)) (domain.Plant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return domain.Plant{}, false
	}
	fn(&r.plants[i])
	return r.plants[i].Clone(), true
}

// Remove deletes the plant and returns what was removed.
func (r *Registry) Remove(id string) (domain.Plant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return domain.Plant{}, false
	}
	removed := r.plants[i]
	r.plants = append(r.plants[:i], r.plants[i+1:]...)
	return removed, true
}

// Persist writes the current collection to the backing store.
// The state written may include writes that raced in after the caller's own.
func (r *Registry) Persist(ctx context.Context) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()
	return r.store.Save(ctx, r.Snapshot())
}

func (r *Registry) indexOf(id string) int {
	for i := range r.plants {
		if r.plants[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(plants []domain.Plant) []domain.Plant {
	out := make([]domain.Plant, len(plants))
	for i := range plants {
		out[i] = plants[i].Clone()
	}
	return out
}
