// Package registry tracks the registered trigger and loader types and the
// per-document state derived from them.
//
// Every registration change bumps the registry's epoch. Per-document caches
// remember the epoch they were computed at and recompute when it moves.
package registry

import (
	"slices"
	"sync"

	"github.com/atinylittleshell/dyncomplete/internal/loader"
	"github.com/atinylittleshell/dyncomplete/internal/trigger"
)

type named interface {
	Name() string
}

// types is an ordered set of named types with an epoch counter.
type types[T named] struct {
	mu    sync.RWMutex
	items []T
	epoch uint64
}

func (r *types[T]) register(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.items, func(existing T) bool {
		return existing.Name() == item.Name()
	})
	if idx >= 0 {
		r.items[idx] = item
	} else {
		r.items = append(r.items, item)
	}
	r.epoch++
}

func (r *types[T]) unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.items, func(existing T) bool {
		return existing.Name() == name
	})
	if idx < 0 {
		return false
	}
	r.items = slices.Delete(r.items, idx, idx+1)
	r.epoch++
	return true
}

func (r *types[T]) snapshot() ([]T, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items), r.epoch
}

func (r *types[T]) currentEpoch() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.epoch
}

// Triggers is the registry of trigger types.
type Triggers struct {
	types[trigger.Factory]
}

// NewTriggers creates an empty trigger registry.
func NewTriggers() *Triggers {
	return &Triggers{}
}

// Register adds f, replacing a registered factory of the same name.
func (r *Triggers) Register(f trigger.Factory) {
	r.register(f)
}

// Unregister removes the named factory and reports whether it was registered.
func (r *Triggers) Unregister(name string) bool {
	return r.unregister(name)
}

// Factories returns the registered factories in registration order.
func (r *Triggers) Factories() []trigger.Factory {
	items, _ := r.snapshot()
	return items
}

// Epoch returns the registration epoch.
func (r *Triggers) Epoch() uint64 {
	return r.currentEpoch()
}

// Providers is the registry of loader types.
type Providers struct {
	types[loader.Provider]
}

// NewProviders creates an empty provider registry.
func NewProviders() *Providers {
	return &Providers{}
}

// Register adds p, replacing a registered provider of the same name.
func (r *Providers) Register(p loader.Provider) {
	r.register(p)
}

// Unregister removes the named provider and reports whether it was registered.
func (r *Providers) Unregister(name string) bool {
	return r.unregister(name)
}

// List returns the registered providers in registration order.
func (r *Providers) List() []loader.Provider {
	items, _ := r.snapshot()
	return items
}

// Epoch returns the registration epoch.
func (r *Providers) Epoch() uint64 {
	return r.currentEpoch()
}
