package loader

import (
	"sync"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrNoTargets is returned for File and Path providers that do not implement
// Targeter.
var ErrNoTargets = errors.New("provider does not list targets")

// KeyFor returns the identity key of provider for target.
func KeyFor(p Provider, target string) Key {
	if p.Variant() == Static {
		target = ""
	}
	return Key{Provider: p.Name(), Variant: p.Variant(), Target: target}
}

// Instances is the registry of live loaders, keyed by identity key. It is
// safe for concurrent use.
type Instances struct {
	mu      sync.Mutex
	loaders map[Key]*Loader
	logger  *zap.Logger
}

// NewInstances creates an empty registry.
func NewInstances(logger *zap.Logger) *Instances {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instances{
		loaders: make(map[Key]*Loader),
		logger:  logger,
	}
}

// Acquire returns the loader of p for target, creating it on first use.
func (i *Instances) Acquire(p Provider, target string) *Loader {
	key := KeyFor(p, target)

	i.mu.Lock()
	defer i.mu.Unlock()

	if l, ok := i.loaders[key]; ok {
		return l
	}
	l := New(p, key, i.logger)
	i.loaders[key] = l
	i.logger.Debug("created loader instance", zap.Stringer("loader", key))
	return l
}

// Lookup returns the loader for key, if it exists.
func (i *Instances) Lookup(key Key) (*Loader, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	l, ok := i.loaders[key]
	return l, ok
}

// Len returns the number of live loaders.
func (i *Instances) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.loaders)
}

// For returns the loaders p contributes to doc: the single static instance,
// the instance of doc, or one instance per file or directory target.
func (i *Instances) For(p Provider, doc completion.Document) ([]*Loader, error) {
	switch p.Variant() {
	case Static:
		return []*Loader{i.Acquire(p, "")}, nil
	case Document:
		return []*Loader{i.Acquire(p, string(doc.ID()))}, nil
	}

	t, ok := p.(Targeter)
	if !ok {
		return nil, errors.Wrapf(ErrNoTargets, "%s", p.Name())
	}
	targets, err := t.Targets(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list targets of %s", p.Name())
	}

	out := make([]*Loader, 0, len(targets))
	for _, target := range targets {
		out = append(out, i.Acquire(p, target))
	}
	return out, nil
}

// ForgetDocument drops the Document loaders bound to id and returns how many
// were removed.
func (i *Instances) ForgetDocument(id completion.DocumentID) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	n := 0
	for key := range i.loaders {
		if key.Variant == Document && key.Target == string(id) {
			delete(i.loaders, key)
			n++
		}
	}
	return n
}

// RemoveProvider drops every loader of the named provider.
func (i *Instances) RemoveProvider(name string) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	n := 0
	for key := range i.loaders {
		if key.Provider == name {
			delete(i.loaders, key)
			n++
		}
	}
	return n
}
