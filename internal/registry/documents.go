package registry

import (
	"slices"
	"sync"
	"time"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/loader"
	"github.com/atinylittleshell/dyncomplete/internal/trigger"
	"github.com/cockroachdb/errors"
	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ErrLoaderNotAttached is returned when detaching a loader that is not
// attached to the document.
var ErrLoaderNotAttached = errors.New("loader is not attached to document")

// DocumentsOptions configures Documents.
type DocumentsOptions struct {
	Triggers  *Triggers
	Providers *Providers
	Instances *loader.Instances
	Logger    *zap.Logger

	// IdleTTL evicts entries of documents not used for this long. Zero
	// keeps entries until Forget.
	IdleTTL time.Duration

	// OnEvict is called after an entry is dropped, by Forget or by idle
	// eviction.
	OnEvict func(id completion.DocumentID)
}

// Documents caches per-document state: the primary scope, the trigger
// instances, the loaders resolved from registered providers, explicitly
// attached loaders and an attribute bag.
type Documents struct {
	triggers  *Triggers
	providers *Providers
	instances *loader.Instances
	logger    *zap.Logger
	ttl       time.Duration

	mu      sync.Mutex
	entries *cache.Cache
}

type entry struct {
	mu sync.Mutex

	scope string

	triggerEpoch uint64
	triggersOK   bool
	triggers     []trigger.Instance

	providerEpoch uint64
	resolvedOK    bool
	resolved      []*loader.Loader

	attached []*loader.Loader
	attrs    map[string]any
}

// NewDocuments creates an empty document cache.
func NewDocuments(opts DocumentsOptions) *Documents {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Triggers == nil {
		opts.Triggers = NewTriggers()
	}
	if opts.Providers == nil {
		opts.Providers = NewProviders()
	}
	if opts.Instances == nil {
		opts.Instances = loader.NewInstances(opts.Logger)
	}

	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if opts.IdleTTL > 0 {
		expiration = opts.IdleTTL
		cleanup = opts.IdleTTL
	}
	entries := cache.New(expiration, cleanup)

	d := &Documents{
		triggers:  opts.Triggers,
		providers: opts.Providers,
		instances: opts.Instances,
		logger:    opts.Logger,
		ttl:       expiration,
		entries:   entries,
	}
	entries.OnEvicted(func(id string, _ interface{}) {
		d.logger.Debug("dropped document cache entry", zap.String("document", id))
		if opts.OnEvict != nil {
			opts.OnEvict(completion.DocumentID(id))
		}
	})
	return d
}

// entry returns the entry of doc, creating it on first use. Each access
// restarts the idle timer.
func (d *Documents) entry(doc completion.Document) *entry {
	id := string(doc.ID())

	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := d.entries.Get(id); ok {
		e := v.(*entry)
		if d.ttl > 0 {
			d.entries.Set(id, e, cache.DefaultExpiration)
		}
		return e
	}
	e := &entry{attrs: make(map[string]any)}
	d.entries.Set(id, e, cache.DefaultExpiration)
	return e
}

// refreshScope records the current primary scope of doc and invalidates the
// derived lists when it changed. Callers hold e.mu.
func (e *entry) refreshScope(doc completion.Document) {
	scope := completion.PrimaryScope(doc)
	if scope == e.scope {
		return
	}
	e.scope = scope
	e.triggersOK = false
	e.resolvedOK = false
}

// Triggers returns the trigger instances of doc, re-instantiating them when
// the primary scope or the trigger registry changed.
func (d *Documents) Triggers(doc completion.Document) []trigger.Instance {
	e := d.entry(doc)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refreshScope(doc)
	factories, epoch := d.triggers.snapshot()
	if e.triggersOK && e.triggerEpoch == epoch {
		return e.triggers
	}

	e.triggers = trigger.Instantiate(factories, doc, d.logger)
	e.triggerEpoch = epoch
	e.triggersOK = true
	d.logger.Debug("instantiated triggers",
		zap.String("document", string(doc.ID())),
		zap.String("scope", e.scope),
		zap.Strings("triggers", lo.Map(e.triggers, func(in trigger.Instance, _ int) string { return in.Name })),
	)
	return e.triggers
}

// Loaders returns the loaders of doc: the instances of every applicable
// registered provider, followed by explicitly attached loaders, without
// duplicates. Provider resolution is cached until the primary scope or the
// provider registry changes; a provider that fails to resolve is skipped and
// retried on the next call.
func (d *Documents) Loaders(doc completion.Document) []*loader.Loader {
	e := d.entry(doc)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refreshScope(doc)
	providers, epoch := d.providers.snapshot()
	if !e.resolvedOK || e.providerEpoch != epoch {
		e.resolved, e.resolvedOK = d.resolve(providers, doc)
		e.providerEpoch = epoch
	}

	out := make([]*loader.Loader, 0, len(e.resolved)+len(e.attached))
	out = append(out, e.resolved...)
	out = append(out, e.attached...)
	return lo.Uniq(out)
}

func (d *Documents) resolve(providers []loader.Provider, doc completion.Document) ([]*loader.Loader, bool) {
	ok := true
	var out []*loader.Loader
	for _, p := range providers {
		if !d.applicable(p, doc) {
			continue
		}
		loaders, err := d.instances.For(p, doc)
		if err != nil {
			d.logger.Error("failed to resolve loaders", zap.String("provider", p.Name()), zap.Error(err))
			ok = false
			continue
		}
		out = append(out, loaders...)
	}
	return out, ok
}

func (d *Documents) applicable(p loader.Provider, doc completion.Document) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("loader document check panicked", zap.String("provider", p.Name()), zap.Any("panic", r))
			ok = false
		}
	}()
	return loader.Applicable(p, doc)
}

// Attach adds l to the loaders of doc. Attaching twice is a no-op.
func (d *Documents) Attach(doc completion.Document, l *loader.Loader) {
	e := d.entry(doc)
	e.mu.Lock()
	defer e.mu.Unlock()

	if slices.Contains(e.attached, l) {
		return
	}
	e.attached = append(e.attached, l)
}

// Detach removes l from the loaders of doc until the provider resolution is
// next recomputed. Detaching a loader that is not attached logs a warning
// and returns ErrLoaderNotAttached.
func (d *Documents) Detach(doc completion.Document, l *loader.Loader) error {
	e := d.entry(doc)
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := false
	if idx := slices.Index(e.attached, l); idx >= 0 {
		e.attached = slices.Delete(e.attached, idx, idx+1)
		removed = true
	}
	if idx := slices.Index(e.resolved, l); idx >= 0 {
		e.resolved = slices.Delete(slices.Clone(e.resolved), idx, idx+1)
		removed = true
	}
	if !removed {
		d.logger.Warn("tried to remove unassigned loader",
			zap.String("document", string(doc.ID())),
			zap.Stringer("loader", l),
		)
		return errors.Wrapf(ErrLoaderNotAttached, "%s", l)
	}
	return nil
}

// SetAttr stores a value in the attribute bag of doc.
func (d *Documents) SetAttr(doc completion.Document, key string, value any) {
	e := d.entry(doc)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[key] = value
}

// Attr returns a value from the attribute bag of doc.
func (d *Documents) Attr(doc completion.Document, key string) (any, bool) {
	e := d.entry(doc)
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.attrs[key]
	return v, ok
}

// HasAttr reports whether the attribute bag of doc holds key.
func (d *Documents) HasAttr(doc completion.Document, key string) bool {
	_, ok := d.Attr(doc, key)
	return ok
}

// Forget drops the entry of the document.
func (d *Documents) Forget(id completion.DocumentID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries.Delete(string(id))
}

// Len returns the number of cached documents.
func (d *Documents) Len() int {
	return d.entries.ItemCount()
}
