// Package dispatch runs aggregation rounds: it asks the triggers of a
// document which categories are needed, fans the request out to the
// document's loaders and merges their contributions.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/loader"
	"github.com/atinylittleshell/dyncomplete/internal/registry"
	"github.com/atinylittleshell/dyncomplete/internal/trigger"
	"go.uber.org/zap"
)

const (
	DefaultWorkers         = 2
	DefaultFanOutThreshold = 3
)

// Options configures a Dispatcher.
type Options struct {
	Logger *zap.Logger

	// Workers is the size of the pool draining asynchronous loaders.
	Workers int

	// FanOutThreshold is the number of asynchronous loaders a round may
	// have before the pool is used instead of the calling goroutine.
	FanOutThreshold int

	// DocumentIdleTTL evicts per-document state of documents idle for this
	// long. Zero keeps it until Forget.
	DocumentIdleTTL time.Duration
}

// Request is one aggregation request.
type Request struct {
	Doc       completion.Document
	Prefix    string
	Positions []int

	// Wait makes asynchronous loaders load inline instead of returning a
	// placeholder.
	Wait bool
}

// Event is passed to load callbacks. Result is only set for after-load
// callbacks.
type Event struct {
	Doc        completion.Document
	Prefix     string
	Positions  []int
	Categories completion.CategorySet
	Result     completion.Result
}

// Callback observes an aggregation round. Return values are not consumed,
// so callbacks only have side effects.
type Callback func(ctx context.Context, ev Event)

// Stats counts dispatcher activity since creation.
type Stats struct {
	Requests       int64
	EmptyRequests  int64
	PooledRounds   int64
	WorkersSpawned int64
	LoadersQueried int64
	Placeholders   int64
}

// Dispatcher owns the registries, the loader instances and the per-document
// caches of one engine. It is safe for concurrent use.
type Dispatcher struct {
	logger          *zap.Logger
	workers         int
	fanOutThreshold int

	triggers  *registry.Triggers
	providers *registry.Providers
	instances *loader.Instances
	documents *registry.Documents

	callbacksMu sync.RWMutex
	before      []Callback
	after       []Callback

	requests       atomic.Int64
	emptyRequests  atomic.Int64
	pooledRounds   atomic.Int64
	workersSpawned atomic.Int64
	loadersQueried atomic.Int64
	placeholders   atomic.Int64
}

// New creates a Dispatcher with empty registries.
func New(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.FanOutThreshold <= 0 {
		opts.FanOutThreshold = DefaultFanOutThreshold
	}

	d := &Dispatcher{
		logger:          opts.Logger,
		workers:         opts.Workers,
		fanOutThreshold: opts.FanOutThreshold,
		triggers:        registry.NewTriggers(),
		providers:       registry.NewProviders(),
		instances:       loader.NewInstances(opts.Logger),
	}
	d.documents = registry.NewDocuments(registry.DocumentsOptions{
		Triggers:  d.triggers,
		Providers: d.providers,
		Instances: d.instances,
		Logger:    opts.Logger,
		IdleTTL:   opts.DocumentIdleTTL,
		OnEvict: func(id completion.DocumentID) {
			if n := d.instances.ForgetDocument(id); n > 0 {
				d.logger.Debug("dropped document loaders", zap.String("document", string(id)), zap.Int("loaders", n))
			}
		},
	})
	return d
}

// RegisterTrigger registers a trigger type.
func (d *Dispatcher) RegisterTrigger(f trigger.Factory) {
	d.triggers.Register(f)
	d.logger.Debug("registered trigger", zap.String("trigger", f.Name()))
}

// UnregisterTrigger removes a trigger type.
func (d *Dispatcher) UnregisterTrigger(name string) bool {
	return d.triggers.Unregister(name)
}

// RegisterProvider registers a loader type.
func (d *Dispatcher) RegisterProvider(p loader.Provider) {
	d.providers.Register(p)
	d.logger.Debug("registered loader", zap.String("loader", p.Name()), zap.Stringer("variant", p.Variant()))
}

// UnregisterProvider removes a loader type and drops its instances.
func (d *Dispatcher) UnregisterProvider(name string) bool {
	if !d.providers.Unregister(name) {
		return false
	}
	d.instances.RemoveProvider(name)
	return true
}

// Providers returns the registered loader types.
func (d *Dispatcher) Providers() []loader.Provider {
	return d.providers.List()
}

// Loader returns the shared loader instance of p for target.
func (d *Dispatcher) Loader(p loader.Provider, target string) *loader.Loader {
	return d.instances.Acquire(p, target)
}

// Attach adds a loader to a document beyond the ones its registered
// providers resolve to.
func (d *Dispatcher) Attach(doc completion.Document, l *loader.Loader) {
	d.documents.Attach(doc, l)
}

// Detach removes a loader from a document. It returns
// registry.ErrLoaderNotAttached when the loader was not attached.
func (d *Dispatcher) Detach(doc completion.Document, l *loader.Loader) error {
	return d.documents.Detach(doc, l)
}

// Documents returns the per-document cache, including its attribute bag.
func (d *Dispatcher) Documents() *registry.Documents {
	return d.documents
}

// Forget tears down the state of a closed document.
func (d *Dispatcher) Forget(id completion.DocumentID) {
	d.documents.Forget(id)
}

// OnBeforeLoad registers a callback run after categories are computed and
// before loaders are queried. Callbacks run in registration order.
func (d *Dispatcher) OnBeforeLoad(cb Callback) {
	d.callbacksMu.Lock()
	defer d.callbacksMu.Unlock()
	d.before = append(d.before, cb)
}

// OnAfterLoad registers a callback run with the merged result. Callbacks run
// in registration order.
func (d *Dispatcher) OnAfterLoad(cb Callback) {
	d.callbacksMu.Lock()
	defer d.callbacksMu.Unlock()
	d.after = append(d.after, cb)
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Requests:       d.requests.Load(),
		EmptyRequests:  d.emptyRequests.Load(),
		PooledRounds:   d.pooledRounds.Load(),
		WorkersSpawned: d.workersSpawned.Load(),
		LoadersQueried: d.loadersQueried.Load(),
		Placeholders:   d.placeholders.Load(),
	}
}

// Categories returns the categories the triggers of doc need at positions.
func (d *Dispatcher) Categories(doc completion.Document, prefix string, positions []int) completion.CategorySet {
	return trigger.Categories(d.documents.Triggers(doc), prefix, positions, d.logger)
}

// Aggregate runs one aggregation round and returns the merged, sorted
// completions. A round with no categories or no loaders yields an empty
// result; failures of individual triggers, loaders and callbacks are logged
// and do not affect the others.
func (d *Dispatcher) Aggregate(ctx context.Context, req Request) completion.Result {
	d.requests.Add(1)
	logger := d.logger.With(zap.String("document", string(req.Doc.ID())))

	categories := d.Categories(req.Doc, req.Prefix, req.Positions)
	if categories.Empty() {
		d.emptyRequests.Add(1)
		logger.Debug("no categories needed")
		return completion.MergeAll()
	}

	ev := Event{
		Doc:        req.Doc,
		Prefix:     req.Prefix,
		Positions:  req.Positions,
		Categories: categories,
	}
	d.run(ctx, d.callbacks(false), ev, "before-load")

	syncGroup, asyncGroup := d.collect(req.Doc, categories)
	logger.Debug("aggregating",
		zap.Strings("categories", categories.Strings()),
		zap.Int("sync", len(syncGroup)),
		zap.Int("async", len(asyncGroup)),
	)

	loadReq := loader.Request{Doc: req.Doc, Categories: categories, Wait: req.Wait}
	results := make(chan completion.Contribution, len(syncGroup)+len(asyncGroup))

	wait := func() {}
	if len(asyncGroup) > d.fanOutThreshold {
		wait = d.pool(ctx, asyncGroup, loadReq, results)
	} else {
		for _, l := range asyncGroup {
			d.query(ctx, l, loadReq, results)
		}
	}

	for _, l := range syncGroup {
		d.query(ctx, l, loadReq, results)
	}

	wait()
	close(results)

	ev.Result = completion.Merge(results)
	d.run(ctx, d.callbacks(true), ev, "after-load")

	logger.Debug("aggregated",
		zap.Int("items", len(ev.Result.Items)),
		zap.Int("pending", ev.Result.Pending),
		zap.Uint32("flags", uint32(ev.Result.Flags)),
	)
	return ev.Result
}

// collect returns the loaders of doc that serve at least one of categories,
// split by execution mode.
func (d *Dispatcher) collect(doc completion.Document, categories completion.CategorySet) (syncGroup, asyncGroup []*loader.Loader) {
	for _, l := range d.documents.Loaders(doc) {
		if categories.Intersect(l.Provider().Categories()).Empty() {
			continue
		}
		if l.Async() {
			asyncGroup = append(asyncGroup, l)
		} else {
			syncGroup = append(syncGroup, l)
		}
	}
	return syncGroup, asyncGroup
}

// pool drains loaders with a fixed number of workers and returns a function
// that blocks until every queued loader has been queried.
func (d *Dispatcher) pool(ctx context.Context, loaders []*loader.Loader, req loader.Request, results chan<- completion.Contribution) func() {
	queue := make(chan *loader.Loader, len(loaders))
	for _, l := range loaders {
		queue <- l
	}
	close(queue)

	workers := min(d.workers, len(loaders))
	d.pooledRounds.Add(1)
	d.workersSpawned.Add(int64(workers))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for l := range queue {
				d.query(ctx, l, req, results)
			}
		}()
	}
	return wg.Wait
}

// query pushes the contribution of one loader, if any, into results.
func (d *Dispatcher) query(ctx context.Context, l *loader.Loader, req loader.Request, results chan<- completion.Contribution) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("loader panicked", zap.Stringer("loader", l), zap.Any("panic", r))
		}
	}()

	d.loadersQueried.Add(1)
	c, ok := l.Get(ctx, req)
	if !ok {
		return
	}
	if c.Placeholder {
		d.placeholders.Add(1)
	}
	results <- c
}

func (d *Dispatcher) callbacks(after bool) []Callback {
	d.callbacksMu.RLock()
	defer d.callbacksMu.RUnlock()
	if after {
		return append([]Callback(nil), d.after...)
	}
	return append([]Callback(nil), d.before...)
}

func (d *Dispatcher) run(ctx context.Context, callbacks []Callback, ev Event, stage string) {
	for i, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("load callback panicked",
						zap.String("stage", stage),
						zap.Int("index", i),
						zap.Any("panic", r),
					)
				}
			}()
			cb(ctx, ev)
		}()
	}
}
