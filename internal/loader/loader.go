package loader

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// State is the load lifecycle of a Loader.
type State int32

const (
	Idle State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Key identifies a loader instance. Two requests with equal keys share one
// instance and therefore one cache.
type Key struct {
	Provider string
	Variant  Variant
	// Target is the document id, file path or directory; empty for Static.
	Target string
}

func (k Key) String() string {
	if k.Target == "" {
		return k.Provider
	}
	return fmt.Sprintf("%s(%s)", k.Provider, k.Target)
}

// Request asks a loader for completions.
type Request struct {
	Doc        completion.Document
	Categories completion.CategorySet
	// Wait forces an asynchronous loader to load inline.
	Wait bool
}

// Loader caches the results of one provider for one identity key.
//
// State transitions happen under mu, so at most one load runs per instance.
// Results are written only while the state is Loading and are read by
// requests only once the state has moved to Ready.
type Loader struct {
	provider Provider
	key      Key
	logger   *zap.Logger

	mu       sync.Mutex
	state    State
	results  Results
	loadErr  error
	observed time.Time
	loadedAt time.Time
	done     chan struct{}

	loads atomic.Int64
}

// New wraps provider in a loader for key.
func New(provider Provider, key Key, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		provider: provider,
		key:      key,
		logger:   logger.With(zap.Stringer("loader", key)),
	}
}

// Key returns the identity key of the loader.
func (l *Loader) Key() Key {
	return l.key
}

// Provider returns the wrapped provider.
func (l *Loader) Provider() Provider {
	return l.provider
}

// Async reports whether the loader loads in the background by default.
func (l *Loader) Async() bool {
	return l.provider.Async()
}

func (l *Loader) String() string {
	return l.key.String()
}

// State returns the current lifecycle state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Loads returns how many loads have been started.
func (l *Loader) Loads() int64 {
	return l.loads.Load()
}

// Done returns a channel closed when the current load finishes, or nil when
// no load has been started.
func (l *Loader) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Get returns the loader's contribution for req. The boolean is false when
// the loader contributes nothing: none of its categories were requested, or
// its load failed.
//
// A Ready, fresh cache is returned as is. An Idle loader starts a load: in
// the background when the provider is asynchronous and req.Wait is false,
// returning a placeholder, and inline otherwise. While a load is in flight
// every request gets a placeholder; the first request after it finishes
// moves the loader to Ready and gets the results.
func (l *Loader) Get(ctx context.Context, req Request) (completion.Contribution, bool) {
	included := req.Categories.Intersect(l.provider.Categories())
	if included.Empty() {
		return completion.Contribution{}, false
	}

	l.mu.Lock()

	switch l.state {
	case Loading:
		if !l.finished() {
			l.mu.Unlock()
			l.logger.Debug("load in flight, returning placeholder")
			return l.placeholder(), true
		}
		if !l.finalize() {
			l.mu.Unlock()
			return completion.Contribution{}, false
		}
	case Ready:
		stale, err := l.stale(ctx)
		if err != nil {
			l.reset()
			l.mu.Unlock()
			l.logger.Error("failed to check loader staleness", zap.Error(err))
			return completion.Contribution{}, false
		}
		if stale {
			l.logger.Debug("cache is stale, reloading")
			l.reset()
		}
	}

	if l.state == Ready {
		defer l.mu.Unlock()
		return l.contribution(included), true
	}

	observed, err := l.observe()
	if err != nil {
		l.mu.Unlock()
		l.logger.Error("failed to start load", zap.Error(err))
		return completion.Contribution{}, false
	}

	done := make(chan struct{})
	l.state = Loading
	l.done = done
	l.loadErr = nil
	l.observed = observed
	l.loads.Add(1)
	async := l.provider.Async() && !req.Wait
	l.mu.Unlock()

	loadReq := LoadRequest{Doc: req.Doc, Target: l.key.Target, Categories: included.Clone()}

	if async {
		l.logger.Debug("starting background load", zap.Strings("categories", included.Strings()))
		go l.run(context.WithoutCancel(ctx), loadReq, done)
		return l.placeholder(), true
	}

	l.logger.Debug("loading inline", zap.Strings("categories", included.Strings()))
	l.run(ctx, loadReq, done)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Loading && l.done == done && !l.finalize() {
		return completion.Contribution{}, false
	}
	if l.state != Ready {
		return completion.Contribution{}, false
	}
	return l.contribution(included), true
}

// run performs one load and publishes its outcome. The state stays Loading
// until a request observes the closed done channel and finalizes.
func (l *Loader) run(ctx context.Context, req LoadRequest, done chan struct{}) {
	defer close(done)

	results, err := l.load(ctx, req)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = results
	l.loadErr = err
}

func (l *Loader) load(ctx context.Context, req LoadRequest) (results Results, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("loader panicked: %v", r)
		}
	}()
	results, err = l.provider.Load(ctx, req)
	if err != nil {
		err = errors.Wrapf(err, "failed to load %s", l.key)
	}
	return results, err
}

// finished reports, without blocking, whether the in-flight load is done.
// Callers hold mu.
func (l *Loader) finished() bool {
	if l.done == nil {
		return true
	}
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// finalize moves a finished load to Ready, or back to Idle when it failed,
// and reports whether it succeeded. Callers hold mu.
func (l *Loader) finalize() bool {
	if l.loadErr != nil {
		l.logger.Error("load failed", zap.Error(l.loadErr))
		l.reset()
		return false
	}
	l.state = Ready
	l.loadedAt = l.observed
	l.logger.Debug("load finished", zap.Int("items", l.results.Len()))
	return true
}

// reset discards the cache. Callers hold mu.
func (l *Loader) reset() {
	l.state = Idle
	l.results = Results{}
	l.loadErr = nil
}

// observe returns the timestamp a new load is considered fresh as of: the
// backing file's mtime for File loaders, the current time otherwise.
func (l *Loader) observe() (time.Time, error) {
	if l.key.Variant == File {
		return modTime(l.key.Target)
	}
	return time.Now(), nil
}

// stale applies the variant's staleness policy. Callers hold mu.
func (l *Loader) stale(ctx context.Context) (stale bool, err error) {
	switch l.key.Variant {
	case Document:
		return true, nil
	case File:
		mtime, err := modTime(l.key.Target)
		if err != nil {
			return false, err
		}
		return mtime.After(l.loadedAt), nil
	case Path:
		s, ok := l.provider.(Staler)
		if !ok {
			return false, nil
		}
		defer func() {
			if r := recover(); r != nil {
				err = errors.Newf("staleness check panicked: %v", r)
			}
		}()
		return s.Stale(ctx, l.key.Target, l.loadedAt)
	default:
		return false, nil
	}
}

// contribution filters the cache. Callers hold mu.
func (l *Loader) contribution(categories completion.CategorySet) completion.Contribution {
	c := completion.Contribution{
		Source: l.key.String(),
		Items:  l.results.Filter(categories, l.logger),
	}
	if f, ok := l.provider.(Flagger); ok {
		c.Flags = f.Flags()
	}
	return c
}

func (l *Loader) placeholder() completion.Contribution {
	c := completion.Contribution{Source: l.key.String(), Placeholder: true}
	if f, ok := l.provider.(PlaceholderFlagger); ok {
		c.Flags = f.PlaceholderFlags()
	}
	return c
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to stat %s", path)
	}
	return info.ModTime(), nil
}
