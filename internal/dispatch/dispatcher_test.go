package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/document"
	"github.com/atinylittleshell/dyncomplete/internal/loader"
	"github.com/atinylittleshell/dyncomplete/internal/registry"
	"github.com/atinylittleshell/dyncomplete/internal/scope"
	"github.com/atinylittleshell/dyncomplete/internal/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is a loader.Provider whose behaviour is set per test.
type fakeProvider struct {
	name       string
	variant    loader.Variant
	async      bool
	categories []completion.Category
	items      []string
	err        error
	flags      completion.Flags
	block      chan struct{}
	targets    []string
	loads      atomic.Int32
}

func (p *fakeProvider) Name() string            { return p.name }
func (p *fakeProvider) Variant() loader.Variant { return p.variant }
func (p *fakeProvider) Async() bool             { return p.async }
func (p *fakeProvider) Flags() completion.Flags { return p.flags }

func (p *fakeProvider) Categories() completion.CategorySet {
	if len(p.categories) == 0 {
		return completion.NewCategorySet("func")
	}
	return completion.NewCategorySet(p.categories...)
}

func (p *fakeProvider) Targets(completion.Document) ([]string, error) {
	return p.targets, nil
}

func (p *fakeProvider) Load(_ context.Context, req loader.LoadRequest) (loader.Results, error) {
	p.loads.Add(1)
	if p.block != nil {
		<-p.block
	}
	if p.err != nil {
		return loader.Results{}, p.err
	}
	if p.variant == loader.File {
		lines, err := loader.ReadLines(req.Target)
		if err != nil {
			return loader.Results{}, err
		}
		return loader.Flat(completion.Items(lines...)...), nil
	}
	return loader.Flat(completion.Items(p.items...)...), nil
}

func funcTrigger() trigger.Factory {
	return trigger.NewScoped(trigger.Rule{
		Name:          "func",
		DocumentScope: "source.go",
		Categories:    []string{"func"},
	})
}

func goDoc(selections ...int) *document.Buffer {
	return document.New(document.Options{
		ID:         "main.go",
		Oracle:     scope.Static{Name: "source.go"},
		Selections: selections,
	})
}

func newDispatcher(t *testing.T, providers ...loader.Provider) *Dispatcher {
	t.Helper()
	d := New(Options{})
	d.RegisterTrigger(funcTrigger())
	for _, p := range providers {
		d.RegisterProvider(p)
	}
	return d
}

func asyncProviders(n int) []loader.Provider {
	out := make([]loader.Provider, 0, n)
	for i := 0; i < n; i++ {
		name := string(rune('a' + i))
		out = append(out, &fakeProvider{name: name, async: true, items: []string{name}})
	}
	return out
}

func TestAggregateEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funcs.txt")
	require.NoError(t, os.WriteFile(path, []byte("c\n"), 0644))

	static := &fakeProvider{name: "S1", items: []string{"b", "a"}}
	file := &fakeProvider{name: "F1", variant: loader.File, targets: []string{path}}
	d := newDispatcher(t, static, file)

	doc := goDoc(10)
	result := d.Aggregate(context.Background(), Request{Doc: doc, Positions: []int{10}})

	assert.Equal(t, []string{"a", "b", "c"}, completion.Labels(result.Items))
	assert.Equal(t, completion.Flags(0), result.Flags)
	assert.Equal(t, 0, result.Pending)
	assert.Equal(t, int64(0), d.Stats().WorkersSpawned)

	again := d.Aggregate(context.Background(), Request{Doc: doc, Positions: []int{10}})
	assert.Equal(t, result.Items, again.Items)
	assert.Equal(t, int32(1), static.loads.Load())
	assert.Equal(t, int32(1), file.loads.Load())
}

func TestAggregateFanOutThreshold(t *testing.T) {
	t.Run("three async loaders run inline", func(t *testing.T) {
		d := newDispatcher(t, asyncProviders(3)...)
		result := d.Aggregate(context.Background(), Request{Doc: goDoc(), Wait: true})

		assert.Equal(t, []string{"a", "b", "c"}, completion.Labels(result.Items))
		assert.Equal(t, int64(0), d.Stats().PooledRounds)
		assert.Equal(t, int64(0), d.Stats().WorkersSpawned)
	})

	t.Run("four async loaders use the pool", func(t *testing.T) {
		d := newDispatcher(t, asyncProviders(4)...)
		result := d.Aggregate(context.Background(), Request{Doc: goDoc(), Wait: true})

		assert.Equal(t, []string{"a", "b", "c", "d"}, completion.Labels(result.Items))
		assert.Equal(t, int64(1), d.Stats().PooledRounds)
		assert.Equal(t, int64(DefaultWorkers), d.Stats().WorkersSpawned)
	})
}

func TestAggregateAsyncLoaderLoadsOnce(t *testing.T) {
	slow := &fakeProvider{name: "slow", async: true, items: []string{"x"}, block: make(chan struct{})}
	fast := &fakeProvider{name: "fast", items: []string{"y"}}
	d := newDispatcher(t, slow, fast)
	doc := goDoc()

	first := d.Aggregate(context.Background(), Request{Doc: doc})
	second := d.Aggregate(context.Background(), Request{Doc: doc})

	for _, r := range []completion.Result{first, second} {
		assert.Equal(t, []string{"y"}, completion.Labels(r.Items))
		assert.Equal(t, 1, r.Pending)
	}

	close(slow.block)
	l := d.Loader(slow, "")
	<-l.Done()

	third := d.Aggregate(context.Background(), Request{Doc: doc})
	assert.Equal(t, []string{"x", "y"}, completion.Labels(third.Items))
	assert.Equal(t, 0, third.Pending)
	assert.Equal(t, int32(1), slow.loads.Load())
	assert.Equal(t, int64(2), d.Stats().Placeholders)
}

func TestAggregateWithoutCategories(t *testing.T) {
	d := New(Options{})
	p := &fakeProvider{name: "words", items: []string{"a"}}
	d.RegisterProvider(p)

	called := false
	d.OnBeforeLoad(func(context.Context, Event) { called = true })

	result := d.Aggregate(context.Background(), Request{Doc: goDoc()})
	assert.True(t, result.Empty())
	assert.NotNil(t, result.Items)
	assert.False(t, called)
	assert.Equal(t, int32(0), p.loads.Load())
	assert.Equal(t, int64(1), d.Stats().EmptyRequests)
}

func TestAggregateSkipsLoadersOutsideCategories(t *testing.T) {
	other := &fakeProvider{name: "vars", categories: []completion.Category{"var"}, items: []string{"v"}}
	funcs := &fakeProvider{name: "funcs", items: []string{"f"}}
	d := newDispatcher(t, other, funcs)

	result := d.Aggregate(context.Background(), Request{Doc: goDoc()})
	assert.Equal(t, []string{"f"}, completion.Labels(result.Items))
	assert.Equal(t, int32(0), other.loads.Load())
	assert.Equal(t, int64(1), d.Stats().LoadersQueried)
}

func TestAggregateIsolatesFailures(t *testing.T) {
	broken := &fakeProvider{name: "broken", err: errors.New("unavailable")}
	good := &fakeProvider{name: "good", items: []string{"ok"}, flags: completion.InhibitWordCompletions}
	d := newDispatcher(t, broken, good)

	result := d.Aggregate(context.Background(), Request{Doc: goDoc()})
	assert.Equal(t, []string{"ok"}, completion.Labels(result.Items))
	assert.Equal(t, completion.InhibitWordCompletions, result.Flags)
}

func TestAggregateCombinesFlags(t *testing.T) {
	a := &fakeProvider{name: "a", items: []string{"a"}, flags: completion.InhibitWordCompletions}
	b := &fakeProvider{name: "b", items: []string{"b"}, flags: completion.InhibitExplicitCompletions}
	d := newDispatcher(t, a, b)

	result := d.Aggregate(context.Background(), Request{Doc: goDoc()})
	assert.Equal(t, completion.InhibitWordCompletions|completion.InhibitExplicitCompletions, result.Flags)
}

func TestCallbacksRunInOrderAndAreIsolated(t *testing.T) {
	d := newDispatcher(t, &fakeProvider{name: "words", items: []string{"a"}})

	var calls []string
	d.OnBeforeLoad(func(_ context.Context, ev Event) {
		calls = append(calls, "before-1")
		assert.Equal(t, []string{"func"}, ev.Categories.Strings())
	})
	d.OnBeforeLoad(func(context.Context, Event) { panic("broken hook") })
	d.OnBeforeLoad(func(context.Context, Event) { calls = append(calls, "before-3") })
	d.OnAfterLoad(func(_ context.Context, ev Event) {
		calls = append(calls, "after-1")
		assert.Equal(t, []string{"a"}, completion.Labels(ev.Result.Items))
	})
	d.OnAfterLoad(func(context.Context, Event) { calls = append(calls, "after-2") })

	result := d.Aggregate(context.Background(), Request{Doc: goDoc(), Prefix: "a"})
	assert.Equal(t, []string{"a"}, completion.Labels(result.Items))
	assert.Equal(t, []string{"before-1", "before-3", "after-1", "after-2"}, calls)
}

func TestAttachAndDetachLoaders(t *testing.T) {
	d := newDispatcher(t)
	doc := goDoc()
	extra := &fakeProvider{name: "extra", items: []string{"e"}}
	l := d.Loader(extra, "")

	d.Attach(doc, l)
	result := d.Aggregate(context.Background(), Request{Doc: doc})
	assert.Equal(t, []string{"e"}, completion.Labels(result.Items))

	require.NoError(t, d.Detach(doc, l))
	assert.True(t, d.Aggregate(context.Background(), Request{Doc: doc}).Empty())
	assert.ErrorIs(t, d.Detach(doc, l), registry.ErrLoaderNotAttached)
}

func TestForgetDropsDocumentLoaders(t *testing.T) {
	buffer := &fakeProvider{name: "buffer", variant: loader.Document, items: []string{"w"}}
	words := &fakeProvider{name: "words", items: []string{"s"}}
	d := newDispatcher(t, buffer, words)
	doc := goDoc()

	d.Aggregate(context.Background(), Request{Doc: doc})
	assert.Equal(t, 2, d.instances.Len())

	d.Forget(doc.ID())
	assert.Equal(t, 1, d.instances.Len())
	assert.Equal(t, 0, d.Documents().Len())
}

func TestUnregisterProvider(t *testing.T) {
	words := &fakeProvider{name: "words", items: []string{"s"}}
	d := newDispatcher(t, words)
	doc := goDoc()

	assert.Len(t, d.Aggregate(context.Background(), Request{Doc: doc}).Items, 1)
	assert.True(t, d.UnregisterProvider("words"))
	assert.False(t, d.UnregisterProvider("words"))
	assert.Empty(t, d.Aggregate(context.Background(), Request{Doc: doc}).Items)
	assert.Equal(t, 0, d.instances.Len())
}
