package registry

import (
	"context"
	"testing"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/loader"
	"github.com/atinylittleshell/dyncomplete/internal/trigger"
	"github.com/stretchr/testify/assert"
)

type fakeFactory struct {
	name    string
	scope   string
	created int
}

func (f *fakeFactory) Name() string          { return f.name }
func (f *fakeFactory) DocumentScope() string { return f.scope }

func (f *fakeFactory) New(doc completion.Document) trigger.Trigger {
	f.created++
	return fakeTrigger{Base: trigger.Base{Doc: doc, Selector: f.scope}}
}

type fakeTrigger struct {
	trigger.Base
}

func (fakeTrigger) Categories(string, []int) (completion.CategorySet, error) {
	return completion.NewCategorySet("func"), nil
}

type fakeProvider struct {
	name    string
	variant loader.Variant
}

func (p fakeProvider) Name() string                       { return p.name }
func (p fakeProvider) Variant() loader.Variant            { return p.variant }
func (p fakeProvider) Categories() completion.CategorySet { return completion.NewCategorySet("func") }
func (p fakeProvider) Async() bool                        { return false }

func (p fakeProvider) Load(context.Context, loader.LoadRequest) (loader.Results, error) {
	return loader.Flat(completion.NewItem(p.name)), nil
}

func TestTriggersEpoch(t *testing.T) {
	r := NewTriggers()
	assert.Equal(t, uint64(0), r.Epoch())

	r.Register(&fakeFactory{name: "a"})
	r.Register(&fakeFactory{name: "b"})
	assert.Equal(t, uint64(2), r.Epoch())
	assert.Len(t, r.Factories(), 2)

	replacement := &fakeFactory{name: "a", scope: "source.go"}
	r.Register(replacement)
	assert.Equal(t, uint64(3), r.Epoch())
	assert.Len(t, r.Factories(), 2)
	assert.Same(t, replacement, r.Factories()[0])

	assert.True(t, r.Unregister("b"))
	assert.False(t, r.Unregister("b"))
	assert.Equal(t, uint64(4), r.Epoch())
	assert.Len(t, r.Factories(), 1)
}

func TestProvidersEpoch(t *testing.T) {
	r := NewProviders()
	r.Register(fakeProvider{name: "words"})
	r.Register(fakeProvider{name: "commands"})

	assert.Equal(t, uint64(2), r.Epoch())
	names := []string{}
	for _, p := range r.List() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"words", "commands"}, names)

	assert.True(t, r.Unregister("words"))
	assert.Equal(t, uint64(3), r.Epoch())
}
