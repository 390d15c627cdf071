package registry

import (
	"testing"
	"time"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/document"
	"github.com/atinylittleshell/dyncomplete/internal/loader"
	"github.com/atinylittleshell/dyncomplete/internal/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func goDoc(id string) *document.Buffer {
	return document.New(document.Options{ID: completion.DocumentID(id), Oracle: scope.Static{Name: "source.go"}})
}

func newDocuments(t *testing.T) (*Documents, *Triggers, *Providers) {
	t.Helper()
	triggers := NewTriggers()
	providers := NewProviders()
	docs := NewDocuments(DocumentsOptions{Triggers: triggers, Providers: providers})
	return docs, triggers, providers
}

func TestDocumentTriggersAreCached(t *testing.T) {
	docs, triggers, _ := newDocuments(t)
	goFactory := &fakeFactory{name: "go", scope: "source.go"}
	pyFactory := &fakeFactory{name: "py", scope: "source.python"}
	triggers.Register(goFactory)
	triggers.Register(pyFactory)

	doc := goDoc("main.go")
	first := docs.Triggers(doc)
	second := docs.Triggers(doc)

	require.Len(t, first, 1)
	assert.Equal(t, "go", first[0].Name)
	assert.Len(t, second, 1)
	assert.Equal(t, 1, goFactory.created)
	assert.Equal(t, 0, pyFactory.created)
}

func TestDocumentTriggersInvalidateOnEpoch(t *testing.T) {
	docs, triggers, _ := newDocuments(t)
	goFactory := &fakeFactory{name: "go", scope: "source.go"}
	triggers.Register(goFactory)

	doc := goDoc("main.go")
	docs.Triggers(doc)
	triggers.Register(&fakeFactory{name: "other", scope: "source.go"})

	assert.Len(t, docs.Triggers(doc), 2)
	assert.Equal(t, 2, goFactory.created)
}

func TestDocumentTriggersInvalidateOnScope(t *testing.T) {
	docs, triggers, _ := newDocuments(t)
	triggers.Register(&fakeFactory{name: "go", scope: "source.go"})

	doc := goDoc("main.go")
	assert.Len(t, docs.Triggers(doc), 1)

	doc.SetOracle(scope.Static{Name: "text.plain"})
	assert.Empty(t, docs.Triggers(doc))
}

func TestDocumentLoadersResolveProviders(t *testing.T) {
	docs, _, providers := newDocuments(t)
	providers.Register(fakeProvider{name: "words", variant: loader.Static})
	providers.Register(fakeProvider{name: "buffer", variant: loader.Document})

	a := docs.Loaders(goDoc("a"))
	b := docs.Loaders(goDoc("b"))
	require.Len(t, a, 2)
	require.Len(t, b, 2)
	assert.Same(t, a[0], b[0])
	assert.NotSame(t, a[1], b[1])

	providers.Unregister("buffer")
	assert.Len(t, docs.Loaders(goDoc("a")), 1)
}

func TestDocumentLoadersSkipUnresolvable(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	providers := NewProviders()
	docs := NewDocuments(DocumentsOptions{Providers: providers, Logger: zap.New(core)})
	providers.Register(fakeProvider{name: "words", variant: loader.Static})
	providers.Register(fakeProvider{name: "files", variant: loader.File})

	assert.Len(t, docs.Loaders(goDoc("a")), 1)
	assert.Equal(t, 1, logs.FilterMessage("failed to resolve loaders").Len())
}

func TestAttachAndDetach(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	docs := NewDocuments(DocumentsOptions{Logger: zap.New(core)})
	doc := goDoc("a")
	l := loader.New(fakeProvider{name: "extra"}, loader.Key{Provider: "extra"}, nil)

	docs.Attach(doc, l)
	docs.Attach(doc, l)
	assert.Equal(t, []*loader.Loader{l}, docs.Loaders(doc))

	require.NoError(t, docs.Detach(doc, l))
	assert.Empty(t, docs.Loaders(doc))

	err := docs.Detach(doc, l)
	assert.ErrorIs(t, err, ErrLoaderNotAttached)
	assert.Equal(t, 1, logs.FilterMessage("tried to remove unassigned loader").Len())
}

func TestDetachResolvedLoader(t *testing.T) {
	docs, _, providers := newDocuments(t)
	providers.Register(fakeProvider{name: "words", variant: loader.Static})
	doc := goDoc("a")

	loaders := docs.Loaders(doc)
	require.Len(t, loaders, 1)
	require.NoError(t, docs.Detach(doc, loaders[0]))
	assert.Empty(t, docs.Loaders(doc))
}

func TestDocumentAttributes(t *testing.T) {
	docs, _, _ := newDocuments(t)
	doc := goDoc("a")

	assert.False(t, docs.HasAttr(doc, "last-prefix"))
	docs.SetAttr(doc, "last-prefix", "fo")
	v, ok := docs.Attr(doc, "last-prefix")
	assert.True(t, ok)
	assert.Equal(t, "fo", v)
	assert.False(t, docs.HasAttr(goDoc("b"), "last-prefix"))
}

func TestForgetCallsOnEvict(t *testing.T) {
	var evicted []completion.DocumentID
	docs := NewDocuments(DocumentsOptions{
		OnEvict: func(id completion.DocumentID) { evicted = append(evicted, id) },
	})
	doc := goDoc("a")
	docs.SetAttr(doc, "k", 1)
	assert.Equal(t, 1, docs.Len())

	docs.Forget("a")
	assert.Equal(t, 0, docs.Len())
	assert.Equal(t, []completion.DocumentID{"a"}, evicted)
	assert.False(t, docs.HasAttr(doc, "k"))
}

func TestIdleEntriesExpire(t *testing.T) {
	evicted := make(chan completion.DocumentID, 1)
	docs := NewDocuments(DocumentsOptions{
		IdleTTL: 20 * time.Millisecond,
		OnEvict: func(id completion.DocumentID) { evicted <- id },
	})
	docs.SetAttr(goDoc("a"), "k", 1)

	select {
	case id := <-evicted:
		assert.Equal(t, completion.DocumentID("a"), id)
	case <-time.After(2 * time.Second):
		t.Fatal("document entry was not evicted")
	}
}
