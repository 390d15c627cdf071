package providers

import (
	"context"
	"sync"
	"time"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/history"
	"github.com/atinylittleshell/dyncomplete/internal/loader"
)

const DefaultHistoryLimit = 200

// HistoryStore is the part of the history store the History provider reads.
type HistoryStore interface {
	Words(ctx context.Context, directory, category string, limit int) ([]string, error)
	Revision(ctx context.Context, directory, category string) (history.Revision, error)
}

// History serves the words previously recorded for the document's directory
// under its category. The cache goes stale when words are recorded, deleted
// or reset after the last load.
type History struct {
	Store HistoryStore
	Limit int
	// Category defaults to HistoryCategory.
	Category completion.Category

	mu     sync.Mutex
	loaded map[string]history.Revision
}

func (h *History) Name() string                       { return "history" }
func (h *History) Variant() loader.Variant            { return loader.Path }
func (h *History) Categories() completion.CategorySet { return completion.NewCategorySet(h.category()) }
func (h *History) Async() bool                        { return false }

func (h *History) category() completion.Category {
	if h.Category == "" {
		return HistoryCategory
	}
	return h.Category
}

// Targets returns the directory of doc, or nothing for unsaved documents.
func (h *History) Targets(doc completion.Document) ([]string, error) {
	return documentDirTargets(doc), nil
}

func (h *History) Stale(ctx context.Context, dir string, _ time.Time) (bool, error) {
	rev, err := h.Store.Revision(ctx, dir, string(h.category()))
	if err != nil {
		return false, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	loaded, ok := h.loaded[dir]
	return !ok || loaded != rev, nil
}

func (h *History) Load(ctx context.Context, req loader.LoadRequest) (loader.Results, error) {
	limit := h.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	category := string(h.category())

	// The revision is read first so that a change racing the query shows up
	// as stale on the next request.
	rev, err := h.Store.Revision(ctx, req.Target, category)
	if err != nil {
		return loader.Results{}, err
	}
	words, err := h.Store.Words(ctx, req.Target, category, limit)
	if err != nil {
		return loader.Results{}, err
	}

	h.mu.Lock()
	if h.loaded == nil {
		h.loaded = make(map[string]history.Revision)
	}
	h.loaded[req.Target] = rev
	h.mu.Unlock()

	return loader.Flat(completion.Items(words...)...), nil
}
