package loader

import (
	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"go.uber.org/zap"
)

// Results is the cache of a loader: either keyed by category, or a flat set
// that is returned whatever categories were requested.
type Results struct {
	byCategory  map[completion.Category]completion.ItemSet
	flat        completion.ItemSet
	categorized bool
}

// Categorized builds results keyed by category.
func Categorized(items map[completion.Category][]completion.Item) Results {
	r := Results{
		byCategory:  make(map[completion.Category]completion.ItemSet, len(items)),
		categorized: true,
	}
	for c, list := range items {
		r.byCategory[c] = completion.NewItemSet(list...)
	}
	return r
}

// Flat builds results without categories.
func Flat(items ...completion.Item) Results {
	return Results{flat: completion.NewItemSet(items...)}
}

// Len counts the cached items.
func (r Results) Len() int {
	if !r.categorized {
		return len(r.flat)
	}
	n := 0
	for _, s := range r.byCategory {
		n += len(s)
	}
	return n
}

// Filter returns the cached items of the given categories in their natural
// order. A category missing from categorized results is logged and skipped.
// Flat results are returned whole.
func (r Results) Filter(categories completion.CategorySet, logger *zap.Logger) []completion.Item {
	if !r.categorized {
		return r.flat.Sorted()
	}

	out := make(completion.ItemSet)
	for _, c := range categories.Sorted() {
		items, ok := r.byCategory[c]
		if !ok {
			logger.Warn("loader has no results for category", zap.String("category", string(c)))
			continue
		}
		out.Union(items)
	}
	return out.Sorted()
}
