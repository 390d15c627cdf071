package providers

import (
	"context"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/loader"
	"github.com/samber/lo"
)

// WordList serves fixed words per category.
type WordList struct {
	words      map[completion.Category][]completion.Item
	categories completion.CategorySet
}

// NewWordList creates a WordList from category names to words.
func NewWordList(lists map[string][]string) *WordList {
	w := &WordList{
		words:      make(map[completion.Category][]completion.Item, len(lists)),
		categories: make(completion.CategorySet, len(lists)),
	}
	for name, words := range lists {
		c := completion.Category(name)
		w.categories.Add(c)
		w.words[c] = completion.Items(lo.Uniq(words)...)
	}
	return w
}

func (w *WordList) Name() string                       { return "word-list" }
func (w *WordList) Variant() loader.Variant            { return loader.Static }
func (w *WordList) Categories() completion.CategorySet { return w.categories }
func (w *WordList) Async() bool                        { return false }

func (w *WordList) Load(context.Context, loader.LoadRequest) (loader.Results, error) {
	return loader.Categorized(w.words), nil
}
