package completion

import (
	"cmp"
	"slices"
)

// Item is a single completion. Items are totally ordered by Label, then Insert,
// and are comparable so they can be held in sets.
type Item struct {
	// Label is what the user sees in the completion popup.
	Label string
	// Insert is the text inserted when the item is accepted.
	Insert string
}

// NewItem returns an item that inserts its own label.
func NewItem(label string) Item {
	return Item{Label: label, Insert: label}
}

// Items builds one item per label.
func Items(labels ...string) []Item {
	out := make([]Item, 0, len(labels))
	for _, l := range labels {
		out = append(out, NewItem(l))
	}
	return out
}

// Compare orders a before b by label, then by inserted text.
func Compare(a, b Item) int {
	if c := cmp.Compare(a.Label, b.Label); c != 0 {
		return c
	}
	return cmp.Compare(a.Insert, b.Insert)
}

// SortItems sorts items in place in their natural order.
func SortItems(items []Item) {
	slices.SortStableFunc(items, Compare)
}

// ItemSet is a set of items.
type ItemSet map[Item]struct{}

// NewItemSet returns a set holding the given items.
func NewItemSet(items ...Item) ItemSet {
	s := make(ItemSet, len(items))
	s.Add(items...)
	return s
}

// Add inserts items into the set.
func (s ItemSet) Add(items ...Item) {
	for _, it := range items {
		s[it] = struct{}{}
	}
}

// Union adds every item of other to s.
func (s ItemSet) Union(other ItemSet) {
	for it := range other {
		s[it] = struct{}{}
	}
}

// Sorted returns the items of the set in their natural order.
func (s ItemSet) Sorted() []Item {
	out := make([]Item, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	SortItems(out)
	return out
}

// Labels returns the labels of items, in the order given.
func Labels(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}
