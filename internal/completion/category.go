package completion

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Category names a kind of completion, e.g. "function-name".
type Category string

// CategorySet is an unordered set of categories.
type CategorySet map[Category]struct{}

// NewCategorySet returns a set holding the given categories.
func NewCategorySet(categories ...Category) CategorySet {
	s := make(CategorySet, len(categories))
	for _, c := range categories {
		s[c] = struct{}{}
	}
	return s
}

// ParseCategories converts plain strings into a CategorySet, skipping blanks.
func ParseCategories(names ...string) CategorySet {
	s := make(CategorySet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		s[Category(n)] = struct{}{}
	}
	return s
}

// Add inserts categories into the set.
func (s CategorySet) Add(categories ...Category) {
	for _, c := range categories {
		s[c] = struct{}{}
	}
}

// Has reports whether c is in the set.
func (s CategorySet) Has(c Category) bool {
	_, ok := s[c]
	return ok
}

// Len returns the number of categories in the set. A nil set is empty.
func (s CategorySet) Len() int {
	return len(s)
}

// Empty reports whether the set holds no categories.
func (s CategorySet) Empty() bool {
	return len(s) == 0
}

// Union adds every category of other to s.
func (s CategorySet) Union(other CategorySet) {
	for c := range other {
		s[c] = struct{}{}
	}
}

// Intersect returns a new set holding the categories present in both sets.
func (s CategorySet) Intersect(other CategorySet) CategorySet {
	out := make(CategorySet)
	for c := range s {
		if other.Has(c) {
			out[c] = struct{}{}
		}
	}
	return out
}

// Clone returns a copy of the set.
func (s CategorySet) Clone() CategorySet {
	out := make(CategorySet, len(s))
	out.Union(s)
	return out
}

// Sorted returns the categories in lexical order.
func (s CategorySet) Sorted() []Category {
	keys := lo.Keys(s)
	slices.Sort(keys)
	return keys
}

// Strings returns the categories as sorted plain strings, mostly for logging.
func (s CategorySet) Strings() []string {
	return lo.Map(s.Sorted(), func(c Category, _ int) string {
		return string(c)
	})
}
