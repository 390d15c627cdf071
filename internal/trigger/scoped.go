package trigger

import "github.com/atinylittleshell/dyncomplete/internal/completion"

// Rule describes a trigger that requests fixed categories whenever the cursor
// is inside a scope.
type Rule struct {
	Name           string   `mapstructure:"name"`
	DocumentScope  string   `mapstructure:"document_scope"`
	SelectionScope string   `mapstructure:"selection_scope"`
	Categories     []string `mapstructure:"categories"`
}

// Scoped is a Factory built from a Rule.
type Scoped struct {
	rule       Rule
	categories completion.CategorySet
}

// NewScoped creates a factory for rule.
func NewScoped(rule Rule) *Scoped {
	return &Scoped{
		rule:       rule,
		categories: completion.ParseCategories(rule.Categories...),
	}
}

// Name implements Factory.
func (s *Scoped) Name() string {
	return s.rule.Name
}

// DocumentScope implements Factory.
func (s *Scoped) DocumentScope() string {
	return s.rule.DocumentScope
}

// New implements Factory.
func (s *Scoped) New(doc completion.Document) Trigger {
	return &scopedTrigger{
		Base:       Base{Doc: doc, Selector: s.rule.SelectionScope},
		categories: s.categories,
	}
}

type scopedTrigger struct {
	Base
	categories completion.CategorySet
}

func (t *scopedTrigger) Categories(string, []int) (completion.CategorySet, error) {
	return t.categories.Clone(), nil
}
