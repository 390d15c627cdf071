// Package trigger decides which completion categories a cursor context needs.
//
// A Factory is a registered trigger type. For every open document the engine
// instantiates the factories whose document scope matches, and on each request
// asks the instances whose selection scope matches for their categories.
package trigger

import (
	"fmt"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Trigger examines the cursor context of one document.
type Trigger interface {
	// SelectionScore scores the trigger against the cursor positions.
	// Zero means the trigger does not apply.
	SelectionScore(positions []int) int

	// Categories returns the categories needed at positions. An empty set
	// means the trigger handles nothing there.
	Categories(prefix string, positions []int) (completion.CategorySet, error)
}

// Factory is a registered trigger type.
type Factory interface {
	// Name identifies the trigger type.
	Name() string

	// DocumentScope is the selector a document must match for this trigger
	// type to be instantiated for it.
	DocumentScope() string

	// New binds a trigger to doc.
	New(doc completion.Document) Trigger
}

// DocumentChecker is implemented by factories that need a check beyond the
// document scope score.
type DocumentChecker interface {
	CheckDocument(doc completion.Document) bool
}

// Instance is a trigger bound to a document, tagged with its type name.
type Instance struct {
	Name string
	Trigger
}

// Base implements SelectionScore for triggers that match one selector.
type Base struct {
	Doc      completion.Document
	Selector string
}

// SelectionScore implements Trigger.
func (b Base) SelectionScore(positions []int) int {
	return completion.SelectionScore(b.Doc, positions, b.Selector)
}

// Instantiate binds every applicable factory to doc. A factory whose checks
// fail or panic is treated as not applicable.
func Instantiate(factories []Factory, doc completion.Document, logger *zap.Logger) []Instance {
	if logger == nil {
		logger = zap.NewNop()
	}

	instances := make([]Instance, 0, len(factories))
	for _, f := range factories {
		if !applicable(f, doc, logger) {
			continue
		}
		var t Trigger
		err := safely(func() error {
			t = f.New(doc)
			return nil
		})
		if err != nil || t == nil {
			logger.Error("failed to create trigger", zap.String("trigger", f.Name()), zap.Error(err))
			continue
		}
		instances = append(instances, Instance{Name: f.Name(), Trigger: t})
	}
	return instances
}

func applicable(f Factory, doc completion.Document, logger *zap.Logger) bool {
	ok := false
	err := safely(func() error {
		if completion.DocumentScore(doc, f.DocumentScope()) <= 0 {
			return nil
		}
		if c, isChecker := f.(DocumentChecker); isChecker && !c.CheckDocument(doc) {
			return nil
		}
		ok = true
		return nil
	})
	if err != nil {
		logger.Error("trigger document check failed", zap.String("trigger", f.Name()), zap.Error(err))
		return false
	}
	return ok
}

// Categories unions the categories of every instance whose selection score is
// positive. A failing instance contributes nothing and does not affect the
// others.
func Categories(instances []Instance, prefix string, positions []int, logger *zap.Logger) completion.CategorySet {
	if logger == nil {
		logger = zap.NewNop()
	}

	out := make(completion.CategorySet)
	for _, in := range instances {
		var cats completion.CategorySet
		err := safely(func() error {
			if in.SelectionScore(positions) <= 0 {
				return nil
			}
			var err error
			cats, err = in.Categories(prefix, positions)
			return err
		})
		if err != nil {
			logger.Error("trigger failed", zap.String("trigger", in.Name), zap.Error(err))
			continue
		}
		out.Union(cats)
	}
	return out
}

func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("panic: %s", fmt.Sprint(r))
		}
	}()
	return fn()
}
