// Package loader implements completion loaders: providers of completions for a
// fixed set of categories, with per-instance caching and a three-state load
// lifecycle (Idle, Loading, Ready).
//
// Plugin code implements Provider. The engine wraps every provider in one
// Loader per identity key; the key, and with it the cache slot, is chosen by
// the provider's Variant:
//
//	Static    one instance per provider, never stale
//	Document  one instance per (provider, document), always reloaded
//	File      one instance per (provider, file path), stale when the file's mtime advances
//	Path      one instance per (provider, directory), stale when the provider says so
package loader

import (
	"context"
	"time"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
)

// Variant selects the identity key and staleness policy of a loader.
type Variant int

const (
	Static Variant = iota
	Document
	File
	Path
)

func (v Variant) String() string {
	switch v {
	case Static:
		return "static"
	case Document:
		return "document"
	case File:
		return "file"
	case Path:
		return "path"
	default:
		return "unknown"
	}
}

// Provider supplies completions for a fixed set of categories.
type Provider interface {
	// Name identifies the provider type.
	Name() string

	// Variant selects how instances are keyed and when caches go stale.
	Variant() Variant

	// Categories are the categories this provider can serve.
	Categories() completion.CategorySet

	// Async reports whether loads should run in the background.
	Async() bool

	// Load computes the completions. It is never called concurrently for
	// the same loader instance.
	Load(ctx context.Context, req LoadRequest) (Results, error)
}

// LoadRequest is passed to Provider.Load.
type LoadRequest struct {
	// Doc is the document whose request started the load.
	Doc completion.Document
	// Target is the file path for File loaders and the directory for Path
	// loaders; empty otherwise.
	Target string
	// Categories are the requested categories this provider can serve.
	Categories completion.CategorySet
}

// DocumentScoper limits a provider to documents matching a scope selector.
type DocumentScoper interface {
	DocumentScope() string
}

// DocumentChecker adds a check beyond the document scope.
type DocumentChecker interface {
	CheckDocument(doc completion.Document) bool
}

// Targeter lists the files (File variant) or directories (Path variant) a
// document draws completions from. Each target gets its own loader instance.
type Targeter interface {
	Targets(doc completion.Document) ([]string, error)
}

// Staler decides staleness for Path loaders. Path loaders without it never
// go stale.
type Staler interface {
	Stale(ctx context.Context, target string, loadedAt time.Time) (bool, error)
}

// Flagger sets the presentation flags attached to a loader's results.
type Flagger interface {
	Flags() completion.Flags
}

// PlaceholderFlagger sets the flags of the placeholder returned while loading.
type PlaceholderFlagger interface {
	PlaceholderFlags() completion.Flags
}

// Applicable reports whether p serves doc. Providers without a DocumentScoper
// apply to every document.
func Applicable(p Provider, doc completion.Document) bool {
	if s, ok := p.(DocumentScoper); ok && completion.DocumentScore(doc, s.DocumentScope()) <= 0 {
		return false
	}
	if c, ok := p.(DocumentChecker); ok && !c.CheckDocument(doc) {
		return false
	}
	return true
}
