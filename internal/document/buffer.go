// Package document provides an in-memory text document for hosts that do not
// have their own buffer model, such as the CLI and the LSP server.
package document

import (
	"path/filepath"
	"slices"
	"sync"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/scope"
)

// Options configures a Buffer.
type Options struct {
	// ID identifies the document. Defaults to Path.
	ID completion.DocumentID

	// Path is the backing file, if any.
	Path string

	// Text is the initial contents.
	Text string

	// Selections are the initial cursor positions.
	Selections []int

	// Languages overrides the extension to scope mapping.
	Languages map[string]string

	// Oracle fixes the scope oracle. When nil the oracle is detected from
	// the path and rebuilt whenever the text changes.
	Oracle completion.ScopeOracle
}

// Buffer is a completion.Document held in memory. It is safe for concurrent use.
type Buffer struct {
	mu         sync.RWMutex
	id         completion.DocumentID
	path       string
	text       string
	selections []int
	languages  map[string]string
	oracle     completion.ScopeOracle
	fixed      bool
}

// New creates a Buffer.
func New(opts Options) *Buffer {
	id := opts.ID
	if id == "" {
		id = completion.DocumentID(opts.Path)
	}

	b := &Buffer{
		id:         id,
		path:       opts.Path,
		text:       opts.Text,
		selections: slices.Clone(opts.Selections),
		languages:  opts.Languages,
		oracle:     opts.Oracle,
		fixed:      opts.Oracle != nil,
	}
	if !b.fixed {
		b.oracle = scope.Detect(b.path, b.text, b.languages)
	}
	return b
}

// ID implements completion.Document.
func (b *Buffer) ID() completion.DocumentID {
	return b.id
}

// Path implements completion.Document.
func (b *Buffer) Path() string {
	return b.path
}

// Dir returns the directory of the backing file, or "" for unsaved buffers.
func (b *Buffer) Dir() string {
	if b.path == "" {
		return ""
	}
	return filepath.Dir(b.path)
}

// Text implements completion.Document.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// Selections implements completion.Document.
func (b *Buffer) Selections() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.selections)
}

// ScopeName implements completion.ScopeOracle.
func (b *Buffer) ScopeName(point int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.oracle.ScopeName(point)
}

// ScoreSelector implements completion.ScopeOracle.
func (b *Buffer) ScoreSelector(point int, selector string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.oracle.ScoreSelector(point, selector)
}

// SetText replaces the contents and, unless the oracle is fixed, rebuilds it.
func (b *Buffer) SetText(text string) {
	b.mu.RLock()
	fixed := b.fixed
	b.mu.RUnlock()

	var oracle completion.ScopeOracle
	if !fixed {
		oracle = scope.Detect(b.path, text, b.languages)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	if oracle != nil && !b.fixed {
		b.oracle = oracle
	}
}

// SetSelections replaces the cursor positions.
func (b *Buffer) SetSelections(positions ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selections = slices.Clone(positions)
}

// SetOracle fixes the scope oracle.
func (b *Buffer) SetOracle(oracle completion.ScopeOracle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.oracle = oracle
	b.fixed = true
}
