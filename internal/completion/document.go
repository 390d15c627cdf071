package completion

import "strings"

// Flags is a bitmask of presentation hints attached to a result. The engine
// only ORs flags together; their meaning belongs to the host.
type Flags uint32

const (
	// InhibitWordCompletions asks the host to hide its own word-based suggestions.
	InhibitWordCompletions Flags = 8
	// InhibitExplicitCompletions asks the host to hide its explicit-trigger suggestions.
	InhibitExplicitCompletions Flags = 16
)

// DocumentID is the host's stable identifier for an open document.
type DocumentID string

// ScopeOracle scores syntax-scope selectors at positions of a document.
type ScopeOracle interface {
	// ScoreSelector returns how well selector matches the scope at point.
	// Zero means no match.
	ScoreSelector(point int, selector string) int

	// ScopeName returns the space-separated scope stack at point.
	ScopeName(point int) string
}

// Document is the host-provided view of an open text document.
// Implementations must be safe for concurrent reads.
type Document interface {
	ScopeOracle

	// ID returns the stable identifier of the document.
	ID() DocumentID

	// Path returns the backing file path, or "" for unsaved buffers.
	Path() string

	// Selections returns the start point of every cursor/selection.
	Selections() []int

	// Text returns the current contents of the document.
	Text() string
}

// PrimaryScope returns the first element of the scope stack at the first
// selection, or at point 0 when there is no selection.
func PrimaryScope(doc Document) string {
	point := 0
	if sel := doc.Selections(); len(sel) > 0 {
		point = sel[0]
	}
	first, _, _ := strings.Cut(doc.ScopeName(point), " ")
	return first
}
