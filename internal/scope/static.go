package scope

import (
	"path/filepath"
	"strings"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
)

// PlainText is the base scope of buffers with no known language.
const PlainText = "text.plain"

// Static is an oracle that reports the same scope at every point.
type Static struct {
	Name string
}

// ScopeName implements completion.ScopeOracle.
func (s Static) ScopeName(int) string {
	return s.Name
}

// ScoreSelector implements completion.ScopeOracle.
func (s Static) ScoreSelector(_ int, selector string) int {
	return Score(s.Name, selector)
}

// DefaultLanguages maps file extensions to base scopes.
var DefaultLanguages = map[string]string{
	".sh":   ShellScope,
	".bash": ShellScope,
	".zsh":  ShellScope,
	".go":   "source.go",
	".py":   "source.python",
	".js":   "source.js",
	".ts":   "source.ts",
	".md":   "text.html.markdown",
	".txt":  PlainText,
}

// LanguageFor returns the base scope for path, consulting languages before
// DefaultLanguages.
func LanguageFor(path string, languages map[string]string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if s, ok := languages[ext]; ok {
		return s
	}
	if s, ok := DefaultLanguages[ext]; ok {
		return s
	}
	return PlainText
}

// Detect builds the oracle for a buffer. Shell buffers get a syntax-aware
// oracle; a shell buffer that does not parse still reports its base scope.
func Detect(path, text string, languages map[string]string) completion.ScopeOracle {
	base := LanguageFor(path, languages)
	if Score(base, ShellScope) > 0 {
		sh, _ := NewShell(path, text)
		return sh
	}
	return Static{Name: base}
}
