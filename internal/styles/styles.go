package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	itemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	matchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Italic(true)
	logStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	ERROR = func(s string) string {
		return errorStyle.Render(s)
	}
	ITEM = func(s string) string {
		return itemStyle.Render(s)
	}
	MATCH = func(s string) string {
		return matchStyle.Render(s)
	}
	PENDING = func(s string) string {
		return pendingStyle.Render(s)
	}
	LOG = func(s string) string {
		return logStyle.Render(s)
	}
)

// Highlight renders s with the runes starting at the given byte offsets
// emphasized.
func Highlight(s string, indexes []int) string {
	if len(indexes) == 0 {
		return ITEM(s)
	}
	marked := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		marked[i] = true
	}
	var out strings.Builder
	for i, r := range s {
		if marked[i] {
			out.WriteString(MATCH(string(r)))
		} else {
			out.WriteString(ITEM(string(r)))
		}
	}
	return out.String()
}
