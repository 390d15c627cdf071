package document

import (
	"testing"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/scope"
	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsIDToPath(t *testing.T) {
	b := New(Options{Path: "/work/run.sh", Text: "ls"})
	assert.Equal(t, completion.DocumentID("/work/run.sh"), b.ID())
	assert.Equal(t, "/work", b.Dir())
	assert.Equal(t, "source.shell", completion.PrimaryScope(b))
}

func TestSetTextRebuildsOracle(t *testing.T) {
	b := New(Options{Path: "run.sh", Text: "ls"})
	assert.NotContains(t, b.ScopeName(5), "variable.other.readwrite.shell")

	b.SetText("echo $HOME")
	assert.Contains(t, b.ScopeName(7), "variable.other.readwrite.shell")
	assert.Equal(t, "echo $HOME", b.Text())
}

func TestFixedOracle(t *testing.T) {
	b := New(Options{ID: "x", Oracle: scope.Static{Name: "source.go"}})
	b.SetText("package main")
	assert.Equal(t, "source.go", b.ScopeName(0))

	b.SetOracle(scope.Static{Name: "source.python"})
	assert.Equal(t, "source.python", completion.PrimaryScope(b))
	assert.Equal(t, "", b.Dir())
}

func TestSelectionsAreCopied(t *testing.T) {
	b := New(Options{ID: "x"})
	b.SetSelections(3, 7)
	sel := b.Selections()
	sel[0] = 99
	assert.Equal(t, []int{3, 7}, b.Selections())
}

func TestWordBefore(t *testing.T) {
	assert.Equal(t, "wor", WordBefore("some wor", 8))
	assert.Equal(t, "", WordBefore("some ", 5))
	assert.Equal(t, "my-cmd", WordBefore("run my-cmd", 10))
	assert.Equal(t, "ab", WordBefore("(ab)", 3))
	assert.Equal(t, "café", WordBefore("un café", 100))
}
