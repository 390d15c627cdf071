package providers

import (
	"context"
	"unicode"
	"unicode/utf8"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/loader"
	"github.com/rivo/uniseg"
)

const DefaultMinWordLength = 3

// BufferWords serves the words of the document being edited. It is reloaded
// on every request.
type BufferWords struct {
	MinLength int
}

func (b *BufferWords) Name() string                       { return "buffer-words" }
func (b *BufferWords) Variant() loader.Variant            { return loader.Document }
func (b *BufferWords) Categories() completion.CategorySet { return completion.NewCategorySet(WordCategory) }
func (b *BufferWords) Async() bool                        { return false }

func (b *BufferWords) Load(_ context.Context, req loader.LoadRequest) (loader.Results, error) {
	minLength := b.MinLength
	if minLength <= 0 {
		minLength = DefaultMinWordLength
	}
	return loader.Flat(completion.Items(Words(req.Doc.Text(), minLength)...)...), nil
}

// Words splits text on Unicode word boundaries and returns the distinct
// identifier-like words of at least minLength runes, in order of first
// appearance.
func Words(text string, minLength int) []string {
	seen := make(map[string]struct{})
	var out []string

	state := -1
	for len(text) > 0 {
		var word string
		word, text, state = uniseg.FirstWordInString(text, state)
		if utf8.RuneCountInString(word) < minLength || !isIdentifier(word) {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}
	return out
}

func isIdentifier(word string) bool {
	for i, r := range word {
		switch {
		case unicode.IsLetter(r), r == '_':
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
