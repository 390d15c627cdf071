package document

import (
	"unicode"
	"unicode/utf8"
)

// WordBefore returns the identifier-like word ending at offset. Hyphens count
// as word characters so command names like git-lfs complete as one word.
func WordBefore(text string, offset int) string {
	if offset > len(text) {
		offset = len(text)
	}
	start := offset
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !isWordRune(r) {
			break
		}
		start -= size
	}
	return text[start:offset]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}
