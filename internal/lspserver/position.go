package lspserver

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// offsetAt converts an LSP position, whose character is counted in UTF-16
// code units, to a byte offset into text. Positions past the end of a line
// clamp to the line end; positions past the last line clamp to len(text).
func offsetAt(text string, pos protocol.Position) int {
	offset := 0
	for line := protocol.UInteger(0); line < pos.Line; line++ {
		idx := strings.IndexByte(text[offset:], '\n')
		if idx < 0 {
			return len(text)
		}
		offset += idx + 1
	}

	units := protocol.UInteger(0)
	for offset < len(text) && units < pos.Character {
		r, size := utf8.DecodeRuneInString(text[offset:])
		if r == '\n' {
			break
		}
		units += protocol.UInteger(utf16.RuneLen(r))
		offset += size
	}
	return offset
}
