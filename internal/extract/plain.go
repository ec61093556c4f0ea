package extract

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// extractPlain returns the whole file as one section. A byte order mark is dropped,
// UTF-16 files are decoded, and invalid UTF-8 is replaced.
func extractPlain(content []byte) ([]section, error) {
	var text string
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		text = string(content[len(bomUTF8):])
	case bytes.HasPrefix(content, bomUTF16LE):
		text = decodeUTF16(content[2:], binary.LittleEndian)
	case bytes.HasPrefix(content, bomUTF16BE):
		text = decodeUTF16(content[2:], binary.BigEndian)
	default:
		text = string(content)
	}
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	return []section{{text: text}}, nil
}

func decodeUTF16(b []byte, order binary.ByteOrder) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = order.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units))
}
