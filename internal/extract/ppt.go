package extract

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
)

const (
	pptDocumentStream = "PowerPoint Document"

	recHeaderLen     = 8
	recVerContainer  = 0xF
	recTextCharsAtom = 0x0FA0
	recTextBytesAtom = 0x0FA8
)

var errNoPPTStream = errors.New("no PowerPoint Document stream")

// extractPPT reads a legacy binary .ppt deck. Text atoms are collected from the
// "PowerPoint Document" stream and joined into a single whole-deck section.
// A malformed stream fails the whole file.
func extractPPT(content []byte) ([]section, error) {
	doc, err := mscfb.New(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("extract PPT: open compound file: %w", err)
	}
	var stream []byte
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name != pptDocumentStream {
			continue
		}
		stream = make([]byte, entry.Size)
		if _, err := io.ReadFull(entry, stream); err != nil {
			return nil, fmt.Errorf("extract PPT: read stream: %w", err)
		}
		break
	}
	if stream == nil {
		return nil, fmt.Errorf("extract PPT: %w", errNoPPTStream)
	}
	texts, err := pptTextAtoms(stream)
	if err != nil {
		return nil, fmt.Errorf("extract PPT: %w", err)
	}
	return []section{{text: strings.Join(texts, "\n\n")}}, nil
}

// pptTextAtoms walks the record tree and returns the non-empty text atoms in stream order.
func pptTextAtoms(stream []byte) ([]string, error) {
	var out []string
	pos := 0
	for pos+recHeaderLen <= len(stream) {
		verInstance := binary.LittleEndian.Uint16(stream[pos:])
		recType := binary.LittleEndian.Uint16(stream[pos+2:])
		recLen := int(binary.LittleEndian.Uint32(stream[pos+4:]))
		body := pos + recHeaderLen
		if verInstance&0x000F == recVerContainer {
			// container: its children follow the header directly
			pos = body
			continue
		}
		if recLen < 0 || body+recLen > len(stream) {
			return nil, fmt.Errorf("record 0x%04X at offset %d overruns stream", recType, pos)
		}
		var text string
		switch recType {
		case recTextCharsAtom:
			text = decodeUTF16LE(stream[body : body+recLen])
		case recTextBytesAtom:
			text = decodeLatin1(stream[body : body+recLen])
		}
		text = strings.TrimSpace(strings.ReplaceAll(text, "\r", "\n"))
		if text != "" {
			out = append(out, text)
		}
		pos = body + recLen
	}
	return out, nil
}

func decodeUTF16LE(b []byte) string {
	u := make([]uint16, len(b)/2)
	for i := range u {
		u[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(u))
}

func decodeLatin1(b []byte) string {
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}
