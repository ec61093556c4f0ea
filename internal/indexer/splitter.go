package indexer

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order, from section breaks down to single characters.
var DefaultSeparators = []string{"\n\n\n", "\n\n", "\n", ". ", " ", ""}

// Splitter is a recursive character splitter. Lengths are measured in runes.
// A separator stays attached to the start of the piece that follows it.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter producing chunks of at most size runes with up to
// overlap runes carried from one chunk into the next.
func NewSplitter(size, overlap int) *Splitter {
	if size < 1 {
		size = 1
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Splitter{size: size, overlap: overlap, separators: DefaultSeparators}
}

// SplitText splits text into chunks in document order.
func (s *Splitter) SplitText(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	var final []string

	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) < s.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge greedily packs pieces into chunks no longer than size, starting each new chunk
// with the tail of the previous one that fits within overlap.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	total := 0
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.size && len(current) > 0 {
			if c := joinPieces(current); c != "" {
				chunks = append(chunks, c)
			}
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if c := joinPieces(current); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

func joinPieces(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

// splitKeepSeparator splits text on sep, prefixing every piece after the first with sep.
// The empty separator splits into single runes. Empty pieces are dropped.
func splitKeepSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	parts := strings.Split(text, sep)
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
