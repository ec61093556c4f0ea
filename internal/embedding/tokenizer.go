package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// BERT special token ids and the vocabulary size hashed terms are folded into.
const (
	tokenPad   = 0
	tokenCLS   = 101
	tokenSEP   = 102
	firstWord  = 1000
	vocabSize  = 30522
	defaultMax = 256
)

// Tokenizer fills one row of BERT-style model input. ids, mask and types share a length,
// which is the sequence length; the row is overwritten completely.
type Tokenizer interface {
	EncodeInto(text string, ids, mask, types []int64)
}

// HashTokenizer maps each term to a stable id in the word range of a BERT vocabulary.
// It stands in for a real WordPiece vocabulary; similar texts still share ids.
type HashTokenizer struct{}

// EncodeInto writes [CLS] term... [SEP] followed by padding.
func (HashTokenizer) EncodeInto(text string, ids, mask, types []int64) {
	for i := range ids {
		ids[i], mask[i], types[i] = tokenPad, 0, 0
	}
	if len(ids) < 2 {
		return
	}
	ids[0], mask[0] = tokenCLS, 1
	pos := 1
	for _, term := range Terms(text) {
		if pos >= len(ids)-1 {
			break
		}
		ids[pos], mask[pos] = termID(term), 1
		pos++
	}
	ids[pos], mask[pos] = tokenSEP, 1
}

// Encode returns a freshly allocated row of length maxTokens (default 256).
func Encode(t Tokenizer, text string, maxTokens int) (ids, mask, types []int64) {
	if maxTokens <= 0 {
		maxTokens = defaultMax
	}
	ids, mask, types = make([]int64, maxTokens), make([]int64, maxTokens), make([]int64, maxTokens)
	t.EncodeInto(text, ids, mask, types)
	return ids, mask, types
}

func termID(term string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(term))
	return int64(firstWord + h.Sum32()%(vocabSize-firstWord))
}

// Terms lower-cases text and splits it into runs of letters and digits. Han, Hiragana
// and Katakana runes are unspaced scripts and become one term each.
func Terms(text string) []string {
	var terms []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			terms = append(terms, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana):
			flush()
			terms = append(terms, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return terms
}
