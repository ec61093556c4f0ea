package assistant

import "strings"

// UnknownPhrases mark a model answer that admits the context did not contain the answer.
var UnknownPhrases = []string{
	"don't know",
	"do not know",
	"not mentioned",
	"does not mention",
	"not in the context",
	"not in the documents",
	"no information",
	"cannot find",
}

// Decision is the outcome of the confidence gate.
type Decision struct {
	Grounded      bool
	MatchedPhrase string // first phrase found when not grounded
}

// Gate checks a model answer, case-insensitively, for any of UnknownPhrases.
func Gate(answer string) Decision {
	lower := strings.ToLower(answer)
	for _, p := range UnknownPhrases {
		if strings.Contains(lower, p) {
			return Decision{Grounded: false, MatchedPhrase: p}
		}
	}
	return Decision{Grounded: true}
}
