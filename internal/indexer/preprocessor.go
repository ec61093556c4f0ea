package indexer

import (
	"strings"
)

// Preprocess normalizes line endings, drops NUL bytes and trailing spaces on each line.
// Blank lines are kept since the splitter relies on them.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.Join(lines, "\n")
}
