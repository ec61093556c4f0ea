package indexer

import (
	"regexp"

	"github.com/hyperjump/manabu/internal/models"
)

// Patterns are checked in this order; the first match decides the category.
var categoryPatterns = []struct {
	category models.ContentCategory
	re       *regexp.Regexp
}{
	{models.CategoryFormula, regexp.MustCompile(`\$[^$\n]*?\$|(?s:\\\[.*?\\\])`)},
	{models.CategoryCode, regexp.MustCompile("(?s)```.*?```")},
	{models.CategoryTable, regexp.MustCompile(`\|.*\|.*\|`)},
	{models.CategoryDefinition, regexp.MustCompile(`^[A-Z][a-zA-Z\s]+:\s+`)},
	{models.CategoryList, regexp.MustCompile(`(?m)^\s*[\d\-\*\+•]\s+`)},
	{models.CategoryHeading, regexp.MustCompile(`(?m)^#{1,6}\s+.*$|^[A-Z][^.!?]*:$`)},
}

// Classify returns the structural category of a chunk of text.
func Classify(text string) models.ContentCategory {
	for _, p := range categoryPatterns {
		if p.re.MatchString(text) {
			return p.category
		}
	}
	return models.CategoryParagraph
}
