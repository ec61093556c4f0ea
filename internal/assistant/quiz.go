package assistant

import (
	"encoding/json"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
)

const quizOptions = 4

// ParseQuiz decodes a model response into quiz questions. A surrounding ```json or ```
// fence is removed first. Invalid JSON yields an empty slice; questions without exactly
// four options are dropped.
func ParseQuiz(raw string) []models.QuizQuestion {
	content := stripFence(strings.TrimSpace(raw))

	var parsed []models.QuizQuestion
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return []models.QuizQuestion{}
	}
	out := make([]models.QuizQuestion, 0, len(parsed))
	for _, q := range parsed {
		if len(q.Options) != quizOptions {
			continue
		}
		out = append(out, q)
	}
	return out
}

func stripFence(s string) string {
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	default:
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
