package assistant

import (
	"fmt"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
)

func joinContext(chunks []*models.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if s := strings.TrimSpace(c.Content); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func askPrompt(passages, question string) string {
	return fmt.Sprintf(`You are a helpful study assistant. Use the following context to answer the student's question.
Format your answer with clear bullet points and structured sections where applicable.
If the answer is not in the context, say you don't know based on the documents.

Context: %s

Question: %s

Answer:`, passages, question)
}

func summaryPrompt(topic, passages string) string {
	return fmt.Sprintf(`Summarize the following content regarding '%s'.
Make it comprehensive and well-structured.

Formatting Rules:
- Use '### ' (Markdown H3) for all subheadings.
- Use bullet points ('- ') for all list items.
- Ensure there is a blank line between sections.

Example Format:
### Key Concepts
- Concept A: Description...
- Concept B: Description...

### Historical Context
- Event 1 happened in...

Content:
%s
`, topic, passages)
}

func quizPrompt(n int, topic, passages string) string {
	return fmt.Sprintf(`Generate a multiple choice quiz with %d questions based on the following content about '%s'.
Return the result as a JSON array of objects, where each object has:
- question: str
- options: List[str] (4 options)
- correct_answer: str (the correct option text)
- explanation: str

Do not include any markdown formatting like `+"```json"+`. Just the raw JSON string.

Content:
%s
`, n, topic, passages)
}
