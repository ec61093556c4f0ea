// Package cli renders service results for the manabu command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json", case-insensitively.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

const rule = "─────────────────────────────────────────────────────────"

const historyPreviewLen = 120

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer and where it came from.
func WriteAnswer(w io.Writer, ans models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, ans)
	}
	fmt.Fprintf(w, "\n%s\n\n", ans.Answer)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Source type: %s\n", ans.Type)
	if ans.FallbackReason != "" {
		fmt.Fprintf(w, "Reason: %s\n", ans.FallbackReason)
	}
	if len(ans.Sources) > 0 {
		fmt.Fprintf(w, "Sources: %s\n", strings.Join(ans.Sources, ", "))
	}
	return nil
}

// WriteSummary writes a topic summary.
func WriteSummary(w io.Writer, topic, summary string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]string{"topic": topic, "summary": summary})
	}
	fmt.Fprintf(w, "\nSummary: %s\n%s\n\n%s\n", topic, rule, summary)
	return nil
}

// WriteQuiz writes quiz questions. Answers are printed only when showAnswers is set.
func WriteQuiz(w io.Writer, quiz []models.QuizQuestion, showAnswers bool, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, quiz)
	}
	if len(quiz) == 0 {
		fmt.Fprintln(w, "No quiz questions could be generated.")
		return nil
	}
	for i, q := range quiz {
		fmt.Fprintf(w, "\nQ%d. %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			fmt.Fprintf(w, "   %c) %s\n", 'A'+j, opt)
		}
		if showAnswers {
			fmt.Fprintf(w, "   Answer: %s\n", q.CorrectAnswer)
			if q.Explanation != "" {
				fmt.Fprintf(w, "   %s\n", q.Explanation)
			}
		}
	}
	return nil
}

// WriteStats writes dashboard statistics.
func WriteStats(w io.Writer, stats models.DashboardStats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintf(w, "Documents:      %d\n", stats.DocumentCount)
	fmt.Fprintf(w, "Questions:      %d\n", stats.QuestionCount)
	fmt.Fprintf(w, "Study hours:    %.1f\n", stats.StudyHours)
	fmt.Fprintf(w, "Quiz average:   %d%%\n", stats.QuizScoreAvg)
	return nil
}

// WriteHistory writes interactions, newest first, with answers shortened to one line.
func WriteHistory(w io.Writer, hist []models.InteractionRecord, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, hist)
	}
	if len(hist) == 0 {
		fmt.Fprintln(w, "No questions asked yet.")
		return nil
	}
	for _, rec := range hist {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "[%s] (%s) %s\n", rec.Timestamp.Local().Format("2006-01-02 15:04"), rec.Type, rec.Question)
		fmt.Fprintf(w, "%s\n", utils.Truncate(utils.OneLine(rec.Answer), historyPreviewLen))
	}
	return nil
}

// WriteIngest writes the outcome of an ingest run.
func WriteIngest(w io.Writer, res models.IngestResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "[%s] %s\n", res.Status, res.Message)
	for _, f := range res.Files {
		fmt.Fprintf(w, "  + %s\n", f)
	}
	for _, f := range res.EmptyFiles {
		fmt.Fprintf(w, "  - %s (no content)\n", f)
	}
	return nil
}

// WriteStatus writes the tenant's uploaded documents and chunk count.
func WriteStatus(w io.Writer, st models.TenantStatus, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Documents uploaded: %d\n", st.DocumentsUploaded)
	fmt.Fprintf(w, "Indexed chunks:     %d\n", st.IndexedChunks)
	for _, d := range st.Documents {
		fmt.Fprintf(w, "  %s\n", d)
	}
	return nil
}
