// Package assistant answers questions, writes summaries and generates quizzes from a
// tenant's indexed documents, falling back to external knowledge when they fall short.
package assistant

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/llm"
	"github.com/hyperjump/manabu/internal/models"
)

// FallbackReason is set on answers that fell back to external knowledge.
const FallbackReason = "Answer not found in your documents"

// NoContextSummary is returned by Summarize when nothing relevant was retrieved.
const NoContextSummary = "No relevant documents found for this topic."

// DefaultQuizQuestions is used when Quiz is asked for a non-positive number of questions.
const DefaultQuizQuestions = 5

// Retriever is the tenant-scoped vector index.
type Retriever interface {
	Search(ctx context.Context, tenantID, query string, k int) ([]*models.Chunk, error)
	Count(ctx context.Context, tenantID string) (int, error)
}

// External answers a question without the tenant's documents. It never fails.
type External interface {
	Answer(ctx context.Context, query string) models.Answer
}

// Recorder stores answered questions.
type Recorder interface {
	RecordInteraction(ctx context.Context, tenantID, question string, answer models.Answer) bool
}

// TopK holds the number of passages retrieved per operation.
type TopK struct {
	Ask     int
	Summary int
	Quiz    int
}

// Engine is stateless; every call names its tenant.
type Engine struct {
	retriever Retriever
	llm       llm.Client
	external  External
	recorder  Recorder
	topK      TopK
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder stores every answered question.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithTopK overrides retrieval depths; zero fields keep their defaults.
func WithTopK(k TopK) Option {
	return func(e *Engine) {
		if k.Ask > 0 {
			e.topK.Ask = k.Ask
		}
		if k.Summary > 0 {
			e.topK.Summary = k.Summary
		}
		if k.Quiz > 0 {
			e.topK.Quiz = k.Quiz
		}
	}
}

// NewEngine creates an engine.
func NewEngine(retriever Retriever, client llm.Client, external External, opts ...Option) *Engine {
	e := &Engine{
		retriever: retriever,
		llm:       client,
		external:  external,
		topK:      TopK{Ask: 4, Summary: 5, Quiz: 5},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ask answers question from the tenant's documents, or from external knowledge when the
// tenant has none or the model says the documents do not contain the answer. Failures
// become answer text.
func (e *Engine) Ask(ctx context.Context, tenantID, question string) models.Answer {
	answer := e.answer(ctx, tenantID, question)
	if e.recorder != nil {
		e.recorder.RecordInteraction(ctx, tenantID, question, answer)
	}
	return answer
}

func (e *Engine) answer(ctx context.Context, tenantID, question string) models.Answer {
	n, err := e.retriever.Count(ctx, tenantID)
	if err != nil {
		return errorAnswer(err)
	}
	if n == 0 {
		ext := e.external.Answer(ctx, question)
		ext.Type = models.AnswerExternal
		return ext
	}

	chunks, err := e.retriever.Search(ctx, tenantID, question, e.topK.Ask)
	if err != nil {
		return errorAnswer(err)
	}
	text, err := e.llm.Complete(ctx, askPrompt(joinContext(chunks), question))
	if err != nil {
		return errorAnswer(err)
	}

	if d := Gate(text); !d.Grounded {
		e.logger.Info("answer not found in documents, using external knowledge",
			zap.String("tenant", tenantID),
			zap.String("matched", d.MatchedPhrase))
		ext := e.external.Answer(ctx, question)
		ext.Type = models.AnswerExternalFallback
		ext.FallbackReason = FallbackReason
		return ext
	}
	return models.Answer{Answer: text, Sources: Sources(chunks), Type: models.AnswerDocuments}
}

func errorAnswer(err error) models.Answer {
	return models.Answer{
		Answer:  fmt.Sprintf("Error: %v", err),
		Sources: []string{},
		Type:    models.AnswerDocuments,
	}
}

// Sources returns the distinct source files of chunks in first-seen order.
func Sources(chunks []*models.Chunk) []string {
	seen := make(map[string]bool, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		name := c.Metadata.SourceFile
		if name == "" {
			name = "Unknown"
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Summarize writes a markdown summary of topic from the tenant's documents.
func (e *Engine) Summarize(ctx context.Context, tenantID, topic string) string {
	chunks, err := e.retriever.Search(ctx, tenantID, topic, e.topK.Summary)
	if err != nil {
		return fmt.Sprintf("Error generating summary: %v", err)
	}
	passages := joinContext(chunks)
	if passages == "" {
		return NoContextSummary
	}
	out, err := e.llm.Complete(ctx, summaryPrompt(topic, passages))
	if err != nil {
		return fmt.Sprintf("Error generating summary: %v", err)
	}
	return out
}

// Quiz generates up to n multiple-choice questions about topic. Any failure yields an
// empty slice.
func (e *Engine) Quiz(ctx context.Context, tenantID, topic string, n int) []models.QuizQuestion {
	if n <= 0 {
		n = DefaultQuizQuestions
	}
	chunks, err := e.retriever.Search(ctx, tenantID, topic, e.topK.Quiz)
	if err != nil {
		e.logger.Warn("quiz retrieval failed", zap.String("tenant", tenantID), zap.Error(err))
		return []models.QuizQuestion{}
	}
	passages := joinContext(chunks)
	if passages == "" {
		return []models.QuizQuestion{}
	}
	out, err := e.llm.Complete(ctx, quizPrompt(n, topic, passages))
	if err != nil {
		e.logger.Warn("quiz generation failed", zap.String("tenant", tenantID), zap.Error(err))
		return []models.QuizQuestion{}
	}
	questions := ParseQuiz(out)
	if len(questions) == 0 {
		e.logger.Warn("quiz response could not be parsed", zap.String("tenant", tenantID))
	}
	if len(questions) > n {
		questions = questions[:n]
	}
	return questions
}
