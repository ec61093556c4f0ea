package knowledge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/llm"
	"github.com/hyperjump/manabu/internal/models"
)

// SourceName is the single source reported for external answers.
const SourceName = "Wikipedia"

// Fetcher retrieves reference material for a query.
type Fetcher interface {
	Fetch(ctx context.Context, query string) (*Article, error)
}

// Service turns fetched reference material into a bullet-point answer.
type Service struct {
	fetcher Fetcher
	llm     llm.Client
	logger  *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a knowledge service.
func NewService(fetcher Fetcher, client llm.Client, opts ...Option) *Service {
	s := &Service{fetcher: fetcher, llm: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Answer never fails: fetch or model errors are returned as the answer text with no sources.
// The caller sets Answer.Type.
func (s *Service) Answer(ctx context.Context, query string) models.Answer {
	article, err := s.fetcher.Fetch(ctx, query)
	if err == nil {
		var formatted string
		formatted, err = s.llm.Complete(ctx, formatPrompt(query, article.Content))
		if err == nil {
			return models.Answer{Answer: formatted, Sources: []string{SourceName}}
		}
	}
	s.logger.Warn("external knowledge lookup failed", zap.String("query", query), zap.Error(err))
	return models.Answer{
		Answer:  fmt.Sprintf("Could not fetch from external knowledge source. Error: %v", err),
		Sources: []string{},
	}
}

func formatPrompt(query, content string) string {
	return fmt.Sprintf(`Format the following Wikipedia content into a clear, structured answer with bullet points.
Focus on the most important facts relevant to: '%s'.

Content:
%s
`, query, content)
}
