// Package llm provides the chat model used for grounded answers, summaries, quizzes and
// reformatting of external knowledge.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/manabu/internal/config"
)

// ErrEmptyResponse is returned when the model answers with no choices.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Client completes a single prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the client selected by cfg.Provider, rate limited to cfg.RequestsPerMinute.
func New(cfg config.LLMConfig) (Client, error) {
	var c Client
	switch cfg.Provider {
	case "", "openai", "groq":
		if cfg.APIKey == "" {
			return nil, errors.New("llm api key is required (set GROQ_API_KEY or OPENAI_API_KEY)")
		}
		c = NewOpenAI(cfg.Model, cfg.APIKey, cfg.BaseURL, cfg.Temperature)
	case "ollama":
		o, err := NewOllama(cfg.Model, cfg.BaseURL, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		c = o
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	return NewRateLimited(c, cfg.RequestsPerMinute), nil
}
