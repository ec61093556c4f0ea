package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

const defaultOllamaURL = "http://localhost:11434"

// Ollama generates completions with a locally served model.
type Ollama struct {
	client      *ollama.Client
	model       string
	temperature float32
}

// NewOllama creates a client for model at baseURL (default http://localhost:11434).
func NewOllama(model, baseURL string, temperature float32) (*Ollama, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	hc := &http.Client{Timeout: 120 * time.Second}
	return &Ollama{client: ollama.NewClient(parsedURL, hc), model: model, temperature: temperature}, nil
}

// Complete runs a non-streaming generate request.
func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	stream := false
	var sb strings.Builder
	err := o.client.Generate(ctx, &ollama.GenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: map[string]any{"temperature": o.temperature},
	}, func(resp ollama.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content with ollama: %w", err)
	}
	return sb.String(), nil
}
