package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/hyperjump/manabu/pkg/utils"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaEmbedder embeds text with a model served by Ollama.
type OllamaEmbedder struct {
	client     *ollama.Client
	model      string
	dimensions int
}

// NewOllamaEmbedder creates an embedder for model at baseURL (default http://localhost:11434).
// dimensions must match the model's output size.
func NewOllamaEmbedder(model, baseURL string, dimensions int) (*OllamaEmbedder, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	hc := &http.Client{Timeout: 120 * time.Second}
	return &OllamaEmbedder{
		client:     ollama.NewClient(parsedURL, hc),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed returns the normalised embedding for a single text.
func (m *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

// EmbedBatch embeds all texts in one request.
func (m *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := m.client.Embed(ctx, &ollama.EmbedRequest{
		Model: m.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get embeddings from ollama: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, errors.New("ollama returned a different number of embeddings than inputs")
	}
	for _, v := range resp.Embeddings {
		if len(v) != m.dimensions {
			return nil, fmt.Errorf("ollama embedding has %d dimensions, want %d", len(v), m.dimensions)
		}
		utils.NormalizeL2(v)
	}
	return resp.Embeddings, nil
}

// Dimensions returns the embedding dimension.
func (m *OllamaEmbedder) Dimensions() int {
	return m.dimensions
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (m *OllamaEmbedder) Close() error {
	return nil
}
