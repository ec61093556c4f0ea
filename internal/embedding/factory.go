package embedding

import (
	"fmt"

	"github.com/hyperjump/manabu/internal/config"
)

// New builds the embedder selected by cfg.Provider and wraps it in an LRU cache.
// apiKey is only used by the "openai" provider.
func New(cfg config.EmbeddingConfig, apiKey string) (Embedder, error) {
	var inner Embedder
	switch cfg.Provider {
	case "", "hash":
		inner = NewHashEmbedder(cfg.Dimensions)
	case "onnx":
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("failed to create ONNX embedder: %w", err)
		}
		inner = e
	case "ollama":
		e, err := NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama embedder: %w", err)
		}
		inner = e
	case "openai":
		inner = NewOpenAIEmbedder(cfg.Model, apiKey, cfg.BaseURL, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
