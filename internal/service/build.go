package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/analytics"
	"github.com/hyperjump/manabu/internal/assistant"
	"github.com/hyperjump/manabu/internal/config"
	"github.com/hyperjump/manabu/internal/embedding"
	"github.com/hyperjump/manabu/internal/extract"
	"github.com/hyperjump/manabu/internal/history"
	"github.com/hyperjump/manabu/internal/indexer"
	"github.com/hyperjump/manabu/internal/knowledge"
	"github.com/hyperjump/manabu/internal/llm"
	"github.com/hyperjump/manabu/internal/storage"
	"github.com/hyperjump/manabu/internal/vector"
)

// Build wires every component from cfg. The caller must Close the returned service.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	client, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	return BuildWithLLM(ctx, cfg, client, logger)
}

// BuildWithLLM is Build with a caller-supplied language model.
func BuildWithLLM(ctx context.Context, cfg *config.Config, client llm.Client, logger *zap.Logger) (*Service, error) {
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	emb, err := embedding.New(cfg.Embedding, cfg.LLM.APIKey)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	mem, err := vector.NewMemoryIndex(emb.Dimensions())
	if err != nil {
		_ = emb.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	vectors := vector.NewTenantIndex(mem, emb,
		vector.WithLogger(logger),
		vector.WithBatchSize(cfg.Chunking.BatchSize),
		vector.WithPersistPath(cfg.Storage.VectorIndexPath),
	)
	if err := vectors.Load(); err != nil {
		_ = vectors.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to load vector index: %w", err)
	}

	wiki := knowledge.NewWikipedia(cfg.Knowledge.BaseURL, time.Duration(cfg.Knowledge.TimeoutSeconds)*time.Second)
	hist := history.New(store, history.WithLogger(logger))
	engine := assistant.NewEngine(vectors, client,
		knowledge.NewService(wiki, client, knowledge.WithLogger(logger)),
		assistant.WithLogger(logger),
		assistant.WithRecorder(hist),
		assistant.WithTopK(assistant.TopK{
			Ask:     cfg.Retrieval.AskTopK,
			Summary: cfg.Retrieval.SummaryTopK,
			Quiz:    cfg.Retrieval.QuizTopK,
		}),
	)
	idx := indexer.NewIndexer(
		extract.NewExtractor(extract.WithLogger(logger)),
		indexer.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap),
		vectors,
		indexer.WithLogger(logger),
	)

	deps := Deps{
		Indexer:   idx,
		Vectors:   vectors,
		Engine:    engine,
		History:   hist,
		Dashboard: analytics.NewDashboard(store, analytics.WithLogger(logger)),
		Store:     store,
	}
	if cfg.Storage.Backend != config.BackendMongo {
		deps.DataPaths = append(deps.DataPaths, cfg.Storage.DatabasePath)
	}
	deps.DataPaths = append(deps.DataPaths, cfg.Storage.VectorIndexPath)
	return New(deps, WithLogger(logger)), nil
}
