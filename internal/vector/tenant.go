package vector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/embedding"
	"github.com/hyperjump/manabu/internal/models"
)

// DefaultBatchSize is the number of chunks embedded and inserted per batch.
const DefaultBatchSize = 100

// AddResult reports how far an Add got. Batches committed before a failure stay indexed.
type AddResult struct {
	Inserted    int // chunks committed
	Batches     int // batches committed
	FailedBatch int // 1-based batch that failed; 0 when every batch succeeded
}

// TenantIndex embeds chunks and keeps them in a shared Index, scoping every query
// and maintenance operation to one tenant.
type TenantIndex struct {
	index     Index
	embedder  embedding.Embedder
	batchSize int
	path      string
	logger    *zap.Logger
}

// TenantIndexOption configures a TenantIndex.
type TenantIndexOption func(*TenantIndex)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) TenantIndexOption {
	return func(t *TenantIndex) { t.logger = l }
}

// WithBatchSize overrides the number of chunks per insert batch.
func WithBatchSize(n int) TenantIndexOption {
	return func(t *TenantIndex) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

// WithPersistPath saves the index to path after every change.
func WithPersistPath(path string) TenantIndexOption {
	return func(t *TenantIndex) { t.path = path }
}

// NewTenantIndex creates a tenant-scoped view over index using embedder.
func NewTenantIndex(index Index, embedder embedding.Embedder, opts ...TenantIndexOption) *TenantIndex {
	t := &TenantIndex{
		index:     index,
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Add embeds and inserts chunks in batches of at most the batch size. On failure it
// returns the error together with the count of chunks already committed.
func (t *TenantIndex) Add(ctx context.Context, chunks []*models.Chunk) (AddResult, error) {
	var res AddResult
	for _, c := range chunks {
		if c.TenantID() == "" {
			return res, fmt.Errorf("chunk %s: %w", c.ID, ErrEmptyTenant)
		}
	}
	total := (len(chunks) + t.batchSize - 1) / t.batchSize
	for start := 0; start < len(chunks); start += t.batchSize {
		end := min(start+t.batchSize, len(chunks))
		batch := chunks[start:end]
		if err := t.insertBatch(ctx, batch); err != nil {
			res.FailedBatch = res.Batches + 1
			t.logger.Error("vector batch insert failed",
				zap.Int("batch", res.FailedBatch), zap.Int("batches", total),
				zap.Int("inserted", res.Inserted), zap.Error(err))
			t.persist()
			return res, fmt.Errorf("failed to index batch %d/%d: %w", res.FailedBatch, total, err)
		}
		res.Inserted += len(batch)
		res.Batches++
	}
	if res.Batches > 0 {
		t.persist()
	}
	t.logger.Debug("chunks indexed", zap.Int("chunks", res.Inserted), zap.Int("batches", res.Batches))
	return res, nil
}

func (t *TenantIndex) insertBatch(ctx context.Context, batch []*models.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}
	vectors, err := t.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
	}
	entries := make([]*Entry, len(batch))
	for i, c := range batch {
		entries[i] = &Entry{ID: c.ID, TenantID: c.TenantID(), Vector: vectors[i], Chunk: c}
	}
	return t.index.Insert(ctx, entries)
}

// Search returns the tenant's k chunks most similar to query, most similar first.
func (t *TenantIndex) Search(ctx context.Context, tenantID, query string, k int) ([]*models.Chunk, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenant
	}
	q, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	results, err := t.index.Search(ctx, tenantID, q, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}
	chunks := make([]*models.Chunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, r.Entry.Chunk)
	}
	return chunks, nil
}

// Count returns the number of chunks indexed for the tenant.
func (t *TenantIndex) Count(ctx context.Context, tenantID string) (int, error) {
	return t.index.Count(ctx, tenantID)
}

// Clear removes every chunk the tenant has indexed.
func (t *TenantIndex) Clear(ctx context.Context, tenantID string) (int, error) {
	n, err := t.index.DeleteTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear tenant vectors: %w", err)
	}
	if n > 0 {
		t.persist()
	}
	return n, nil
}

// Load restores the index from the persist path, if one is set.
func (t *TenantIndex) Load() error {
	if t.path == "" {
		return nil
	}
	return t.index.Load(t.path)
}

// Close releases the index and the embedder.
func (t *TenantIndex) Close() error {
	t.persist()
	errIdx := t.index.Close()
	errEmb := t.embedder.Close()
	if errIdx != nil {
		return errIdx
	}
	return errEmb
}

// persist saves the index; a failed save keeps the in-memory state and is logged.
func (t *TenantIndex) persist() {
	if t.path == "" {
		return
	}
	if err := t.index.Save(t.path); err != nil {
		t.logger.Warn("failed to persist vector index", zap.String("path", t.path), zap.Error(err))
	}
}
