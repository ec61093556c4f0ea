// Package vector stores chunk embeddings for all tenants in one physical index and
// answers similarity queries restricted to a single tenant.
package vector

import (
	"context"
	"errors"

	"github.com/hyperjump/manabu/internal/models"
)

// ErrEmptyTenant is returned when an operation is called without a tenant id.
var ErrEmptyTenant = errors.New("tenant id is required")

// Entry is one indexed chunk: its normalised embedding plus the chunk itself.
type Entry struct {
	ID       string
	TenantID string
	Vector   []float32
	Chunk    *models.Chunk
}

// Result is a single search hit.
type Result struct {
	Entry *Entry
	Score float64 // inner product; cosine similarity for normalised vectors
}

// Index is the physical vector store shared by all tenants. Every read and
// maintenance operation takes the tenant id and only touches that tenant's entries.
type Index interface {
	// Insert adds entries atomically: either all are stored or none.
	Insert(ctx context.Context, entries []*Entry) error
	Search(ctx context.Context, tenantID string, query []float32, k int) ([]*Result, error)
	Count(ctx context.Context, tenantID string) (int, error)
	DeleteTenant(ctx context.Context, tenantID string) (int, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}
