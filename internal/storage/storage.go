// Package storage defines the per-tenant record store for documents, interactions and quiz scores.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/manabu/internal/config"
	"github.com/hyperjump/manabu/internal/models"
)

// ErrEmptyTenant is returned by every store operation given an empty tenant id.
var ErrEmptyTenant = errors.New("tenant id is required")

// RecordStore persists one record per tenant. Appends are atomic per call.
type RecordStore interface {
	AppendDocuments(ctx context.Context, tenantID string, docs []models.DocumentRecord) error
	AppendInteraction(ctx context.Context, tenantID string, rec models.InteractionRecord) error
	AppendQuizScore(ctx context.Context, tenantID string, rec models.QuizScoreRecord) error

	// Tenant returns the whole record. An unknown tenant yields an empty record, not an error.
	Tenant(ctx context.Context, tenantID string) (*models.TenantRecord, error)
	// ResetTenant empties the documents, history and quiz scores of a tenant.
	ResetTenant(ctx context.Context, tenantID string) error

	Close() error
}

// Open returns the record store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (RecordStore, error) {
	switch cfg.Backend {
	case "", config.BackendSQLite:
		return NewSQLiteStore(cfg.DatabasePath)
	case config.BackendMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

func emptyRecord(tenantID string) *models.TenantRecord {
	return &models.TenantRecord{
		TenantID:    tenantID,
		Documents:   []models.DocumentRecord{},
		ChatHistory: []models.InteractionRecord{},
		QuizScores:  []models.QuizScoreRecord{},
	}
}
