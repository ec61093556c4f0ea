// Package service is the tenant-scoped facade shared by the HTTP server, the CLI and the
// inbox watcher.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/analytics"
	"github.com/hyperjump/manabu/internal/assistant"
	"github.com/hyperjump/manabu/internal/history"
	"github.com/hyperjump/manabu/internal/indexer"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/storage"
	"github.com/hyperjump/manabu/internal/vector"
)

var (
	// ErrNoTenant is returned when a call names no tenant.
	ErrNoTenant = errors.New("tenant id is required")
	// ErrEmptyInput is returned for an empty question or topic.
	ErrEmptyInput = errors.New("input is required")
	// ErrNoDocuments is returned by Summarize and Quiz before the tenant uploads anything.
	ErrNoDocuments = errors.New("no documents uploaded yet, upload course materials first")
)

// Deps are the components a Service orchestrates.
type Deps struct {
	Indexer   *indexer.Indexer
	Vectors   *vector.TenantIndex
	Engine    *assistant.Engine
	History   *history.Log
	Dashboard *analytics.Dashboard
	Store     storage.RecordStore
	// DataPaths are summed for DiskUsage.
	DataPaths []string
}

// Service holds no per-tenant state; every method takes the tenant id.
type Service struct {
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source for document records.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(deps Deps, opts ...Option) *Service {
	s := &Service{deps: deps, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest extracts, chunks and indexes files for the tenant and records the uploaded
// documents. The outcome is always reported in the result, never as an error.
func (s *Service) Ingest(ctx context.Context, tenantID string, paths []string) models.IngestResult {
	if tenantID == "" {
		return models.IngestResult{Status: models.IngestError, Message: ErrNoTenant.Error(), Files: []string{}}
	}
	report, err := s.deps.Indexer.IngestFiles(ctx, tenantID, paths)
	if report == nil {
		return models.IngestResult{Status: models.IngestError, Message: err.Error(), Files: []string{}}
	}
	res := models.IngestResult{
		Files:         report.Files,
		EmptyFiles:    report.EmptyFiles,
		Chunks:        report.Chunks,
		IndexedChunks: report.Added.Inserted,
	}
	switch {
	case errors.Is(err, indexer.ErrNoContent):
		res.Status = models.IngestError
		res.Message = "No content found in files"
		return res
	case err != nil:
		s.logger.Error("ingest failed", zap.String("tenant", tenantID), zap.Error(err))
		res.Status = models.IngestError
		res.Message = fmt.Sprintf("Indexing failed after %d of %d chunks: %v", report.Added.Inserted, report.Chunks, err)
		return res
	}

	now := s.now()
	docs := make([]models.DocumentRecord, 0, len(report.Files))
	for _, f := range report.Files {
		docs = append(docs, models.DocumentRecord{Filename: f, UploadedAt: now})
	}
	if err := s.deps.Store.AppendDocuments(ctx, tenantID, docs); err != nil {
		s.logger.Error("failed to record uploaded documents", zap.String("tenant", tenantID), zap.Error(err))
	}

	if len(report.EmptyFiles) > 0 {
		res.Status = models.IngestWarning
		res.Message = fmt.Sprintf("Processed %d files (%d chunks); no content found in: %s",
			len(report.Files), report.Chunks, strings.Join(report.EmptyFiles, ", "))
		return res
	}
	res.Status = models.IngestSuccess
	res.Message = fmt.Sprintf("Processed %d files (%d chunks)", len(report.Files), report.Chunks)
	return res
}

// IngestDirectory ingests every supported file under dir for the tenant.
func (s *Service) IngestDirectory(ctx context.Context, tenantID, dir string) models.IngestResult {
	paths, err := indexer.SupportedFiles(dir)
	if err != nil {
		return models.IngestResult{Status: models.IngestError, Message: err.Error(), Files: []string{}}
	}
	return s.Ingest(ctx, tenantID, paths)
}

// Ask answers a question for the tenant. Only missing input is an error.
func (s *Service) Ask(ctx context.Context, tenantID, question string) (models.Answer, error) {
	question = strings.TrimSpace(question)
	if tenantID == "" {
		return models.Answer{}, ErrNoTenant
	}
	if question == "" {
		return models.Answer{}, ErrEmptyInput
	}
	return s.deps.Engine.Ask(ctx, tenantID, question), nil
}

// hasDocuments reports whether the tenant has anything indexed.
func (s *Service) hasDocuments(ctx context.Context, tenantID string) (bool, error) {
	n, err := s.deps.Vectors.Count(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Summarize writes a summary of topic from the tenant's documents.
func (s *Service) Summarize(ctx context.Context, tenantID, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if tenantID == "" {
		return "", ErrNoTenant
	}
	if topic == "" {
		return "", ErrEmptyInput
	}
	ok, err := s.hasDocuments(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoDocuments
	}
	return s.deps.Engine.Summarize(ctx, tenantID, topic), nil
}

// Quiz generates n questions about topic (n ≤ 0 means 5).
func (s *Service) Quiz(ctx context.Context, tenantID, topic string, n int) ([]models.QuizQuestion, error) {
	topic = strings.TrimSpace(topic)
	if tenantID == "" {
		return nil, ErrNoTenant
	}
	if topic == "" {
		return nil, ErrEmptyInput
	}
	ok, err := s.hasDocuments(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.QuizQuestion{}, ErrNoDocuments
	}
	return s.deps.Engine.Quiz(ctx, tenantID, topic, n), nil
}

// SubmitQuiz stores a quiz outcome and reports whether it was saved.
func (s *Service) SubmitQuiz(ctx context.Context, tenantID string, score, total int, topic string) bool {
	if tenantID == "" {
		return false
	}
	return s.deps.History.SubmitQuiz(ctx, tenantID, score, total, topic)
}

// Dashboard returns the tenant's study statistics.
func (s *Service) Dashboard(ctx context.Context, tenantID string) models.DashboardStats {
	return s.deps.Dashboard.ComputeDashboard(ctx, tenantID)
}

// History returns the tenant's most recent interactions, newest first.
func (s *Service) History(ctx context.Context, tenantID string, limit int) []models.InteractionRecord {
	return s.deps.History.Recent(ctx, tenantID, limit)
}

// Clear removes the tenant's documents, history, quiz scores and indexed vectors.
// It returns the number of vectors removed.
func (s *Service) Clear(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, ErrNoTenant
	}
	n, err := s.deps.Vectors.Clear(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if err := s.deps.Store.ResetTenant(ctx, tenantID); err != nil {
		return n, fmt.Errorf("failed to reset tenant records: %w", err)
	}
	s.logger.Info("tenant cleared", zap.String("tenant", tenantID), zap.Int("vectors", n))
	return n, nil
}

// Status lists the tenant's uploaded documents and indexed chunk count.
func (s *Service) Status(ctx context.Context, tenantID string) (models.TenantStatus, error) {
	if tenantID == "" {
		return models.TenantStatus{}, ErrNoTenant
	}
	rec, err := s.deps.Store.Tenant(ctx, tenantID)
	if err != nil {
		return models.TenantStatus{}, fmt.Errorf("failed to read tenant record: %w", err)
	}
	chunks, err := s.deps.Vectors.Count(ctx, tenantID)
	if err != nil {
		return models.TenantStatus{}, err
	}
	names := make([]string, 0, len(rec.Documents))
	for _, d := range rec.Documents {
		names = append(names, d.Filename)
	}
	return models.TenantStatus{DocumentsUploaded: len(rec.Documents), Documents: names, IndexedChunks: chunks}, nil
}

// DiskUsage returns the bytes used by the record store and vector index files.
func (s *Service) DiskUsage() (int64, error) {
	return storage.DiskUsageBytes(s.deps.DataPaths...)
}

// Close persists the vector index and closes the record store.
func (s *Service) Close() error {
	errVec := s.deps.Vectors.Close()
	errStore := s.deps.Store.Close()
	return errors.Join(errVec, errStore)
}
