// Package history records answered questions and quiz outcomes per tenant.
package history

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/storage"
)

// DefaultLimit is the number of interactions returned by Recent when no limit is given.
const DefaultLimit = 10

// Log is the append-only interaction log on top of a record store.
type Log struct {
	store  storage.RecordStore
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *zap.Logger) Option {
	return func(lg *Log) { lg.logger = l }
}

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(lg *Log) { lg.now = now }
}

// New creates a Log writing to store.
func New(store storage.RecordStore, opts ...Option) *Log {
	lg := &Log{store: store, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(lg)
	}
	return lg
}

// RecordInteraction appends one answered question. Failures are logged and reported
// as false; they never reach the caller of Ask.
func (lg *Log) RecordInteraction(ctx context.Context, tenantID string, question string, answer models.Answer) bool {
	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	rec := models.InteractionRecord{
		Question:  question,
		Answer:    answer.Answer,
		Sources:   sources,
		Type:      answer.Type,
		Timestamp: lg.now(),
	}
	if err := lg.store.AppendInteraction(ctx, tenantID, rec); err != nil {
		lg.logger.Error("failed to record interaction", zap.String("tenant", tenantID), zap.Error(err))
		return false
	}
	return true
}

// SubmitQuiz appends one quiz outcome and reports whether it was stored.
func (lg *Log) SubmitQuiz(ctx context.Context, tenantID string, score, total int, topic string) bool {
	rec := models.QuizScoreRecord{Score: score, Total: total, Topic: topic, Timestamp: lg.now()}
	if err := lg.store.AppendQuizScore(ctx, tenantID, rec); err != nil {
		lg.logger.Error("failed to record quiz score", zap.String("tenant", tenantID), zap.Error(err))
		return false
	}
	return true
}

// Recent returns up to limit interactions, newest first. A read failure yields an empty list.
func (lg *Log) Recent(ctx context.Context, tenantID string, limit int) []models.InteractionRecord {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rec, err := lg.store.Tenant(ctx, tenantID)
	if err != nil {
		lg.logger.Error("failed to read history", zap.String("tenant", tenantID), zap.Error(err))
		return []models.InteractionRecord{}
	}
	out := append([]models.InteractionRecord(nil), rec.ChatHistory...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []models.InteractionRecord{}
	}
	return out
}
