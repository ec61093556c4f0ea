// Package analytics derives study statistics from a tenant's interaction history.
package analytics

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/storage"
)

// QuizAverage is the mean percentage over quizzes with a positive total, truncated.
// It is 0 when no quiz qualifies.
func QuizAverage(scores []models.QuizScoreRecord) int {
	var sum float64
	n := 0
	for _, s := range scores {
		if s.Total <= 0 {
			continue
		}
		sum += float64(s.Score) / float64(s.Total) * 100
		n++
	}
	if n == 0 {
		return 0
	}
	return int(sum / float64(n))
}

// Stats computes dashboard statistics from a tenant record.
func Stats(rec *models.TenantRecord) models.DashboardStats {
	if rec == nil {
		return models.DashboardStats{}
	}
	return models.DashboardStats{
		DocumentCount: len(rec.Documents),
		QuestionCount: len(rec.ChatHistory),
		StudyHours:    StudyHours(Sessions(rec.Timestamps())),
		QuizScoreAvg:  QuizAverage(rec.QuizScores),
	}
}

// Dashboard reads tenant records and derives statistics on demand.
type Dashboard struct {
	store  storage.RecordStore
	logger *zap.Logger
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dashboard) { d.logger = l }
}

// NewDashboard creates a dashboard over store.
func NewDashboard(store storage.RecordStore, opts ...Option) *Dashboard {
	d := &Dashboard{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ComputeDashboard returns the tenant's statistics, or all zeros if the record store
// cannot be read.
func (d *Dashboard) ComputeDashboard(ctx context.Context, tenantID string) models.DashboardStats {
	rec, err := d.store.Tenant(ctx, tenantID)
	if err != nil {
		d.logger.Error("failed to read tenant record", zap.String("tenant", tenantID), zap.Error(err))
		return models.DashboardStats{}
	}
	return Stats(rec)
}
