package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/manabu/internal/models"
)

// SQLiteStore implements RecordStore using SQLite. Each array of the tenant record is a
// table keyed by tenant id; insertion order is kept by the rowid.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		last_interacted_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS tenant_documents (
		tenant_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		uploaded_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_tenant ON tenant_documents(tenant_id);

	CREATE TABLE IF NOT EXISTS interactions (
		tenant_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		sources TEXT NOT NULL,
		answer_type TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_interactions_tenant ON interactions(tenant_id);

	CREATE TABLE IF NOT EXISTS quiz_scores (
		tenant_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		total INTEGER NOT NULL,
		topic TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_quiz_scores_tenant ON quiz_scores(tenant_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Timestamps are stored as Unix nanoseconds; zero means unset.
func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// touch records the tenant and its last interaction time inside tx.
func touch(ctx context.Context, tx *sql.Tx, tenantID string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO tenants (id, last_interacted_at) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET last_interacted_at = MAX(last_interacted_at, excluded.last_interacted_at)`,
		tenantID, toUnix(at),
	)
	return err
}

// AppendDocuments adds document records for the tenant in one transaction.
func (s *SQLiteStore) AppendDocuments(ctx context.Context, tenantID string, docs []models.DocumentRecord) error {
	if tenantID == "" {
		return ErrEmptyTenant
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := touch(ctx, tx, tenantID, time.Time{}); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tenant_documents (tenant_id, filename, uploaded_at) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, tenantID, d.Filename, toUnix(d.UploadedAt)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AppendInteraction adds one answered question to the tenant's history.
func (s *SQLiteStore) AppendInteraction(ctx context.Context, tenantID string, rec models.InteractionRecord) error {
	if tenantID == "" {
		return ErrEmptyTenant
	}
	sources := rec.Sources
	if sources == nil {
		sources = []string{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := touch(ctx, tx, tenantID, rec.Timestamp); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO interactions (tenant_id, question, answer, sources, answer_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tenantID, rec.Question, rec.Answer, string(sourcesJSON), string(rec.Type), toUnix(rec.Timestamp),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendQuizScore adds one quiz outcome for the tenant.
func (s *SQLiteStore) AppendQuizScore(ctx context.Context, tenantID string, rec models.QuizScoreRecord) error {
	if tenantID == "" {
		return ErrEmptyTenant
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := touch(ctx, tx, tenantID, rec.Timestamp); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO quiz_scores (tenant_id, score, total, topic, created_at) VALUES (?, ?, ?, ?, ?)`,
		tenantID, rec.Score, rec.Total, rec.Topic, toUnix(rec.Timestamp),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Tenant reads the whole tenant record in a single read transaction.
func (s *SQLiteStore) Tenant(ctx context.Context, tenantID string) (*models.TenantRecord, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenant
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rec := emptyRecord(tenantID)

	var last int64
	err = tx.QueryRowContext(ctx, `SELECT last_interacted_at FROM tenants WHERE id = ?`, tenantID).Scan(&last)
	if err == sql.ErrNoRows {
		return rec, nil
	}
	if err != nil {
		return nil, err
	}
	rec.LastInteractedAt = fromUnix(last)

	if err := scanDocuments(ctx, tx, tenantID, rec); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	if err := scanInteractions(ctx, tx, tenantID, rec); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if err := scanQuizScores(ctx, tx, tenantID, rec); err != nil {
		return nil, fmt.Errorf("failed to read quiz scores: %w", err)
	}
	return rec, nil
}

func scanDocuments(ctx context.Context, tx *sql.Tx, tenantID string, rec *models.TenantRecord) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT filename, uploaded_at FROM tenant_documents WHERE tenant_id = ? ORDER BY rowid`, tenantID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var d models.DocumentRecord
		var at int64
		if err := rows.Scan(&d.Filename, &at); err != nil {
			return err
		}
		d.UploadedAt = fromUnix(at)
		rec.Documents = append(rec.Documents, d)
	}
	return rows.Err()
}

func scanInteractions(ctx context.Context, tx *sql.Tx, tenantID string, rec *models.TenantRecord) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT question, answer, sources, answer_type, created_at
		 FROM interactions WHERE tenant_id = ? ORDER BY rowid`, tenantID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var h models.InteractionRecord
		var sourcesJSON, answerType string
		var at int64
		if err := rows.Scan(&h.Question, &h.Answer, &sourcesJSON, &answerType, &at); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &h.Sources); err != nil {
			return fmt.Errorf("failed to unmarshal sources: %w", err)
		}
		h.Type = models.AnswerType(answerType)
		h.Timestamp = fromUnix(at)
		rec.ChatHistory = append(rec.ChatHistory, h)
	}
	return rows.Err()
}

func scanQuizScores(ctx context.Context, tx *sql.Tx, tenantID string, rec *models.TenantRecord) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT score, total, topic, created_at FROM quiz_scores WHERE tenant_id = ? ORDER BY rowid`, tenantID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var q models.QuizScoreRecord
		var at int64
		if err := rows.Scan(&q.Score, &q.Total, &q.Topic, &at); err != nil {
			return err
		}
		q.Timestamp = fromUnix(at)
		rec.QuizScores = append(rec.QuizScores, q)
	}
	return rows.Err()
}

// ResetTenant removes every document, interaction and quiz score of the tenant.
func (s *SQLiteStore) ResetTenant(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return ErrEmptyTenant
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"tenant_documents", "interactions", "quiz_scores"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE tenant_id = ?`, tenantID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
