package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/extract"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/vector"
)

// ErrNoContent is returned when none of the ingested files yielded any text.
var ErrNoContent = errors.New("no content found in files")

// ChunkIndex receives chunks for embedding and storage.
type ChunkIndex interface {
	Add(ctx context.Context, chunks []*models.Chunk) (vector.AddResult, error)
}

// Report describes one ingest run. It is returned even when the run fails part way.
type Report struct {
	Files      []string // source files that produced text
	EmptyFiles []string // source files that produced nothing
	Chunks     int
	Added      vector.AddResult
}

// Indexer runs the ingest pipeline: extract, chunk, then embed and index.
type Indexer struct {
	extractor *extract.Extractor
	chunker   *Chunker
	index     ChunkIndex
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for ingest events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(extractor *extract.Extractor, chunker *Chunker, index ChunkIndex, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		extractor: extractor,
		chunker:   chunker,
		index:     index,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IngestFiles extracts every file for the tenant, chunks the result and indexes it.
// Files that cannot be read or yield no text are listed in Report.EmptyFiles.
// When no file yields text the error is ErrNoContent.
func (idx *Indexer) IngestFiles(ctx context.Context, tenantID string, paths []string) (*Report, error) {
	if tenantID == "" {
		return nil, vector.ErrEmptyTenant
	}
	report := &Report{Files: []string{}, EmptyFiles: []string{}}
	var units []models.TextUnit
	for _, p := range paths {
		name := filepath.Base(p)
		absPath, err := filepath.Abs(p)
		if err != nil {
			idx.logger.Warn("skipping file", zap.String("path", p), zap.Error(err))
			report.EmptyFiles = append(report.EmptyFiles, name)
			continue
		}
		if info, err := os.Stat(absPath); err != nil || !info.Mode().IsRegular() {
			idx.logger.Warn("skipping non-regular file", zap.String("path", absPath))
			report.EmptyFiles = append(report.EmptyFiles, name)
			continue
		}
		fileUnits := idx.extractor.Extract(models.RawDocument{Path: absPath, TenantID: tenantID})
		if len(fileUnits) == 0 {
			report.EmptyFiles = append(report.EmptyFiles, name)
			continue
		}
		report.Files = append(report.Files, name)
		units = append(units, fileUnits...)
	}

	chunks := idx.chunker.Split(units)
	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		return report, ErrNoContent
	}

	added, err := idx.index.Add(ctx, chunks)
	report.Added = added
	if err != nil {
		return report, fmt.Errorf("failed to index chunks: %w", err)
	}
	idx.logger.Info("ingest complete",
		zap.String("tenant", tenantID),
		zap.Int("files", len(report.Files)),
		zap.Int("empty_files", len(report.EmptyFiles)),
		zap.Int("chunks", report.Chunks))
	return report, nil
}

// IngestDirectory ingests every supported regular file under dir, recursively,
// in lexical path order.
func (idx *Indexer) IngestDirectory(ctx context.Context, tenantID, dir string) (*Report, error) {
	paths, err := SupportedFiles(dir)
	if err != nil {
		return nil, err
	}
	return idx.IngestFiles(ctx, tenantID, paths)
}

// SupportedFiles walks dir recursively and returns regular files with a supported extension.
func SupportedFiles(dir string) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}
	var paths []string
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !extract.SupportedExtension(filepath.Ext(path)) {
			return nil
		}
		// Resolve symlinks so only regular files are ingested
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	sort.Strings(paths)
	return paths, err
}
