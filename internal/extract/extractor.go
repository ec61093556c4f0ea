// Package extract turns uploaded study files into per-page, per-slide or per-file text units.
package extract

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/models"
)

// section is one extracted page, slide, sheet or whole file before metadata is attached.
type section struct {
	index   int // 1-based page/slide/sheet number; 0 for whole-file formats
	text    string
	tabular bool
}

// Extractor extracts text units from document files. Extraction never fails across
// the package boundary: unreadable or unsupported files yield no units and a log line.
type Extractor struct {
	logger *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger for the extractor.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads doc.Path and returns its text units. The format is inferred from the
// extension (falling back to content sniffing); a caller-supplied doc.Format that
// disagrees with the detected one is logged and the detected format wins.
func (e *Extractor) Extract(doc models.RawDocument) []models.TextUnit {
	units := []models.TextUnit{}
	content, err := os.ReadFile(doc.Path)
	if err != nil {
		e.logger.Error("failed to read document", zap.String("path", doc.Path), zap.Error(err))
		return units
	}
	ext, format, ok := DetectFormat(doc.Path, content)
	if !ok {
		e.logger.Warn("unsupported file format, skipping",
			zap.String("path", doc.Path), zap.String("ext", filepath.Ext(doc.Path)))
		return units
	}
	if doc.Format != "" && doc.Format != format {
		e.logger.Warn("declared format does not match content",
			zap.String("path", doc.Path),
			zap.String("declared", string(doc.Format)),
			zap.String("detected", string(format)))
	}

	sections, err := e.extractSections(doc.Path, content, ext)
	if err != nil {
		e.logger.Error("failed to extract document",
			zap.String("path", doc.Path), zap.String("format", string(format)), zap.Error(err))
		return units
	}

	source := filepath.Base(doc.Path)
	for _, s := range sections {
		if strings.TrimSpace(s.text) == "" {
			continue
		}
		meta, err := models.NewUnitMetadata(doc.TenantID, source, format, s.index, s.tabular)
		if err != nil {
			e.logger.Error("invalid unit metadata", zap.String("path", doc.Path), zap.Error(err))
			return []models.TextUnit{}
		}
		units = append(units, models.TextUnit{Content: s.text, Metadata: meta})
	}
	e.logger.Debug("extracted document",
		zap.String("path", doc.Path), zap.String("format", string(format)), zap.Int("units", len(units)))
	return units
}

func (e *Extractor) extractSections(path string, content []byte, ext string) ([]section, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf", ".doc":
		return extractWord(path)
	case ".pptx":
		return extractPPTX(content)
	case ".ppt":
		return extractPPT(content)
	case ".xlsx":
		return extractXLSX(content)
	default:
		return extractPlain(content)
	}
}
