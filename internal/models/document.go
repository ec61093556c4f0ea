// Package models defines core data structures for documents, chunks, interactions and stats.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// MetadataSchemaVersion is the version of the Metadata layout attached to units and chunks.
const MetadataSchemaVersion = 1

// FormatTag identifies the source format a text unit was extracted from.
type FormatTag string

const (
	FormatPDF          FormatTag = "pdf"
	FormatText         FormatTag = "text"
	FormatWord         FormatTag = "word"
	FormatSlides       FormatTag = "slides"
	FormatLegacySlides FormatTag = "legacy_slides"
	FormatSpreadsheet  FormatTag = "spreadsheet"
)

// Known reports whether f is a supported format tag.
func (f FormatTag) Known() bool {
	switch f {
	case FormatPDF, FormatText, FormatWord, FormatSlides, FormatLegacySlides, FormatSpreadsheet:
		return true
	}
	return false
}

// ContentCategory is the structural class assigned to a chunk.
type ContentCategory string

const (
	CategoryFormula    ContentCategory = "formula"
	CategoryCode       ContentCategory = "code"
	CategoryTable      ContentCategory = "table"
	CategoryDefinition ContentCategory = "definition"
	CategoryList       ContentCategory = "list"
	CategoryHeading    ContentCategory = "heading"
	CategoryParagraph  ContentCategory = "paragraph"
)

// RawDocument is a file handed over by the upload collaborator, consumed once by the extractor.
type RawDocument struct {
	Path     string    `json:"path"`
	TenantID string    `json:"tenant_id"`
	Format   FormatTag `json:"format"`
}

// Metadata is the fixed provenance record carried by text units and chunks.
// Chunk-only fields are zero on text units.
type Metadata struct {
	SchemaVersion     int             `json:"schema_version"`
	TenantID          string          `json:"tenant_id"`
	SourceFile        string          `json:"source_file"`
	UnitIndex         *int            `json:"unit_index,omitempty"` // page or slide number
	Format            FormatTag       `json:"format_tag"`
	HasTabularContent bool            `json:"has_tabular_content"`
	ChunkIndex        int             `json:"chunk_index"`
	ContentCategory   ContentCategory `json:"content_category,omitempty"`
	WordCount         int             `json:"word_count"`
}

// NewUnitMetadata builds validated metadata for a text unit. unitIndex < 1 means "no page/slide".
func NewUnitMetadata(tenantID, sourceFile string, format FormatTag, unitIndex int, tabular bool) (Metadata, error) {
	m := Metadata{
		SchemaVersion:     MetadataSchemaVersion,
		TenantID:          tenantID,
		SourceFile:        sourceFile,
		Format:            format,
		HasTabularContent: tabular,
	}
	if unitIndex > 0 {
		idx := unitIndex
		m.UnitIndex = &idx
	}
	if err := m.Validate(); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// Validate checks the fields every unit and chunk must carry.
func (m Metadata) Validate() error {
	if m.SchemaVersion != MetadataSchemaVersion {
		return fmt.Errorf("unsupported metadata schema version %d", m.SchemaVersion)
	}
	if strings.TrimSpace(m.TenantID) == "" {
		return errors.New("metadata: tenant id is required")
	}
	if strings.TrimSpace(m.SourceFile) == "" {
		return errors.New("metadata: source file is required")
	}
	if !m.Format.Known() {
		return fmt.Errorf("metadata: unknown format %q", m.Format)
	}
	if m.ChunkIndex < 0 || m.WordCount < 0 {
		return errors.New("metadata: negative chunk index or word count")
	}
	return nil
}

// TextUnit is one page, slide, sheet or whole file of extracted text.
type TextUnit struct {
	Content  string   `json:"page_content"`
	Metadata Metadata `json:"metadata"`
}

// Chunk is a retrieval-sized passage derived from a TextUnit.
type Chunk struct {
	ID       string   `json:"id"`
	Content  string   `json:"page_content"`
	Metadata Metadata `json:"metadata"`
}

// TenantID returns the owning tenant of the chunk.
func (c *Chunk) TenantID() string {
	return c.Metadata.TenantID
}
