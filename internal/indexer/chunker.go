// Package indexer splits extracted text into classified chunks and feeds them to the vector index.
package indexer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hyperjump/manabu/internal/fileid"
	"github.com/hyperjump/manabu/internal/models"
)

// Chunker turns text units into retrieval-sized, classified chunks.
type Chunker struct {
	splitter *Splitter
}

// NewChunker creates a chunker with the given size and overlap (in characters).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{splitter: NewSplitter(chunkSize, chunkOverlap)}
}

// Split chunks every unit in order. Each chunk inherits its unit's metadata and adds
// its position within the unit, its category and its word count.
func (c *Chunker) Split(units []models.TextUnit) []*models.Chunk {
	chunks := make([]*models.Chunk, 0)
	for _, u := range units {
		docID := fileid.DocID(u.Metadata.TenantID, u.Metadata.SourceFile)
		for i, text := range c.splitter.SplitText(Preprocess(u.Content)) {
			meta := u.Metadata
			meta.ChunkIndex = i
			meta.ContentCategory = Classify(text)
			meta.WordCount = len(strings.Fields(text))
			chunks = append(chunks, &models.Chunk{
				ID:       fmt.Sprintf("%s_%s", docID, uuid.New().String()[:8]),
				Content:  text,
				Metadata: meta,
			})
		}
	}
	return chunks
}
