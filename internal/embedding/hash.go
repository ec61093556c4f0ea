package embedding

import (
	"context"
	"hash/fnv"

	"github.com/hyperjump/manabu/pkg/utils"
)

const bigramWeight = 0.5

// HashEmbedder embeds text by feature hashing its lower-cased terms and adjacent term
// pairs into a fixed number of signed buckets. It needs no model, is deterministic,
// and texts sharing vocabulary score higher than unrelated ones.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a hashing embedder with the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the hashed, normalised term vector for text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := make([]float32, e.dimensions)
	terms := Terms(text)
	for i, t := range terms {
		e.add(v, t, 1)
		if i > 0 {
			e.add(v, terms[i-1]+" "+t, bigramWeight)
		}
	}
	utils.NormalizeL2(v)
	return v, nil
}

func (e *HashEmbedder) add(v []float32, term string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(term))
	sum := h.Sum64()
	if sum>>63 == 1 {
		weight = -weight
	}
	v[sum%uint64(e.dimensions)] += weight
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}
