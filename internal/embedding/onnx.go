//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/manabu/pkg/utils"
)

// onnxBatchRows is the number of texts one session run embeds.
const onnxBatchRows = 8

// ONNXEmbedder runs a sentence-embedding model (all-MiniLM-L6-v2 by default) with ONNX Runtime.
// It requires CGO and the onnxruntime shared library. The session has fixed input tensors of
// onnxBatchRows rows, so chunk batches are embedded several texts per run.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	seqLen     int
	tokenizer  Tokenizer
	ids        *ort.Tensor[int64]
	mask       *ort.Tensor[int64]
	types      *ort.Tensor[int64]
	output     *ort.Tensor[float32]
	mu         sync.Mutex
}

type destroyer interface{ Destroy() error }

func destroyAll(ds ...destroyer) {
	for _, d := range ds {
		if d != nil {
			_ = d.Destroy()
		}
	}
}

// NewONNXEmbedder loads the model at modelPath. maxTokens is the model's sequence length.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens int) (*ONNXEmbedder, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if maxTokens <= 0 {
		maxTokens = defaultMax
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	inShape := ort.NewShape(onnxBatchRows, int64(maxTokens))
	ids, err := ort.NewEmptyTensor[int64](inShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	mask, err := ort.NewEmptyTensor[int64](inShape)
	if err != nil {
		destroyAll(ids)
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	types, err := ort.NewEmptyTensor[int64](inShape)
	if err != nil {
		destroyAll(ids, mask)
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(onnxBatchRows, int64(dimensions)))
	if err != nil {
		destroyAll(ids, mask, types)
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{ids, mask, types},
		[]ort.ArbitraryTensor{output},
		nil,
	)
	if err != nil {
		destroyAll(ids, mask, types, output)
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", modelPath, err)
	}

	return &ONNXEmbedder{
		session:    session,
		dimensions: dimensions,
		seqLen:     maxTokens,
		tokenizer:  HashTokenizer{},
		ids:        ids,
		mask:       mask,
		types:      types,
		output:     output,
	}, nil
}

// Embed embeds a single text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts onnxBatchRows at a time. Unused rows of the last run are padding.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("onnx embedder is closed")
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += onnxBatchRows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + onnxBatchRows
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.runLocked(texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *ONNXEmbedder) runLocked(texts []string) ([][]float32, error) {
	ids, mask, types := e.ids.GetData(), e.mask.GetData(), e.types.GetData()
	for row := 0; row < onnxBatchRows; row++ {
		text := ""
		if row < len(texts) {
			text = texts[row]
		}
		lo, hi := row*e.seqLen, (row+1)*e.seqLen
		e.tokenizer.EncodeInto(text, ids[lo:hi], mask[lo:hi], types[lo:hi])
	}
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := e.output.GetData()
	vecs := make([][]float32, len(texts))
	for row := range texts {
		v := make([]float32, e.dimensions)
		copy(v, data[row*e.dimensions:(row+1)*e.dimensions])
		utils.NormalizeL2(v)
		vecs[row] = v
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors. It is safe to call twice.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	destroyAll(e.ids, e.mask, e.types, e.output)
	e.session, e.ids, e.mask, e.types, e.output = nil, nil, nil, nil, nil
	return err
}
