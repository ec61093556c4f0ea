package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyperjump/manabu/internal/models"
)

const indexFileVersion = 1

// MemoryIndex is an in-memory vector index using brute-force inner product search.
type MemoryIndex struct {
	dimensions int
	entries    []*Entry
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		entries:    make([]*Entry, 0),
	}, nil
}

// Insert validates every entry before storing any of them.
func (m *MemoryIndex) Insert(ctx context.Context, entries []*Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.ID == "" {
			return fmt.Errorf("entry id is required")
		}
		if e.TenantID == "" {
			return fmt.Errorf("entry %s: %w", e.ID, ErrEmptyTenant)
		}
		if len(e.Vector) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(e.Vector), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, e.Vector)
		stored = append(stored, &Entry{ID: e.ID, TenantID: e.TenantID, Vector: vec, Chunk: e.Chunk})
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, stored...)
	return nil
}

// Search returns the tenant's top-k entries by inner product. Entries of other
// tenants are skipped during the scan and never scored.
func (m *MemoryIndex) Search(ctx context.Context, tenantID string, query []float32, k int) ([]*Result, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenant
	}
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 {
		return []*Result{}, nil
	}
	best := newTopK(k)
	for _, e := range m.entries {
		if e.TenantID != tenantID {
			continue
		}
		best.offer(&Result{Entry: e, Score: InnerProduct(query, e.Vector)})
	}
	return best.results(), nil
}

// Count returns the number of entries owned by tenantID.
func (m *MemoryIndex) Count(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, ErrEmptyTenant
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if e.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// DeleteTenant removes every entry owned by tenantID and returns how many were removed.
func (m *MemoryIndex) DeleteTenant(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, ErrEmptyTenant
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if e.TenantID != tenantID {
			kept = append(kept, e)
		}
	}
	removed := len(m.entries) - len(kept)
	m.entries = kept
	return removed, nil
}

// Save persists the index to path, creating the directory if needed. Format (little endian):
// version (4), dimension (4), n (4), then per entry: id, tenant id and chunk JSON as
// length-prefixed byte strings followed by the vector (dimension*4 bytes).
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := m.write(w); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush index file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

func (m *MemoryIndex) write(w io.Writer) error {
	header := []uint32{indexFileVersion, uint32(m.dimensions), uint32(len(m.entries))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range m.entries {
		chunkJSON, err := json.Marshal(e.Chunk)
		if err != nil {
			return fmt.Errorf("marshal chunk %s: %w", e.ID, err)
		}
		for _, b := range [][]byte{[]byte(e.ID), []byte(e.TenantID), chunkJSON} {
			if err := writeBytes(w, b); err != nil {
				return err
			}
		}
		if _, err := w.Write(float32SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents. Dimensions must match.
// If the file does not exist, no error is returned and the index is unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	header := make([]uint32, 3)
	if err := binary.Read(r, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if header[0] != indexFileVersion {
		return fmt.Errorf("unsupported index file version %d", header[0])
	}
	if int(header[1]) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", header[1], m.dimensions)
	}
	n := header[2]
	entries := make([]*Entry, 0, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		id, err := readBytes(r)
		if err != nil {
			return err
		}
		tenant, err := readBytes(r)
		if err != nil {
			return err
		}
		chunkJSON, err := readBytes(r)
		if err != nil {
			return err
		}
		var chunk models.Chunk
		if err := json.Unmarshal(chunkJSON, &chunk); err != nil {
			return fmt.Errorf("unmarshal chunk %s: %w", id, err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		entries = append(entries, &Entry{
			ID:       string(id),
			TenantID: string(tenant),
			Vector:   bytesToFloat32Slice(buf),
			Chunk:    &chunk,
		})
	}
	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write bytes: %w", err)
	}
	return nil
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("read bytes: %w", err)
	}
	return b, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of entries across all tenants.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
