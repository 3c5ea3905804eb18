// Package index provides the flat inner-product vector index, its on-disk
// artifact, and the process-wide snapshot cache.
package index

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/kotaehq/kotae/pkg/utils"
)

// IndexFileName is the vector index artifact file name under the storage root.
const IndexFileName = "vectors.idx"

// IndexPath returns the index artifact path for a storage root.
func IndexPath(root string) string {
	return filepath.Join(root, IndexFileName)
}

// Hit is a single search result: the vector's index position and its
// inner-product score.
type Hit struct {
	Position int
	Score    float64
}

// FlatIndex is an exact brute-force inner-product index over normalized
// vectors, keyed by position. It is write-once: built (or loaded) in
// full, then searched concurrently without further mutation.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
}

// NewFlatIndex creates an empty index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{dimensions: dimensions}, nil
}

// Add appends vectors to the index. Vectors must already be L2-normalized;
// position order is append order.
func (ix *FlatIndex) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != ix.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(v), ix.dimensions)
		}
		vec := make([]float32, ix.dimensions)
		copy(vec, v)
		ix.vectors = append(ix.vectors, vec)
	}
	return nil
}

// Search returns up to k hits ordered by inner product descending.
// Ties break toward the lower index position. Over-requesting beyond the
// corpus size simply returns fewer hits.
func (ix *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), ix.dimensions)
	}
	if k <= 0 || len(ix.vectors) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(ix.vectors))
	for i, vec := range ix.vectors {
		hits[i] = Hit{Position: i, Score: utils.InnerProduct(query, vec)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Size returns the number of vectors in the index.
func (ix *FlatIndex) Size() int {
	return len(ix.vectors)
}

// Dimensions returns the vector dimension.
func (ix *FlatIndex) Dimensions() int {
	return ix.dimensions
}

// Save persists the index to path. Directory is created if needed.
// Format: dimensions (4), count (4), then count vectors of dimensions*4 bytes each.
func (ix *FlatIndex) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(ix.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(ix.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, vec := range ix.vectors {
		if _, err := f.Write(float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return nil
}

// LoadFlatIndex reads an index artifact from path.
func LoadFlatIndex(path string) (*FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dims, count uint32
	if err := binary.Read(f, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if dims == 0 {
		return nil, fmt.Errorf("invalid dimensions: 0")
	}
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	ix := &FlatIndex{dimensions: int(dims)}
	ix.vectors = make([][]float32, 0, count)
	buf := make([]byte, int(dims)*4)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		ix.vectors = append(ix.vectors, bytesToFloat32Slice(buf))
	}
	return ix, nil
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
