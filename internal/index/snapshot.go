package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/kotaehq/kotae/internal/models"
	"github.com/kotaehq/kotae/internal/storage"
	"github.com/kotaehq/kotae/pkg/utils"
)

// ErrNotInitialized is returned when the index artifact does not exist:
// no ingest has ever completed for this storage root.
var ErrNotInitialized = errors.New("knowledge base not initialized")

// ErrCorrupted is returned when the index and metadata artifacts are
// present but mismatched or unreadable. Detected at load time so a search
// can never pair a vector with the wrong metadata entry.
var ErrCorrupted = errors.New("knowledge base artifacts corrupted")

// Snapshot is one consistent (vector index, metadata) generation of the
// knowledge base. Immutable once loaded; replaced wholesale on rebuild.
type Snapshot struct {
	Index      *FlatIndex
	Metas      []*models.ChunkMeta
	Generation string
}

// Search normalizes the query vector, runs top-k inner-product search,
// and pairs each hit with its metadata entry by position. Hits whose
// position falls outside the metadata list are discarded.
func (s *Snapshot) Search(query []float32, topK int) ([]models.RetrievalHit, error) {
	q := make([]float32, len(query))
	copy(q, query)
	utils.NormalizeL2(q)

	hits, err := s.Index.Search(q, topK)
	if err != nil {
		return nil, err
	}
	results := make([]models.RetrievalHit, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 || h.Position >= len(s.Metas) {
			continue
		}
		results = append(results, models.RetrievalHit{Meta: s.Metas[h.Position], Score: h.Score})
	}
	return results, nil
}

// LoadSnapshot reads both artifacts under root and verifies they form a
// consistent pair. A missing index blob means the knowledge base was
// never built (ErrNotInitialized); any other inconsistency is ErrCorrupted.
func LoadSnapshot(ctx context.Context, root string, meta *storage.MetaStore) (*Snapshot, error) {
	if _, err := os.Stat(IndexPath(root)); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("stat index artifact: %w", err)
	}

	ix, err := LoadFlatIndex(IndexPath(root))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	metas, err := meta.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load metadata: %v", ErrCorrupted, err)
	}
	if len(metas) != ix.Size() {
		return nil, fmt.Errorf("%w: %d vectors but %d metadata entries", ErrCorrupted, ix.Size(), len(metas))
	}

	generation, _, err := meta.Generation(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load generation: %v", ErrCorrupted, err)
	}

	return &Snapshot{Index: ix, Metas: metas, Generation: generation}, nil
}

// Cache holds exactly one snapshot in process memory. The first Get loads
// from disk; later Gets reuse the cached snapshot until Invalidate drops
// it. Rebuild is the only writer: it invalidates after persisting both
// artifacts, so the next query reloads the fresh generation.
type Cache struct {
	root string
	meta *storage.MetaStore

	mu   sync.RWMutex
	snap *Snapshot
}

// NewCache creates a snapshot cache over the artifacts under root.
func NewCache(root string, meta *storage.MetaStore) *Cache {
	return &Cache{root: root, meta: meta}
}

// Get returns the cached snapshot, loading it from disk on first use or
// after an invalidation.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap != nil {
		return c.snap, nil
	}
	snap, err := LoadSnapshot(ctx, c.root, c.meta)
	if err != nil {
		return nil, err
	}
	c.snap = snap
	return snap, nil
}

// Invalidate drops the cached snapshot, forcing the next Get to reload
// from the persisted artifacts.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

// Size returns the vector count of the cached snapshot, or 0 when no
// snapshot is loaded.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return 0
	}
	return c.snap.Index.Size()
}
