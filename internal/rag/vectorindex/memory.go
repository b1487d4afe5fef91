package vectorindex

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/mkolsari/streamrag/internal/domain/commonModels"
)

// guards against division by zero for a zero vector
const epsilon = 1e-12

// MemoryIndex is a brute-force in-memory index using cosine similarity.
// Every query is an O(n*d) scan, acceptable at the scale the ingestion caps
// allow. There is no eviction; the index lives for the process lifetime.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	chunks    []commonModels.IndexedChunk
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// AddMany appends entries with their vectors, paired positionally. The
// dimension is recorded from the first vector ever added and later inserts
// are not re-validated against it.
func (ix *MemoryIndex) AddMany(entries []Entry, vectors [][]float32) error {
	if len(entries) != len(vectors) {
		return fmt.Errorf("mismatch: got %d entries but %d vectors", len(entries), len(vectors))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dimension == 0 && len(vectors) > 0 {
		ix.dimension = len(vectors[0])
	}

	for i, e := range entries {
		ix.chunks = append(ix.chunks, commonModels.IndexedChunk{
			Id:     e.Id,
			Text:   e.Text,
			Meta:   e.Meta,
			Vector: vectors[i],
		})
	}
	return nil
}

// Search returns the min(k, Count) chunks closest to query by cosine
// similarity, best first. Ties keep insertion order.
func (ix *MemoryIndex) Search(query []float32, k int) []commonModels.IndexedChunk {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if k <= 0 || len(ix.chunks) == 0 {
		return nil
	}

	scores := make([]float64, len(ix.chunks))
	for i := range ix.chunks {
		scores[i] = cosineSimilarity(ix.chunks[i].Vector, query)
	}

	order := make([]int, len(ix.chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	results := make([]commonModels.IndexedChunk, 0, k)
	for _, idx := range order[:k] {
		results = append(results, ix.chunks[idx])
	}
	return results
}

func (ix *MemoryIndex) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

func (ix *MemoryIndex) IsEmpty() bool {
	return ix.Count() == 0
}

// Dimension reports the vector size recorded from the first insert, 0 while
// the index is empty.
func (ix *MemoryIndex) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

func cosineSimilarity(a []float32, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + epsilon)
}
