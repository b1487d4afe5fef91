package vectorindex

import (
	"github.com/mkolsari/streamrag/internal/domain/commonModels"
)

// Entry is the caller-supplied part of an indexed chunk. The vector arrives
// separately, paired positionally.
type Entry struct {
	Id   string
	Text string
	Meta commonModels.ChunkMeta
}

// Index is an append-only vector store with k-nearest-neighbour search.
// Implementations must be safe for concurrent AddMany/Search.
type Index interface {
	AddMany(entries []Entry, vectors [][]float32) error
	Search(query []float32, k int) []commonModels.IndexedChunk
	Count() int
	IsEmpty() bool
}
