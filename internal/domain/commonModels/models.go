package commonModels

// Document is caller-owned input to ingestion. Content is read-only to the
// pipeline and never persisted beyond the chunks derived from it.
type Document struct {
	Id      string `json:"source_doc_id"`
	Name    string `json:"doc_name"`
	Size    int    `json:"size"`
	Content string `json:"content"`
}

// Chunk is one slice of a document's text. Section is the text of the nearest
// preceding level 2-6 heading, empty when no heading was seen yet.
type Chunk struct {
	Text    string `json:"text"`
	Section string `json:"section,omitempty"`
}

type ChunkMeta struct {
	DocId    string `json:"source_doc_id"`
	Filename string `json:"doc_name"`
	Section  string `json:"section,omitempty"`
}

// IndexedChunk is owned by the vector index after insertion.
type IndexedChunk struct {
	Id     string    `json:"chunk_id"`
	Text   string    `json:"content"`
	Meta   ChunkMeta `json:"meta"`
	Vector []float32 `json:"-"`
}

type ConversationTurn struct {
	Role    string `json:"role"` //"user" or "assistant"
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Source points a citation number at the document a context block came from.
type Source struct {
	N        int    `json:"n"`
	Filename string `json:"filename"`
	Section  string `json:"section,omitempty"`
}

// RetrievalResult is produced per query and not stored.
type RetrievalResult struct {
	ContextBlock string   `json:"context_block"`
	Sources      []Source `json:"sources"`
}
