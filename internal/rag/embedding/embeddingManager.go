package embedding

import "context"

// Embedder maps texts to fixed-dimension vectors, one output per input, same
// order. Implementations are sequential across the inputs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Error reports a backend response without a usable vector. It is fatal to
// the ingest or retrieve call that triggered it and is never retried.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "embedding: " + e.Reason
}
