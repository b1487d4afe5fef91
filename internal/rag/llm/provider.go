package llm

import "context"

// Fragment is one element of a generation stream. Either Text carries an
// incremental piece of the answer or Err terminates the stream.
type Fragment struct {
	Text string
	Err  error
}

// Provider streams a completion for an assembled prompt. The returned channel
// is closed when generation finishes, fails, or ctx is cancelled; a failure
// is delivered as a final Fragment with Err set. The error return covers
// failures before any streaming starts (bad request, transport refusal).
type Provider interface {
	Stream(ctx context.Context, prompt string) (<-chan Fragment, error)
}

// GenerationError carries a backend-reported failure, either an error field
// observed mid-stream or a failed transport call.
type GenerationError struct {
	Message string
}

func (e *GenerationError) Error() string {
	return "generation: " + e.Message
}
