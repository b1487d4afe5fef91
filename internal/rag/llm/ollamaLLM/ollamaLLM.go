package ollamaLLM

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mkolsari/streamrag/internal/rag/llm"
	"github.com/mkolsari/streamrag/pkg/logger_i"
)

type client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	logger     *logger_i.Logger
}

// generateRequest is the backend /api/generate request format.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

func NewProvider(baseURL string, model string, httpClient *http.Client) llm.Provider {
	return &client{
		httpClient: httpClient,
		baseURL:    baseURL,
		model:      model,
		logger:     logger_i.NewLogger("ollama_llm"),
	}
}

// Stream starts a generation and forwards fragments as they arrive. The
// response body is released on every exit path: completion, backend error,
// or the consumer abandoning the channel via ctx cancellation.
func (c *client) Stream(ctx context.Context, prompt string) (<-chan llm.Fragment, error) {
	jsonBody, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &llm.GenerationError{Message: "generate call failed: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &llm.GenerationError{Message: fmt.Sprintf("backend status %d: %s", resp.StatusCode, string(body))}
	}

	out := make(chan llm.Fragment)
	decoder := newStreamDecoder(resp.Body)

	go func() {
		defer close(out)
		defer decoder.Close()

		for {
			text, err := decoder.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				c.logger.Error("Generation stream failed", "error", err)
				select {
				case out <- llm.Fragment{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- llm.Fragment{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
