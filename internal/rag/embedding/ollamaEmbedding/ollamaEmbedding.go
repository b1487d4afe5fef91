package ollamaEmbedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mkolsari/streamrag/internal/rag/embedding"
	"github.com/mkolsari/streamrag/pkg/logger_i"
)

type client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	logger     *logger_i.Logger
}

// embedRequest is the backend /api/embeddings request format.
type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

func NewEmbedder(baseURL string, model string, httpClient *http.Client) embedding.Embedder {
	return &client{
		httpClient: httpClient,
		baseURL:    baseURL,
		model:      model,
		logger:     logger_i.NewLogger("ollama_embedding"),
	}
}

// Embed issues one request per text, sequentially. Later texts wait for
// earlier calls so output order always matches input order.
func (c *client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vector, err := c.embedOne(ctx, text)
		if err != nil {
			c.logger.Error("Embedding call failed", "index", i, "error", err)
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

func (c *client) embedOne(ctx context.Context, text string) ([]float32, error) {
	jsonBody, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding backend status %d: %s", resp.StatusCode, string(body))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, &embedding.Error{Reason: "embedding field is not a numeric sequence: " + err.Error()}
	}
	if embedResp.Embedding == nil {
		return nil, &embedding.Error{Reason: "response missing embedding field"}
	}

	vector := make([]float32, len(embedResp.Embedding))
	for i, v := range embedResp.Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}
