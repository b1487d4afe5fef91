package openaiEmbedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mkolsari/streamrag/internal/rag/embedding"
	"github.com/mkolsari/streamrag/pkg/logger_i"
)

// client is the OpenAI-backed alternative embedder, selected with
// EMBEDDING_PROVIDER=openai.
type client struct {
	sdk    openai.Client
	model  string
	logger *logger_i.Logger
}

func NewEmbedder(apiKey string, model string) embedding.Embedder {
	return &client{
		sdk:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger_i.NewLogger("openai_embedding"),
	}
}

// Embed keeps the same sequential one-request-per-text contract as the
// default backend so the retriever behaves identically across providers.
func (c *client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		res, err := c.sdk.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: openai.EmbeddingModel(c.model),
			Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		})
		if err != nil {
			c.logger.Error("Embedding call failed", "index", i, "error", err)
			return nil, fmt.Errorf("openai embeddings: %w", err)
		}
		if len(res.Data) == 0 || len(res.Data[0].Embedding) == 0 {
			return nil, &embedding.Error{Reason: "response missing embedding data"}
		}

		raw := res.Data[0].Embedding
		vector := make([]float32, len(raw))
		for j, v := range raw {
			vector[j] = float32(v)
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}
