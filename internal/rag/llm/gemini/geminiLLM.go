package gemini

import (
	"context"

	"google.golang.org/genai"

	"github.com/mkolsari/streamrag/internal/rag/llm"
	"github.com/mkolsari/streamrag/pkg/logger_i"
)

// llmClient is the Gemini-backed alternative generation provider, selected
// with LLM_PROVIDER=gemini. The default backend's line protocol does not
// apply here; fragments come straight from the SDK stream.
type llmClient struct {
	client    *genai.Client
	modelName string
	logger    *logger_i.Logger
}

func GetGeminiClient(ctx context.Context, apikey string, modelName string) llm.Provider {
	logger := logger_i.NewLogger("llm_gemini")

	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		logger.Error("Error creating Gemini client:", "error", err)
		return nil
	}
	logger.Info("Gemini client created", "model", modelName)
	return &llmClient{client: c, modelName: modelName, logger: logger}
}

func (c *llmClient) Stream(ctx context.Context, prompt string) (<-chan llm.Fragment, error) {
	out := make(chan llm.Fragment)

	go func() {
		defer close(out)

		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.modelName, genai.Text(prompt), nil) {
			if err != nil {
				c.logger.Error("Gemini stream failed", "error", err)
				select {
				case out <- llm.Fragment{Err: &llm.GenerationError{Message: err.Error()}}:
				case <-ctx.Done():
				}
				return
			}
			text := resp.Text()
			if text == "" {
				continue
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
