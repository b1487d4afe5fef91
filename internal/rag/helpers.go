package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mkolsari/streamrag/internal/domain/commonModels"
	"github.com/mkolsari/streamrag/internal/metrics"
	"github.com/mkolsari/streamrag/internal/rag/chunker"
	"github.com/mkolsari/streamrag/internal/rag/llm"
)

func (s *service) executeChunkingStep(doc commonModels.Document) []commonModels.Chunk {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("chunking", time.Since(start)) }()

	content := doc.Content
	if len(content) > s.caps.MaxCharsPerDoc {
		s.logger.Warn("Truncating oversized document", "doc", doc.Name, "chars", len(content))
		content = content[:s.caps.MaxCharsPerDoc]
	}

	chunks := chunker.Split(content, s.caps.ChunkMaxChars, s.caps.ChunkOverlap)
	if len(chunks) > s.caps.MaxChunksPerDoc {
		chunks = chunks[:s.caps.MaxChunksPerDoc]
	}
	return chunks
}

func (s *service) executeEmbeddingStep(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return s.embedder.Embed(ctx, texts)
}

func (s *service) executeSearchStep(queryVector []float32, k int) []commonModels.IndexedChunk {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("index_search", time.Since(start)) }()

	return s.index.Search(queryVector, k)
}

func (s *service) executeGenerationStep(ctx context.Context, promptText string) (<-chan llm.Fragment, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("generation_start", time.Since(start)) }()

	return s.provider.Stream(ctx, promptText)
}

// formatRetrieval renders ranked matches as numbered context blocks,
// "### [i] filename > section" headers with the chunk text underneath,
// blank-line separated, plus the matching sources list.
func formatRetrieval(matches []commonModels.IndexedChunk) commonModels.RetrievalResult {
	blocks := make([]string, 0, len(matches))
	sources := make([]commonModels.Source, 0, len(matches))

	for i, m := range matches {
		header := fmt.Sprintf("### [%d] %s", i+1, m.Meta.Filename)
		if m.Meta.Section != "" {
			header += " > " + m.Meta.Section
		}
		blocks = append(blocks, header+"\n"+m.Text)
		sources = append(sources, commonModels.Source{
			N:        i + 1,
			Filename: m.Meta.Filename,
			Section:  m.Meta.Section,
		})
	}

	return commonModels.RetrievalResult{
		ContextBlock: strings.Join(blocks, "\n\n"),
		Sources:      sources,
	}
}
