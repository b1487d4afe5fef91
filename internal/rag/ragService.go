package rag

import (
	"context"
	"fmt"

	"github.com/mkolsari/streamrag/internal/adapter/utils"
	"github.com/mkolsari/streamrag/internal/config"
	"github.com/mkolsari/streamrag/internal/domain/commonModels"
	"github.com/mkolsari/streamrag/internal/metrics"
	"github.com/mkolsari/streamrag/internal/rag/embedding"
	"github.com/mkolsari/streamrag/internal/rag/llm"
	"github.com/mkolsari/streamrag/internal/rag/prompt"
	"github.com/mkolsari/streamrag/internal/rag/vectorindex"
	"github.com/mkolsari/streamrag/pkg/logger_i"
)

// Service is the public pipeline contract. Callers (handlers, workers) only
// see this interface, never the index or the backend clients behind it.
type Service interface {
	Ingest(ctx context.Context, docs []commonModels.Document) error
	Retrieve(ctx context.Context, query string, k int) (commonModels.RetrievalResult, error)
	Generate(ctx context.Context, req GenerateRequest) (<-chan llm.Fragment, []commonModels.Source, error)
	Count() int
}

type GenerateRequest struct {
	Message      string
	History      []commonModels.ConversationTurn
	SystemPrompt string
	Documents    []commonModels.Document
}

// Caps bound ingestion so a single request cannot blow up memory. Extras are
// dropped or truncated silently, never rejected.
type Caps struct {
	MaxDocs         int
	MaxCharsPerDoc  int
	MaxChunksPerDoc int
	ChunkMaxChars   int
	ChunkOverlap    int
	TopK            int
}

func DefaultCaps() Caps {
	return Caps{
		MaxDocs:         config.MaxDocsPerIngest,
		MaxCharsPerDoc:  config.MaxCharsPerDoc,
		MaxChunksPerDoc: config.MaxChunksPerDoc,
		ChunkMaxChars:   config.ChunkMaxChars,
		ChunkOverlap:    config.ChunkOverlapChars,
		TopK:            config.TopKResults,
	}
}

type service struct {
	index     vectorindex.Index
	embedder  embedding.Embedder
	provider  llm.Provider
	assembler *prompt.Assembler
	caps      Caps
	logger    *logger_i.Logger
}

// NewService constructor. The index is injected, not ambient state; its
// lifecycle is tied to this pipeline instance.
func NewService(index vectorindex.Index, em embedding.Embedder, provider llm.Provider, assembler *prompt.Assembler, caps Caps) Service {
	return &service{
		index:     index,
		embedder:  em,
		provider:  provider,
		assembler: assembler,
		caps:      caps,
		logger:    logger_i.NewLogger("RAG Service"),
	}
}

// Ingest chunks, embeds and indexes the documents, applying the caps. Each
// failure surfaces to the caller as-is, nothing is retried.
func (s *service) Ingest(ctx context.Context, docs []commonModels.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if len(docs) > s.caps.MaxDocs {
		s.logger.Warn("Dropping documents over the ingest cap", "got", len(docs), "cap", s.caps.MaxDocs)
		docs = docs[:s.caps.MaxDocs]
	}

	var entries []vectorindex.Entry
	var texts []string
	for _, doc := range docs {
		for _, c := range s.executeChunkingStep(doc) {
			entries = append(entries, vectorindex.Entry{
				Id:   utils.GetNewUUID(),
				Text: c.Text,
				Meta: commonModels.ChunkMeta{
					DocId:    doc.Id,
					Filename: doc.Name,
					Section:  c.Section,
				},
			})
			texts = append(texts, c.Text)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := s.executeEmbeddingStep(ctx, texts)
	if err != nil {
		return fmt.Errorf("ingest embedding failed: %w", err)
	}

	if err := s.index.AddMany(entries, vectors); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	metrics.SetIndexedChunks(s.index.Count())

	s.logger.Info("Ingested documents", "documents", len(docs), "chunks", len(entries))
	return nil
}

// Count reports how many chunks are currently indexed.
func (s *service) Count() int {
	return s.index.Count()
}

// Retrieve embeds the query, scans the index and formats the top matches
// into the numbered context block the prompt assembler expects.
func (s *service) Retrieve(ctx context.Context, query string, k int) (commonModels.RetrievalResult, error) {
	vectors, err := s.executeEmbeddingStep(ctx, []string{query})
	if err != nil {
		return commonModels.RetrievalResult{}, fmt.Errorf("query embedding failed: %w", err)
	}

	matches := s.executeSearchStep(vectors[0], k)
	return formatRetrieval(matches), nil
}

// Generate runs the full pipeline for one chat turn: optional inline
// ingestion, retrieval, prompt assembly, then the streaming backend call.
// Fragments are forwarded as they arrive; the sources are returned up front
// so the caller can surface them separately from the generated text.
func (s *service) Generate(ctx context.Context, req GenerateRequest) (<-chan llm.Fragment, []commonModels.Source, error) {
	if len(req.Documents) > 0 {
		if err := s.Ingest(ctx, req.Documents); err != nil {
			return nil, nil, err
		}
	}

	retrieval, err := s.Retrieve(ctx, req.Message, s.caps.TopK)
	if err != nil {
		return nil, nil, err
	}

	promptText := s.assembler.Assemble(req.Message, req.History, req.SystemPrompt, retrieval)

	fragments, err := s.executeGenerationStep(ctx, promptText)
	if err != nil {
		return nil, nil, err
	}
	return fragments, retrieval.Sources, nil
}
