package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mkolsari/streamrag/internal/domain/commonModels"
	"github.com/mkolsari/streamrag/internal/rag/llm"
	"github.com/mkolsari/streamrag/internal/rag/prompt"
	"github.com/mkolsari/streamrag/internal/rag/vectorindex"
)

type MockEmbedder struct {
	OnEmbed func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return m.OnEmbed(ctx, texts)
}

type MockProvider struct {
	OnStream func(ctx context.Context, prompt string) (<-chan llm.Fragment, error)
}

func (m *MockProvider) Stream(ctx context.Context, prompt string) (<-chan llm.Fragment, error) {
	return m.OnStream(ctx, prompt)
}

// constantEmbedder maps every text to the same unit vector, so any query
// matches every indexed chunk equally and ranking falls back to insert order.
func constantEmbedder() *MockEmbedder {
	return &MockEmbedder{
		OnEmbed: func(_ context.Context, texts []string) ([][]float32, error) {
			vectors := make([][]float32, len(texts))
			for i := range texts {
				vectors[i] = []float32{1, 0, 0}
			}
			return vectors, nil
		},
	}
}

func testCaps() Caps {
	return Caps{
		MaxDocs:         20,
		MaxCharsPerDoc:  200000,
		MaxChunksPerDoc: 80,
		ChunkMaxChars:   1000,
		ChunkOverlap:    150,
		TopK:            4,
	}
}

func TestIngestCapsDocumentCount(t *testing.T) {
	index := vectorindex.NewMemoryIndex()
	svc := NewService(index, constantEmbedder(), &MockProvider{}, prompt.NewAssembler(""), testCaps())

	docs := make([]commonModels.Document, 25)
	for i := range docs {
		docs[i] = commonModels.Document{
			Id:      fmt.Sprintf("doc-%d", i),
			Name:    fmt.Sprintf("doc-%d.md", i),
			Content: fmt.Sprintf("content of document %d", i),
		}
	}

	if err := svc.Ingest(context.Background(), docs); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if got := index.Count(); got != 20 {
		t.Fatalf("expected 20 indexed chunks after doc cap, got %d", got)
	}
}

func TestIngestCapsCharsPerDoc(t *testing.T) {
	index := vectorindex.NewMemoryIndex()
	var embedded int
	em := &MockEmbedder{
		OnEmbed: func(_ context.Context, texts []string) ([][]float32, error) {
			embedded = len(texts)
			vectors := make([][]float32, len(texts))
			for i := range texts {
				vectors[i] = []float32{1}
			}
			return vectors, nil
		},
	}
	caps := testCaps()
	caps.MaxChunksPerDoc = 1000
	caps.ChunkOverlap = 0
	svc := NewService(index, em, &MockProvider{}, prompt.NewAssembler(""), caps)

	doc := commonModels.Document{
		Id:      "big",
		Name:    "big.md",
		Content: strings.Repeat("a", 500000),
	}
	if err := svc.Ingest(context.Background(), []commonModels.Document{doc}); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if embedded != 200 {
		t.Fatalf("expected 200 chunks embedded after char cap, got %d", embedded)
	}
}

func TestIngestCapsChunksPerDoc(t *testing.T) {
	index := vectorindex.NewMemoryIndex()
	caps := testCaps()
	caps.ChunkMaxChars = 10
	caps.ChunkOverlap = 0
	svc := NewService(index, constantEmbedder(), &MockProvider{}, prompt.NewAssembler(""), caps)

	doc := commonModels.Document{
		Id:      "long",
		Name:    "long.md",
		Content: strings.Repeat("b", 2000),
	}
	if err := svc.Ingest(context.Background(), []commonModels.Document{doc}); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if got := index.Count(); got != caps.MaxChunksPerDoc {
		t.Fatalf("expected chunk cap of %d, got %d", caps.MaxChunksPerDoc, got)
	}
}

func TestIngestEmptyIsNoOp(t *testing.T) {
	index := vectorindex.NewMemoryIndex()
	em := &MockEmbedder{
		OnEmbed: func(_ context.Context, _ []string) ([][]float32, error) {
			t.Fatal("Embed should not be called for empty ingest")
			return nil, nil
		},
	}
	svc := NewService(index, em, &MockProvider{}, prompt.NewAssembler(""), testCaps())

	if err := svc.Ingest(context.Background(), nil); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if !index.IsEmpty() {
		t.Fatal("index should stay empty")
	}
}

func TestRetrieveFormatsContextBlocks(t *testing.T) {
	index := vectorindex.NewMemoryIndex()
	svc := NewService(index, constantEmbedder(), &MockProvider{}, prompt.NewAssembler(""), testCaps())

	docs := []commonModels.Document{
		{Id: "d1", Name: "guide.md", Content: "## Install\nRun the installer."},
	}
	if err := svc.Ingest(context.Background(), docs); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}

	result, err := svc.Retrieve(context.Background(), "how to install", 4)
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if !strings.Contains(result.ContextBlock, "### [1] guide.md > Install") {
		t.Fatalf("context block missing numbered header, got:\n%s", result.ContextBlock)
	}
	if len(result.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(result.Sources))
	}
	if result.Sources[0].Section != "Install" {
		t.Fatalf("expected section Install, got %q", result.Sources[0].Section)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	index := vectorindex.NewMemoryIndex()
	svc := NewService(index, constantEmbedder(), &MockProvider{}, prompt.NewAssembler(""), testCaps())

	result, err := svc.Retrieve(context.Background(), "anything", 4)
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if result.ContextBlock != "" {
		t.Fatalf("expected empty context block, got %q", result.ContextBlock)
	}
	if len(result.Sources) != 0 {
		t.Fatalf("expected no sources, got %d", len(result.Sources))
	}
}

func TestGenerateStreamsWithInlineDocuments(t *testing.T) {
	index := vectorindex.NewMemoryIndex()
	var capturedPrompt string
	provider := &MockProvider{
		OnStream: func(_ context.Context, prompt string) (<-chan llm.Fragment, error) {
			capturedPrompt = prompt
			out := make(chan llm.Fragment, 2)
			out <- llm.Fragment{Text: "Hel"}
			out <- llm.Fragment{Text: "lo"}
			close(out)
			return out, nil
		},
	}
	svc := NewService(index, constantEmbedder(), provider, prompt.NewAssembler("You are helpful."), testCaps())

	fragments, sources, err := svc.Generate(context.Background(), GenerateRequest{
		Message: "what does the intro say?",
		Documents: []commonModels.Document{
			{Id: "d1", Name: "notes.md", Content: "## Intro\nWelcome aboard."},
		},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	var text strings.Builder
	for f := range fragments {
		if f.Err != nil {
			t.Fatalf("unexpected fragment error: %v", f.Err)
		}
		text.WriteString(f.Text)
	}
	if text.String() != "Hello" {
		t.Fatalf("expected streamed text Hello, got %q", text.String())
	}
	if len(sources) != 1 || sources[0].Filename != "notes.md" {
		t.Fatalf("unexpected sources: %+v", sources)
	}
	if !strings.Contains(capturedPrompt, "Welcome aboard.") {
		t.Fatal("prompt missing retrieved context")
	}
	if !strings.Contains(capturedPrompt, "<assistant>\n") {
		t.Fatal("prompt missing open assistant block")
	}
}

func TestGeneratePropagatesProviderError(t *testing.T) {
	index := vectorindex.NewMemoryIndex()
	provider := &MockProvider{
		OnStream: func(_ context.Context, _ string) (<-chan llm.Fragment, error) {
			return nil, &llm.GenerationError{Message: "backend unreachable"}
		},
	}
	svc := NewService(index, constantEmbedder(), provider, prompt.NewAssembler(""), testCaps())

	_, _, err := svc.Generate(context.Background(), GenerateRequest{Message: "hi"})
	if err == nil {
		t.Fatal("expected error from provider")
	}
	if !strings.Contains(err.Error(), "backend unreachable") {
		t.Fatalf("unexpected error: %v", err)
	}
}
