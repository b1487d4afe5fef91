package config

import (
	"log/slog"
	"os"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//ingestion caps - resource safety, extras are dropped/truncated silently
	MaxDocsPerIngest = 20
	MaxCharsPerDoc   = 200000
	MaxChunksPerDoc  = 80

	//chunking
	ChunkMaxChars     = 1000
	ChunkOverlapChars = 150

	//retrieval
	TopKResults      = 4
	HistoryTurnLimit = 10

	//worker pool for ingest jobs
	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts - WriteTimeout is long because /chat streams tokens
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 5 * time.Minute
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//per call timeouts on the backends
	EmbeddingCallTimeout  = 30 * time.Second
	GenerationCallTimeout = 2 * time.Minute
	IngestJobTimeout      = 5 * time.Minute

	//server listening port
	ServerListenAddr = ":3000"

	//ingest job buffer limit
	BufferLimit = 100

	//generation backend defaults (ollama)
	DefaultBackendBaseURL  = "http://localhost:11434"
	DefaultGenerationModel = "llama3.2"
	DefaultEmbeddingModel  = "nomic-embed-text"

	DefaultSystemPrompt = "You are a helpful assistant. Answer using the provided documents when they are relevant. If you don't know the answer, say you don't know."

	//http client pooling
	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost     = "127.0.0.1"
	redisPort     = "6379"
	RedisAddr     = redisHost + ":" + redisPort
	RedisPassword = ""

	//redis has 16 DB we can use
	RedisJobStore     = 0
	RedisMessageStore = 1

	RedisJobStoreTTL     = 24 * time.Hour
	RedisMessageStoreTTL = 24 * time.Hour
)

func envOr(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// BackendBaseURL is the base URL of the embedding/generation backend.
func BackendBaseURL() string {
	return envOr("OLLAMA_BASE_URL", DefaultBackendBaseURL)
}

func GenerationModel() string {
	return envOr("GENERATION_MODEL", DefaultGenerationModel)
}

func EmbeddingModel() string {
	return envOr("EMBEDDING_MODEL", DefaultEmbeddingModel)
}

func SystemPrompt() string {
	return envOr("SYSTEM_PROMPT", DefaultSystemPrompt)
}

// EmbeddingProvider selects the embedder: "ollama" (default) or "openai".
func EmbeddingProvider() string {
	return envOr("EMBEDDING_PROVIDER", "ollama")
}

// LLMProvider selects the generation backend: "ollama" (default) or "gemini".
func LLMProvider() string {
	return envOr("LLM_PROVIDER", "ollama")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func OpenAIEmbeddingModel() string {
	return envOr("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small")
}

func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

func GeminiModel() string {
	return envOr("GEMINI_MODEL", "gemini-2.5-flash-lite-preview-09-2025")
}

// AuthToken is the bearer token expected on incoming requests.
// Empty means auth is bypassed (local dev).
func AuthToken() string {
	return os.Getenv("AUTH_TOKEN")
}
