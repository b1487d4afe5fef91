// @title           StreamRAG API
// @version         1.0
// @description     Retrieval-augmented chat over uploaded documents, with streamed NDJSON answers.

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mkolsari/streamrag/internal/config"
	"github.com/mkolsari/streamrag/internal/customHttpClient"
	"github.com/mkolsari/streamrag/internal/data/store"
	jobmodel "github.com/mkolsari/streamrag/internal/domain/jobModel"
	"github.com/mkolsari/streamrag/internal/handlers"
	"github.com/mkolsari/streamrag/internal/job"
	"github.com/mkolsari/streamrag/internal/rag"
	"github.com/mkolsari/streamrag/internal/rag/embedding"
	"github.com/mkolsari/streamrag/internal/rag/embedding/ollamaEmbedding"
	"github.com/mkolsari/streamrag/internal/rag/embedding/openaiEmbedding"
	"github.com/mkolsari/streamrag/internal/rag/llm"
	"github.com/mkolsari/streamrag/internal/rag/llm/gemini"
	"github.com/mkolsari/streamrag/internal/rag/llm/ollamaLLM"
	"github.com/mkolsari/streamrag/internal/rag/prompt"
	"github.com/mkolsari/streamrag/internal/rag/vectorindex"
	"github.com/mkolsari/streamrag/internal/server"
	"github.com/mkolsari/streamrag/internal/worker"
	"github.com/mkolsari/streamrag/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	_ = godotenv.Load()
	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and stores
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}

	redisJobStore := store.GetRedisJobStore(serviceContext)
	redisMessageStore := store.GetRedisMessageStore(serviceContext)
	if redisJobStore == nil || redisMessageStore == nil {
		logger.Error("Redis stores are offline, falling back to in-memory stores")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.MessageStore = store.InitMessageStore()
	} else {
		serviceConfig.JobStore = redisJobStore
		serviceConfig.MessageStore = redisMessageStore
	}
	service := job.InitJobService(serviceConfig)

	index := vectorindex.NewMemoryIndex()
	embedder := selectEmbedder(logger)
	llmProvider := selectProvider(serviceContext, logger)

	if embedder == nil || llmProvider == nil {
		logger.Error("One or more backends failed to initialize. Shutting down.",
			"EmbeddingService", embedder != nil, "LLMProvider", llmProvider != nil)
		return
	}

	assembler := prompt.NewAssembler(config.SystemPrompt())
	ragService := rag.NewService(index, embedder, llmProvider, assembler, rag.DefaultCaps())

	handlers.InitJobHandler(service, ragService)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

func selectEmbedder(logger *logger_i.Logger) embedding.Embedder {
	switch config.EmbeddingProvider() {
	case "openai":
		key := config.OpenAIAPIKey()
		if key == "" {
			logger.Error("EMBEDDING_PROVIDER=openai but OPENAI_API_KEY is not set")
			return nil
		}
		return openaiEmbedding.NewEmbedder(key, config.OpenAIEmbeddingModel())
	default:
		return ollamaEmbedding.NewEmbedder(config.BackendBaseURL(), config.EmbeddingModel(), customHttpClient.Pooled())
	}
}

func selectProvider(ctx context.Context, logger *logger_i.Logger) llm.Provider {
	switch config.LLMProvider() {
	case "gemini":
		key := config.GeminiAPIKey()
		if key == "" {
			logger.Error("LLM_PROVIDER=gemini but GEMINI_API_KEY is not set")
			return nil
		}
		return gemini.GetGeminiClient(ctx, key, config.GeminiModel())
	default:
		return ollamaLLM.NewProvider(config.BackendBaseURL(), config.GenerationModel(), customHttpClient.Pooled())
	}
}
