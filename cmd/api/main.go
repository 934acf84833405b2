// @title           Document Q&A API
// @version         1.0
// @description     This API handles asynchronous document-grounded question answering
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/data/store"
	jobmodel "github.com/akolanti/DocGuard/internal/domain/jobModel"
	"github.com/akolanti/DocGuard/internal/handlers"
	"github.com/akolanti/DocGuard/internal/job"
	"github.com/akolanti/DocGuard/internal/rag"
	"github.com/akolanti/DocGuard/internal/rag/embedding"
	"github.com/akolanti/DocGuard/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/DocGuard/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/DocGuard/internal/rag/guard"
	"github.com/akolanti/DocGuard/internal/rag/ingest"
	"github.com/akolanti/DocGuard/internal/rag/llm"
	"github.com/akolanti/DocGuard/internal/rag/llm/gemini"
	"github.com/akolanti/DocGuard/internal/rag/llm/openaiLLM"
	"github.com/akolanti/DocGuard/internal/rag/registry"
	"github.com/akolanti/DocGuard/internal/rag/retriever"
	"github.com/akolanti/DocGuard/internal/rag/vectorDB"
	"github.com/akolanti/DocGuard/internal/rag/vectorDB/localDB"
	"github.com/akolanti/DocGuard/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/DocGuard/internal/server"
	"github.com/akolanti/DocGuard/internal/worker"
	"github.com/akolanti/DocGuard/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

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

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          store.GetRedisJobStore(serviceContext),
		HistoryStore:      store.GetRedisHistoryStore(serviceContext),
	}
	logger.Info("Starting job service")

	if serviceConfig.JobStore == nil || serviceConfig.HistoryStore == nil {
		logger.Error("Redis stores are offline")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.HistoryStore = store.InitHistoryStore()
	}
	service := job.InitJobService(serviceConfig)

	if err := os.MkdirAll(config.DataDirName, 0750); err != nil {
		logger.Error("Could not create data directory", "err", err)
		return
	}

	reg, err := registry.Open(filepath.Join(config.DataDirName, config.RegistryFileName))
	if err != nil {
		logger.Error("Could not open document registry", "err", err)
		return
	}

	vectorStore := openVectorStore(serviceContext, logger)
	embedProvider := openEmbeddingProvider(serviceContext)
	llmProvider := openLLMProvider(serviceContext)

	if vectorStore == nil || embedProvider == nil || llmProvider == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "VectorStore", vectorStore != nil, "EmbeddingProvider", embedProvider != nil, "LLMProvider", llmProvider != nil)
		return
	}

	embedder := embedding.NewCachedEmbedder(embedProvider)
	ragService := rag.NewService(
		retriever.New(vectorStore, embedder, retriever.DefaultOptions()),
		guard.New(guard.DefaultOptions()),
		llmProvider,
		ingest.New(reg, vectorStore, embedder),
		vectorStore,
		reg,
	)

	handlers.InitJobHandler(service)
	handlers.InitStatsHandler(ragService)

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

// openVectorStore prefers the configured qdrant backend and falls back to the
// local flat-file store so the service stays usable without a qdrant process.
func openVectorStore(ctx context.Context, logger *logger_i.Logger) vectorDB.Store {
	if config.VectorBackend == "qdrant" {
		if s := qdrantDB.GetQdrantClient(ctx); s != nil {
			return s
		}
		logger.Error("Qdrant is unavailable, falling back to the local vector store")
	}
	s, err := localDB.Open(filepath.Join(config.DataDirName, config.LocalStoreFile))
	if err != nil {
		logger.Error("Could not open local vector store", "err", err)
		return nil
	}
	return s
}

func openEmbeddingProvider(ctx context.Context) embedding.Provider {
	if config.EmbeddingProvider == "gemini" {
		return googleEmbedding.GetGoogleEmbeddingClient(ctx, config.GeminiEmbeddingModel, os.Getenv("GEMINI_API_KEY"))
	}
	return openaiEmbedding.GetOpenAIEmbeddingClient(ctx, config.OpenAIEmbeddingModel, os.Getenv("OPENAI_API_KEY"))
}

func openLLMProvider(ctx context.Context) llm.Provider {
	if config.LLMProvider == "gemini" {
		return gemini.GetGeminiClient(ctx, config.GeminiModelName, os.Getenv("GEMINI_API_KEY"))
	}
	return openaiLLM.GetOpenAIClient(ctx, config.OpenAIModelName, os.Getenv("OPENAI_API_KEY"))
}
