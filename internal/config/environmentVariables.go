package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	NoAuthBypass = true //local dev only - set false and provide AuthToken for deployments
	AuthToken    = ""

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//chunker - sizes match the ingestion pipeline the index was tuned on
	ChunkSize    = 500
	ChunkOverlap = 50
	MinChunkSize = 100

	//embeddings
	EmbeddingProvider            = "openai" //or "gemini"
	OpenAIEmbeddingModel         = "text-embedding-3-small"
	GeminiEmbeddingModel         = "gemini-embedding-001"
	EmbeddingDimension     int32 = 1536
	EmbeddingBatchSize           = 100
	EmbeddingMaxChars            = 8000 //deterministic truncation point, keeps cache keys stable
	EmbeddingMaxRetries          = 3
	EmbeddingRetryBaseWait       = 2 * time.Second
	EmbeddingCallTimeout         = 60 * time.Second

	//retrieval
	TopKResults      = 8
	VectorSearchK    = 24 //candidate pool handed to the lexical scorer before the merge
	VectorWeight     = 0.6
	LexicalWeight    = 0.4
	BM25K1           = 1.5
	BM25B            = 0.75
	TitleBoostFactor = 0.25

	//guard thresholds - empirically tuned, treat as configuration not derived values
	GuardMinCombinedScore = 0.25
	GuardMinKeywordHits   = 1

	//llm
	LLMProvider          = "openai" //or "gemini"
	OpenAIModelName      = "gpt-4o"
	GeminiModelName      = "gemini-2.5-flash-lite-preview-09-2025"
	ModelTemperature     = 0.0
	ModelMaxTokens       = 3000
	CompletionTimeout    = 90 * time.Second
	ProcessTimeout       = 30 * time.Second
	IngestProcessTimeout = 10 * time.Minute

	SystemPrompt = "You are a technical assistant for a construction project. " +
		"You may ONLY use information from the provided document excerpts. " +
		"If the information is not in the excerpts, respond exactly: \"This information was not found in the uploaded documents.\" " +
		"Do NOT use external knowledge or make assumptions. " +
		"Always cite the source document and page for every statement, in the form [Source: <document> | Page <n>]. " +
		"Never state or imply that something complies with a standard unless the excerpts say so explicitly. " +
		"Be precise and technical. Answer in {{LANGUAGE}}."

	//vectorDB
	VectorBackend           = "local" //"qdrant" when a qdrant process is available
	CollectionName          = "project-documents"
	QdrantConnectionTimeout = 30 * time.Second
	QdrantHost              = ""
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false
	QdrantPoolSize          = 1

	//local fallback store + registry files
	DataDirName      = "index_data"
	LocalStoreFile   = "vectors.json"
	RegistryFileName = "registry.json"

	//ingest upload staging
	UploadDirName = "temporary_data"
	MaxUploadSize = 32 << 20

	//redis
	redisHost     = "127.0.0.1"
	redisPort     = "6379"
	RedisAddr     = redisHost + ":" + redisPort
	RedisPassword = ""

	RedisJobStore     = 0
	RedisHistoryStore = 1

	RedisJobStoreTTL     = 24 * time.Hour
	RedisHistoryStoreTTL = 7 * 24 * time.Hour

	//query history - most recent entries returned per project
	HistoryWindow int64 = 20
)
