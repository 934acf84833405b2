package googleEmbedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/rag/embedding"
	"github.com/akolanti/DocGuard/pkg/logger_i"
	"google.golang.org/genai"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client
var dimension = int32(config.EmbeddingDimension)

type client struct {
	genAi *genai.Client
	model string
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		logger.Error("Error creating Google Embedding client:", err)
	}
	if c != nil {
		embeddingClient = &client{
			genAi: c,
			model: modelName,
		}
		logger.Debug("Google Embedding model name: " + modelName)
		logger.Info("Google Embedding client created")
		go closeClient(ctx, embeddingClient)
	}
}

func closeClient(ctx context.Context, embeddingClient *client) {
	<-ctx.Done()
	logger.Info("Closing Google Embedding client")
	embeddingClient.genAi = nil
	embeddingClient.model = ""
}

func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string) embedding.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, modelName, apikey)
	})

	//if init still fails
	if embeddingClient == nil {
		return nil
	}
	return &client{genAi: embeddingClient.genAi, model: embeddingClient.model}
}

func (c *client) Model() string {
	return c.model
}

func (c *client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []int, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	result, err := c.genAi.Models.EmbedContent(ctx, c.model, getContent(texts),
		&genai.EmbedContentConfig{OutputDimensionality: &dimension, TaskType: "RETRIEVAL_DOCUMENT"})
	if err != nil {
		if isRateLimited(err) {
			log.Warn("Rate limit hit! ", "error", err)
			return nil, nil, fmt.Errorf("google embeddings: %w: %w", embedding.ErrTransient, err)
		}
		log.Error("Error getting Embeddings from Google", "error", err.Error())
		return nil, nil, err
	}

	out := make([][]float32, 0, len(result.Embeddings))
	tokenCounts := make([]int, 0, len(result.Embeddings))
	for i, r := range result.Embeddings {
		out = append(out, r.Values)
		// statistics are not always populated; fall back to a chars/4 estimate
		count := len(texts[i]) / 4
		if r.Statistics != nil {
			count = int(r.Statistics.TokenCount)
		}
		tokenCounts = append(tokenCounts, count)
	}
	return out, tokenCounts, nil
}
