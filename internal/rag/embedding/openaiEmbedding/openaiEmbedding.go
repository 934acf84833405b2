package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/rag/embedding"
	"github.com/akolanti/DocGuard/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

type client struct {
	oa    openai.Client
	model string
}

func GetOpenAIEmbeddingClient(ctx context.Context, modelName string, apikey string) embedding.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_embedding")
		if apikey == "" {
			logger.Error("OpenAI API key missing, embedding client not created")
			return
		}
		embeddingClient = &client{
			oa:    openai.NewClient(option.WithAPIKey(apikey)),
			model: modelName,
		}
		logger.Debug("OpenAI Embedding model name: " + modelName)
		logger.Info("OpenAI Embedding client created")
	})

	//if init failed
	if embeddingClient == nil {
		return nil
	}
	return embeddingClient
}

func (c *client) Model() string {
	return c.model
}

func (c *client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []int, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	resp, err := c.oa.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(config.EmbeddingDimension)),
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			switch {
			case apierr.StatusCode == 429:
				log.Warn("Rate limit hit! ", "error", err)
				return nil, nil, fmt.Errorf("openai embeddings: %w: %w", embedding.ErrTransient, err)
			case apierr.StatusCode >= 500:
				log.Warn("OpenAI backend unavailable", "error", err)
				return nil, nil, fmt.Errorf("openai embeddings: %w: %w", embedding.ErrTransient, err)
			}
		}
		log.Error("Error getting Embeddings from OpenAI", "error", err.Error())
		return nil, nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, apportionTokens(int(resp.Usage.PromptTokens), texts), nil
}

// apportionTokens spreads the request-level usage the API reports across the
// batch, weighted by text length. The per-text counts are estimates but their
// sum matches what was billed.
func apportionTokens(total int, texts []string) []int {
	counts := make([]int, len(texts))
	chars := 0
	for _, t := range texts {
		chars += len(t)
	}
	if chars == 0 {
		return counts
	}
	assigned := 0
	for i, t := range texts {
		counts[i] = total * len(t) / chars
		assigned += counts[i]
	}
	// rounding remainder lands on the last text
	counts[len(counts)-1] += total - assigned
	return counts
}
