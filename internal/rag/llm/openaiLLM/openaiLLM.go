package openaiLLM

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/rag/llm"
	"github.com/akolanti/DocGuard/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	client    openai.Client
	modelName string
}

var logger *logger_i.Logger
var openaiClient *llmClient
var once sync.Once

func GetOpenAIClient(ctx context.Context, modelName string, apikey string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_openai")
		if apikey == "" {
			logger.Error("OpenAI API key missing, LLM client not created")
			return
		}
		openaiClient = &llmClient{
			client:    openai.NewClient(option.WithAPIKey(apikey)),
			modelName: modelName,
		}
		logger.Debug("OpenAI ", modelName, " client created")
		logger.Info("OpenAI client created")
	})

	if openaiClient == nil {
		return nil
	}
	return openaiClient
}

func (c *llmClient) Complete(ctx context.Context, systemPrompt string, evidence string, question string) (string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	userPrompt := fmt.Sprintf("Context:\n%s\n\nUser Question: %s", evidence, question)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(config.ModelTemperature),
		MaxTokens:   openai.Int(int64(config.ModelMaxTokens)),
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) && apierr.StatusCode == 429 {
			log.Warn("Rate limit hit! ", "error", err)
		} else {
			log.Error("Error generating completion with OpenAI", "error", err)
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
