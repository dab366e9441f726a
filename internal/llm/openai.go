// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// OpenAIBackend calls an OpenAI-compatible chat completions API. It retries
// failed calls itself, a fixed number of times with a fixed delay, and
// surfaces the last error after exhaustion.
type OpenAIBackend struct {
	client     openai.Client
	model      string
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewOpenAIBackend builds a hosted backend. The SDK's own retries are
// disabled so that the retry policy lives in one place.
func NewOpenAIBackend(cfg types.LLMConfig, httpClient *http.Client, logger *zap.Logger) *OpenAIBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &OpenAIBackend{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		maxRetries: maxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

// Generate sends the conversation and returns the first choice's content.
func (b *OpenAIBackend) Generate(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(b.model),
		Messages:    toOpenAIMessages(messages),
		Temperature: openai.Float(0),
	}

	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(b.retryDelay):
			}
		}

		resp, err := b.client.Chat.Completions.New(ctx, params)
		if err == nil {
			if len(resp.Choices) == 0 {
				err = fmt.Errorf("chat completion returned no choices")
			} else {
				return resp.Choices[0].Message.Content, nil
			}
		}
		lastErr = err
		b.logger.Error("chat completion attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", b.maxRetries),
			zap.Error(err),
		)
	}
	return "", fmt.Errorf("after %d attempts: %w", b.maxRetries, lastErr)
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
