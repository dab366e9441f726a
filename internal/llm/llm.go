// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides the language-model backends used for summaries and
// affiliation extraction. Callers hold a Generator and never branch on which
// variant they were given. Both variants sample deterministically
// (temperature 0).
package llm

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Generator returns one generated text response for a conversation.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// New builds the Generator selected by cfg.Backend. cfg should already have
// its defaults applied.
func New(cfg types.LLMConfig, client *http.Client, logger *zap.Logger) (Generator, error) {
	switch cfg.Backend {
	case types.BackendOpenAI:
		return NewOpenAIBackend(cfg, client, logger), nil
	case types.BackendOllama:
		return NewOllamaBackend(cfg.BaseURL, cfg.Model, client), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
}
