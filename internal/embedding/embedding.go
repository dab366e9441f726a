// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedding provides text embedding backends for the reranker.
// Every provider returns one vector per input text, in input order.
package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Provider turns texts into embedding vectors.
type Provider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// New builds the Provider selected by cfg.Provider.
func New(cfg types.EmbeddingConfig, client *http.Client) (Provider, error) {
	switch cfg.Provider {
	case types.EmbeddingOllama, "":
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, client), nil
	case types.EmbeddingOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, client), nil
	case types.EmbeddingCohere:
		return NewCohereProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, client), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func checkCount(got, want int) error {
	if got != want {
		return fmt.Errorf("embedding count mismatch: got %d vectors for %d texts", got, want)
	}
	return nil
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

// batches splits texts into consecutive runs of at most maxCount texts and,
// when maxChars > 0, at most maxChars bytes. A single oversized text gets a
// batch of its own.
func batches(texts []string, maxCount, maxChars int) [][]string {
	var out [][]string
	start, size := 0, 0
	for i, t := range texts {
		full := i-start >= maxCount
		over := maxChars > 0 && i > start && size+len(t) > maxChars
		if full || over {
			out = append(out, texts[start:i])
			start, size = i, 0
		}
		size += len(t)
	}
	if start < len(texts) {
		out = append(out, texts[start:])
	}
	return out
}

// embedBatched embeds texts batch by batch with embed and concatenates the
// results in input order. Each batch must return one vector per text.
func embedBatched(ctx context.Context, texts []string, maxCount, maxChars int,
	embed func(context.Context, []string) ([][]float32, error)) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, maxCount, maxChars) {
		vecs, err := embed(ctx, batch)
		if err != nil {
			return nil, err
		}
		if err := checkCount(len(vecs), len(batch)); err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}
