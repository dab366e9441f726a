// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	cohereoption "github.com/cohere-ai/cohere-go/v2/option"
)

// DefaultCohereModel is the default Cohere embedding model.
const DefaultCohereModel = "embed-english-v3.0"

// cohereMaxTexts is the Embed API's per-request text limit.
const cohereMaxTexts = 96

// CohereProvider embeds texts with the Cohere v2 Embed API.
type CohereProvider struct {
	client *cohereclient.Client
	model  string
}

// NewCohereProvider creates a provider. Empty baseURL uses the SDK default.
func NewCohereProvider(apiKey, baseURL, model string, httpClient *http.Client) *CohereProvider {
	if model == "" {
		model = DefaultCohereModel
	}
	opts := []cohereoption.RequestOption{cohereoption.WithToken(apiKey)}
	if baseURL != "" {
		opts = append(opts, cohereoption.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, cohereoption.WithHTTPClient(httpClient))
	}
	return &CohereProvider{client: cohereclient.NewClient(opts...), model: model}
}

// EmbedTexts embeds texts as search documents with float output, in
// requests of at most cohereMaxTexts texts.
func (p *CohereProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return embedBatched(ctx, texts, cohereMaxTexts, 0, p.embed)
}

func (p *CohereProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Texts:          texts,
		Model:          p.model,
		InputType:      cohere.EmbedInputTypeSearchDocument,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, fmt.Errorf("cohere embed: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}
	if err := checkCount(len(resp.Embeddings.Float), len(texts)); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, vec := range resp.Embeddings.Float {
		out[i] = toFloat32(vec)
	}
	return out, nil
}

// ModelName returns the name of the embedding model.
func (p *CohereProvider) ModelName() string {
	return p.model
}
