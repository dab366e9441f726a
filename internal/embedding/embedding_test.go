// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/pkg/types"
)

func TestOllamaProvider_EmbedTexts(t *testing.T) {
	var got ollamaEmbedRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiPathEmbed, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"m","embeddings":[[1,0],[0,1]]}`))
	}))
	defer ts.Close()

	p := NewOllamaProvider(ts.URL, "m", ts.Client())
	vecs, err := p.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, []string{"a", "b"}, got.Input)
	assert.Equal(t, "m", p.ModelName())
}

func TestOllamaProvider_CountMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"embeddings":[[1,0]]}`))
	}))
	defer ts.Close()

	p := NewOllamaProvider(ts.URL, "m", ts.Client())
	_, err := p.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "count mismatch")
}

func TestOllamaProvider_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such model", http.StatusNotFound)
	}))
	defer ts.Close()

	p := NewOllamaProvider(ts.URL, "m", ts.Client())
	_, err := p.EmbedTexts(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "status 404")
}

func TestEmbedTexts_EmptyInputMakesNoCall(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("unexpected request")
	}))
	defer ts.Close()

	providers := []Provider{
		NewOllamaProvider(ts.URL, "", ts.Client()),
		NewOpenAIProvider("k", ts.URL, "", ts.Client()),
		NewCohereProvider("k", ts.URL, "", ts.Client()),
	}
	for _, p := range providers {
		vecs, err := p.EmbedTexts(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, vecs)
	}
}

func TestOpenAIProvider_EmbedTexts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// Out of order on purpose.
		w.Write([]byte(`{
		  "object": "list",
		  "model": "text-embedding-3-small",
		  "data": [
		    {"object": "embedding", "index": 1, "embedding": [0, 1]},
		    {"object": "embedding", "index": 0, "embedding": [1, 0]}
		  ],
		  "usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`))
	}))
	defer ts.Close()

	p := NewOpenAIProvider("sk-test", ts.URL+"/v1/", "", ts.Client())
	vecs, err := p.EmbedTexts(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, DefaultOpenAIModel, p.ModelName())
}

func TestCohereProvider_EmbedTexts(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embed"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
		  "id": "e1",
		  "response_type": "embeddings_by_type",
		  "embeddings": {"float": [[0.5, 0.5], [1, 0]]},
		  "texts": ["a", "b"]
		}`))
	}))
	defer ts.Close()

	p := NewCohereProvider("co-test", ts.URL, "", ts.Client())
	vecs, err := p.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 0.5}, {1, 0}}, vecs)
	assert.Equal(t, "search_document", body["input_type"])
	assert.Equal(t, DefaultCohereModel, body["model"])
}

// numbered returns n texts "0", "1", ... so a server can echo each text's
// position back as its vector.
func numbered(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = strconv.Itoa(i)
	}
	return texts
}

func vectorsFor(t *testing.T, texts []string) [][]float64 {
	vecs := make([][]float64, len(texts))
	for i, text := range texts {
		n, err := strconv.Atoi(text)
		require.NoError(t, err)
		vecs[i] = []float64{float64(n), 1}
	}
	return vecs
}

func assertNumbered(t *testing.T, vecs [][]float32, n int) {
	t.Helper()
	require.Len(t, vecs, n)
	for i, v := range vecs {
		require.Equal(t, []float32{float32(i), 1}, v, "vector %d", i)
	}
}

func TestCohereProvider_LargeCorpusIsBatched(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Texts []string `json:"texts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if len(req.Texts) > cohereMaxTexts {
			http.Error(w, `{"message":"too many texts"}`, http.StatusBadRequest)
			return
		}
		mu.Lock()
		sizes = append(sizes, len(req.Texts))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "e1",
			"response_type": "embeddings_by_type",
			"embeddings":    map[string]any{"float": vectorsFor(t, req.Texts)},
			"texts":         req.Texts,
		})
	}))
	defer ts.Close()

	p := NewCohereProvider("co-test", ts.URL, "", ts.Client())
	vecs, err := p.EmbedTexts(context.Background(), numbered(300))
	require.NoError(t, err)
	assertNumbered(t, vecs, 300)
	assert.Equal(t, []int{96, 96, 96, 12}, sizes)
}

func TestOpenAIProvider_LargeCorpusIsBatched(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if len(req.Input) > openAIMaxInputs {
			http.Error(w, `{"error":{"message":"too many inputs"}}`, http.StatusBadRequest)
			return
		}
		mu.Lock()
		sizes = append(sizes, len(req.Input))
		mu.Unlock()

		data := make([]map[string]any, len(req.Input))
		for i, vec := range vectorsFor(t, req.Input) {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": vec}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  DefaultOpenAIModel,
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	defer ts.Close()

	p := NewOpenAIProvider("sk-test", ts.URL+"/v1/", "", ts.Client())
	vecs, err := p.EmbedTexts(context.Background(), numbered(2100))
	require.NoError(t, err)
	assertNumbered(t, vecs, 2100)
	assert.Equal(t, []int{2048, 52}, sizes)
}

func TestBatches(t *testing.T) {
	tests := []struct {
		name     string
		texts    []string
		maxCount int
		maxChars int
		want     [][]string
	}{
		{name: "fits", texts: []string{"a", "b"}, maxCount: 3, want: [][]string{{"a", "b"}}},
		{name: "count", texts: []string{"a", "b", "c"}, maxCount: 2, want: [][]string{{"a", "b"}, {"c"}}},
		{name: "bytes", texts: []string{"aaa", "bb", "c"}, maxCount: 10, maxChars: 4, want: [][]string{{"aaa"}, {"bb", "c"}}},
		{name: "oversized text alone", texts: []string{"aaaaa", "b"}, maxCount: 10, maxChars: 4, want: [][]string{{"aaaaa"}, {"b"}}},
		{name: "empty", texts: nil, maxCount: 2, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, batches(tt.texts, tt.maxCount, tt.maxChars))
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		provider types.EmbeddingProviderName
		want     any
		wantErr  bool
	}{
		{provider: types.EmbeddingOllama, want: &OllamaProvider{}},
		{provider: "", want: &OllamaProvider{}},
		{provider: types.EmbeddingOpenAI, want: &OpenAIProvider{}},
		{provider: types.EmbeddingCohere, want: &CohereProvider{}},
		{provider: "word2vec", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			p, err := New(types.EmbeddingConfig{Provider: tt.provider, APIKey: "k"}, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}
