// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/pkg/types"
)

const completionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [
    {"index": 0, "message": {"role": "assistant", "content": "A short summary."}, "finish_reason": "stop"}
  ]
}`

func TestOllamaBackend_Generate(t *testing.T) {
	var got ollamaChatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ollamaChatPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":{"role":"assistant","content":"hello there"},"done":true}`))
	}))
	defer ts.Close()

	b := NewOllamaBackend(ts.URL+"/", "tiny", ts.Client())
	out, err := b.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	assert.Equal(t, "tiny", got.Model)
	assert.False(t, got.Stream)
	assert.Zero(t, got.Options.Temperature)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
}

func TestOllamaBackend_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer ts.Close()

	b := NewOllamaBackend(ts.URL, "", ts.Client())
	_, err := b.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestNewOllamaBackend_Defaults(t *testing.T) {
	b := NewOllamaBackend("", "", nil)
	assert.Equal(t, DefaultOllamaURL, b.baseURL)
	assert.Equal(t, DefaultOllamaModel, b.model)
	require.NotNil(t, b.client)
	assert.Equal(t, DefaultOllamaTimeout, b.client.Timeout)
}

func openAITestConfig(url string) types.LLMConfig {
	return types.LLMConfig{
		Backend:    types.BackendOpenAI,
		APIKey:     "sk-test",
		BaseURL:    url + "/v1/",
		Model:      "gpt-4o",
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}
}

func TestOpenAIBackend_Generate(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionJSON))
	}))
	defer ts.Close()

	b := NewOpenAIBackend(openAITestConfig(ts.URL), ts.Client(), nil)
	out, err := b.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "user"},
	})
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", out)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.EqualValues(t, 0, body["temperature"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestOpenAIBackend_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionJSON))
	}))
	defer ts.Close()

	b := NewOpenAIBackend(openAITestConfig(ts.URL), ts.Client(), nil)
	out, err := b.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestOpenAIBackend_ExhaustsRetries(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer ts.Close()

	b := NewOpenAIBackend(openAITestConfig(ts.URL), ts.Client(), nil)
	_, err := b.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNew(t *testing.T) {
	g, err := New(types.LLMConfig{Backend: types.BackendOllama}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &OllamaBackend{}, g)

	g, err = New(types.LLMConfig{Backend: types.BackendOpenAI, APIKey: "k", Model: "gpt-4o"}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIBackend{}, g)

	_, err = New(types.LLMConfig{Backend: "claude"}, nil, nil)
	assert.ErrorContains(t, err, "unknown llm backend")
}
