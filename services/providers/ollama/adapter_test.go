package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/upb/voice-control-plane/config"
	"github.com/upb/voice-control-plane/services/providers"
)

func newTestAdapter(t *testing.T, host string) *Adapter {
	return New(config.OllamaConfig{Host: host, Model: "llama3.2:3b"}, zaptest.NewLogger(t))
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2:3b", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, 150, req.Options["num_predict"])
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"message": {"role": "assistant", "content": "local says hi"},
			"done": true,
			"prompt_eval_count": 15,
			"eval_count": 10
		}`)
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	result, err := adapter.Generate(context.Background(), providers.GenerateRequest{
		Prompt:    "say hi",
		System:    "be brief",
		MaxTokens: 150,
	})
	require.NoError(t, err)

	assert.Equal(t, "local says hi", result.Text)
	assert.Equal(t, providers.ProviderOllama, result.Provider)
	require.NotNil(t, result.TokensUsed)
	assert.Equal(t, 25, *result.TokensUsed)
	assert.Greater(t, result.LatencyMs, 0.0)
}

func TestGenerateNoUsageReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message": {"role": "assistant", "content": "hi"}, "done": true}`)
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	result, err := adapter.Generate(context.Background(), providers.GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Nil(t, result.TokensUsed)
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	_, err := adapter.Generate(context.Background(), providers.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)

	var provErr *providers.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, providers.ProviderOllama, provErr.Provider)
	assert.Equal(t, http.StatusNotFound, provErr.StatusCode)
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"message": {"role": "assistant", "content": "Hel"}, "done": false}`)
		fmt.Fprintln(w, `{"message": {"role": "assistant", "content": "lo"}, "done": false}`)
		fmt.Fprintln(w, `{"message": {"role": "assistant", "content": ""}, "done": true}`)
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)

	var got string
	err := adapter.Stream(context.Background(), providers.GenerateRequest{Prompt: "hi"}, func(chunk string) error {
		got += chunk
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", got)
}

func TestStreamCallbackErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message": {"role": "assistant", "content": "chunk"}, "done": false}`)
		fmt.Fprintln(w, `{"message": {"role": "assistant", "content": "never"}, "done": true}`)
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	sentinel := fmt.Errorf("caller gave up")
	err := adapter.Stream(context.Background(), providers.GenerateRequest{Prompt: "hi"}, func(string) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestUnreachableHost(t *testing.T) {
	adapter := newTestAdapter(t, "http://127.0.0.1:1")
	_, err := adapter.Generate(context.Background(), providers.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
}
