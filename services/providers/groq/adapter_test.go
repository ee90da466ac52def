package groq

import (
	"context"
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

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	return New(config.GroqConfig{
		APIKey:   "gsk_test",
		BaseURL:  baseURL,
		STTModel: "whisper-large-v3-turbo",
		LLMModel: "llama-3.3-70b-versatile",
	}, zaptest.NewLogger(t))
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "hello from the cloud")
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	result, err := adapter.Transcribe(context.Background(), []byte("RIFF...fake wav"))
	require.NoError(t, err)

	assert.Equal(t, "hello from the cloud", result.Text)
	assert.Equal(t, providers.ProviderGroq, result.Provider)
	assert.Greater(t, result.LatencyMs, 0.0)
	assert.Nil(t, result.Confidence)
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	_, err := adapter.Transcribe(context.Background(), []byte("audio"))
	require.Error(t, err)

	var provErr *providers.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, providers.ProviderGroq, provErr.Provider)
	assert.Equal(t, "transcribe", provErr.Op)
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hi there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
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

	assert.Equal(t, "hi there", result.Text)
	assert.Equal(t, providers.ProviderGroq, result.Provider)
	require.NotNil(t, result.TokensUsed)
	assert.Equal(t, 20, *result.TokensUsed)
	assert.Greater(t, result.LatencyMs, 0.0)
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "chatcmpl-1", "choices": []}`)
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	_, err := adapter.Generate(context.Background(), providers.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{"Hel", "lo"}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"%s\"}}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
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

func TestStreamOpenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	err := adapter.Stream(context.Background(), providers.GenerateRequest{Prompt: "hi"}, func(string) error {
		t.Fatal("callback must not run when the stream never opens")
		return nil
	})
	require.Error(t, err)
}

func TestClientBuiltOnce(t *testing.T) {
	adapter := newTestAdapter(t, "http://localhost:0")
	first := adapter.getClient()
	second := adapter.getClient()
	assert.Same(t, first, second)
}
