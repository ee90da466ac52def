package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/upb/voice-control-plane/config"
	"github.com/upb/voice-control-plane/services/providers"
)

func testProvidersConfig() config.ProvidersConfig {
	return config.ProvidersConfig{
		Groq: config.GroqConfig{
			APIKey:   "gsk_test",
			STTModel: "whisper-large-v3-turbo",
			LLMModel: "llama-3.3-70b-versatile",
		},
		Whisper: config.WhisperConfig{ServerURL: "http://localhost:8178", BeamSize: 5},
		Ollama:  config.OllamaConfig{Host: "http://localhost:11434", Model: "llama3.2:3b"},
	}
}

func TestNewTranscriber(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tests := []struct {
		name     string
		provider string
		wantTag  string
		wantErr  bool
	}{
		{name: "groq", provider: "groq", wantTag: providers.ProviderGroq},
		{name: "local", provider: "local", wantTag: providers.ProviderLocalWhisper},
		{name: "unknown", provider: "deepgram", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTranscriber(tt.provider, testProvidersConfig(), logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownProvider)
				assert.Contains(t, err.Error(), tt.provider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTag, tr.Name())
		})
	}
}

func TestNewGenerator(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tests := []struct {
		name     string
		provider string
		wantTag  string
		wantErr  bool
	}{
		{name: "groq", provider: "groq", wantTag: providers.ProviderGroq},
		{name: "ollama", provider: "ollama", wantTag: providers.ProviderOllama},
		{name: "unknown", provider: "bedrock", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := NewGenerator(tt.provider, testProvidersConfig(), logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTag, gen.Name())
		})
	}
}

func TestNewFallbackSTTWithCredential(t *testing.T) {
	cfg := &config.Config{
		Providers: testProvidersConfig(),
		Pipeline:  config.PipelineConfig{STTProvider: "groq", LLMProvider: "groq", DefaultMaxTokens: 150},
	}

	stt, err := NewFallbackSTT(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotNil(t, stt)
}

func TestNewFallbackSTTWithoutCredential(t *testing.T) {
	cfg := &config.Config{
		Providers: testProvidersConfig(),
		Pipeline:  config.PipelineConfig{STTProvider: "groq", LLMProvider: "groq", DefaultMaxTokens: 150},
	}
	cfg.Providers.Groq.APIKey = ""

	stt, err := NewFallbackSTT(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotNil(t, stt)
}

func TestNewFallbackLLMUnknownProvider(t *testing.T) {
	cfg := &config.Config{
		Providers: testProvidersConfig(),
		Pipeline:  config.PipelineConfig{STTProvider: "groq", LLMProvider: "openai", DefaultMaxTokens: 150},
	}

	_, err := NewFallbackLLM(cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
