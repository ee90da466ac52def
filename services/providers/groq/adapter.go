// Package groq implements the remote STT and LLM backends against Groq's
// OpenAI-compatible API.
package groq

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/upb/voice-control-plane/config"
	"github.com/upb/voice-control-plane/services/providers"
)

const defaultTemperature = 0.7

// Adapter serves both transcription and generation through one Groq API
// client. The client is built lazily on first use and cached for the
// adapter's lifetime.
type Adapter struct {
	cfg    config.GroqConfig
	logger *zap.Logger

	clientOnce sync.Once
	client     *openai.Client
}

// Compile-time interface assertions.
var (
	_ providers.Transcriber = (*Adapter)(nil)
	_ providers.Generator   = (*Adapter)(nil)
)

// New creates a Groq adapter. No network traffic happens until the first
// call.
func New(cfg config.GroqConfig, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{cfg: cfg, logger: logger}
}

// Name returns the provider tag.
func (a *Adapter) Name() string {
	return providers.ProviderGroq
}

func (a *Adapter) getClient() *openai.Client {
	a.clientOnce.Do(func() {
		clientCfg := openai.DefaultConfig(a.cfg.APIKey)
		if a.cfg.BaseURL != "" {
			clientCfg.BaseURL = a.cfg.BaseURL
		}
		a.client = openai.NewClientWithConfig(clientCfg)
	})
	return a.client
}

// Transcribe sends the audio payload to the Groq Whisper endpoint.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) (*providers.TranscriptionResult, error) {
	start := time.Now()

	resp, err := a.getClient().CreateTranscription(ctx, openai.AudioRequest{
		Model:    a.cfg.STTModel,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatText,
	})

	latency := msSince(start)
	a.logger.Debug("groq stt latency",
		zap.Float64("latency_ms", latency),
		zap.Bool("ok", err == nil))

	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "transcribe", "transcription request failed", 0, err)
	}

	return &providers.TranscriptionResult{
		Text:      resp.Text,
		LatencyMs: latency,
		Provider:  a.Name(),
	}, nil
}

// Generate produces a single chat completion.
func (a *Adapter) Generate(ctx context.Context, req providers.GenerateRequest) (*providers.GenerationResult, error) {
	start := time.Now()

	resp, err := a.getClient().CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.cfg.LLMModel,
		Messages:    buildMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: defaultTemperature,
	})

	latency := msSince(start)
	a.logger.Debug("groq llm latency",
		zap.Float64("latency_ms", latency),
		zap.Bool("ok", err == nil))

	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "chat", "chat completion failed", 0, err)
	}
	if len(resp.Choices) == 0 {
		return nil, providers.NewProviderError(a.Name(), "chat", "empty choices in response", 0, nil)
	}

	result := &providers.GenerationResult{
		Text:      resp.Choices[0].Message.Content,
		LatencyMs: latency,
		Provider:  a.Name(),
	}
	if resp.Usage.TotalTokens > 0 {
		tokens := resp.Usage.TotalTokens
		result.TokensUsed = &tokens
	}
	return result, nil
}

// Stream produces a completion incrementally, invoking fn once per content
// delta until the server closes the stream.
func (a *Adapter) Stream(ctx context.Context, req providers.GenerateRequest, fn providers.StreamFunc) error {
	stream, err := a.getClient().CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       a.cfg.LLMModel,
		Messages:    buildMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: defaultTemperature,
		Stream:      true,
	})
	if err != nil {
		return providers.NewProviderError(a.Name(), "stream", "failed to open stream", 0, err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return providers.NewProviderError(a.Name(), "stream", "stream receive failed", 0, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			if err := fn(content); err != nil {
				return err
			}
		}
	}
}

func buildMessages(req providers.GenerateRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})
	return messages
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
