// Package pipeline orchestrates one conversational turn through the
// speech-to-text and generation stages, recording per-stage latency.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/voice-control-plane/internal/observability"
	"github.com/upb/voice-control-plane/services/fallback"
	"github.com/upb/voice-control-plane/services/providers"
)

// DefaultSystemPrompt keeps replies short enough to speak aloud.
const DefaultSystemPrompt = "You are a helpful voice assistant. " +
	"Be concise and clear - this is voice, not text. " +
	"Keep responses under 2-3 sentences when possible. " +
	"If you don't know something, say so honestly."

// Stage names recorded in the latency tracker.
const (
	StageSTT = "stt"
	StageLLM = "llm"
)

// TurnOptions controls provider selection for one turn.
type TurnOptions struct {
	// UseLocal forces both stages onto the local backends.
	UseLocal bool

	// System overrides the default system prompt.
	System string

	// MaxTokens overrides the configured completion budget. Zero means the
	// default.
	MaxTokens int
}

// TurnResult is the outcome of one audio-in, reply-out turn.
type TurnResult struct {
	TurnID       uuid.UUID `json:"turn_id"`
	Transcript   string    `json:"transcript"`
	Reply        string    `json:"reply"`
	STTProvider  string    `json:"stt_provider"`
	LLMProvider  string    `json:"llm_provider"`
	STTLatencyMs float64   `json:"stt_latency_ms"`
	LLMLatencyMs float64   `json:"llm_latency_ms"`
	TotalMs      float64   `json:"total_ms"`
}

// Service runs the voice turn pipeline over the fallback components.
type Service struct {
	stt     *fallback.STT
	llm     *fallback.LLM
	tracker *observability.LatencyTracker
	logger  *zap.Logger
}

// NewService creates a pipeline service.
func NewService(stt *fallback.STT, llm *fallback.LLM, tracker *observability.LatencyTracker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{stt: stt, llm: llm, tracker: tracker, logger: logger}
}

// Tracker exposes the latency tracker for the observability surface.
func (s *Service) Tracker() *observability.LatencyTracker {
	return s.tracker
}

// Transcribe runs the STT stage under latency tracking.
func (s *Service) Transcribe(ctx context.Context, audio []byte, opts TurnOptions) (*providers.TranscriptionResult, error) {
	defer s.tracker.Measure(StageSTT)()
	return s.stt.Transcribe(ctx, audio, fallback.TranscribeOptions{UseLocal: opts.UseLocal})
}

// Generate runs the LLM stage under latency tracking.
func (s *Service) Generate(ctx context.Context, prompt string, opts TurnOptions) (*providers.GenerationResult, error) {
	defer s.tracker.Measure(StageLLM)()
	return s.llm.Generate(ctx, providers.GenerateRequest{
		Prompt:    prompt,
		System:    systemPrompt(opts),
		MaxTokens: opts.MaxTokens,
	}, fallback.GenerateOptions{UseLocal: opts.UseLocal})
}

// Stream runs the LLM stage in streaming mode under latency tracking.
func (s *Service) Stream(ctx context.Context, prompt string, opts TurnOptions, fn providers.StreamFunc) error {
	defer s.tracker.Measure(StageLLM)()
	return s.llm.Stream(ctx, providers.GenerateRequest{
		Prompt:    prompt,
		System:    systemPrompt(opts),
		MaxTokens: opts.MaxTokens,
	}, fallback.GenerateOptions{UseLocal: opts.UseLocal}, fn)
}

// Turn runs a complete audio-in, reply-out turn: transcription, then
// generation on the transcript. Each stage is independently tracked; the
// per-stage latencies in the result are the serving backend's own numbers.
func (s *Service) Turn(ctx context.Context, audio []byte, opts TurnOptions) (*TurnResult, error) {
	turnID := uuid.New()
	start := time.Now()

	s.logger.Info("starting voice turn",
		zap.String("turn_id", turnID.String()),
		zap.Int("audio_bytes", len(audio)),
		zap.Bool("use_local", opts.UseLocal))

	transcription, err := s.Transcribe(ctx, audio, opts)
	if err != nil {
		s.logger.Error("transcription stage failed",
			zap.String("turn_id", turnID.String()),
			zap.Error(err))
		return nil, err
	}

	generation, err := s.Generate(ctx, transcription.Text, opts)
	if err != nil {
		s.logger.Error("generation stage failed",
			zap.String("turn_id", turnID.String()),
			zap.Error(err))
		return nil, err
	}

	result := &TurnResult{
		TurnID:       turnID,
		Transcript:   transcription.Text,
		Reply:        generation.Text,
		STTProvider:  transcription.Provider,
		LLMProvider:  generation.Provider,
		STTLatencyMs: transcription.LatencyMs,
		LLMLatencyMs: generation.LatencyMs,
		TotalMs:      float64(time.Since(start).Microseconds()) / 1000.0,
	}

	s.logger.Info("voice turn completed",
		zap.String("turn_id", turnID.String()),
		zap.String("stt_provider", result.STTProvider),
		zap.String("llm_provider", result.LLMProvider),
		zap.Float64("total_ms", result.TotalMs))

	return result, nil
}

func systemPrompt(opts TurnOptions) string {
	if opts.System != "" {
		return opts.System
	}
	return DefaultSystemPrompt
}
