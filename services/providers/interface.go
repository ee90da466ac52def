// Package providers defines the unified contracts for speech-to-text and
// text-generation backends.
//
// This package provides:
//   - Transcriber and Generator interfaces for STT and LLM backends
//   - Unified result types carrying text, latency and the serving provider
//   - Streaming via per-chunk callbacks
//   - Structured provider errors with cause unwrapping
//
// Each backend adapter implements these interfaces, enabling transparent
// switching and fallback.
package providers

import "context"

// Provider name tags carried in results. The tag always reflects the backend
// that actually served the request, so a caller can tell a cloud response
// from a degraded local one.
const (
	ProviderGroq         = "groq"
	ProviderLocalWhisper = "local-whisper"
	ProviderOllama       = "ollama"
)

// TranscriptionResult is the outcome of one speech-to-text call. It is a
// value type owned by the caller after return.
type TranscriptionResult struct {
	// Text is the transcript, trimmed of surrounding whitespace.
	Text string `json:"text"`

	// LatencyMs is the wall-clock time of the serving backend's execution
	// only. Time spent in a failed attempt before a fallback is not included.
	LatencyMs float64 `json:"latency_ms"`

	// Provider identifies the backend that produced the text.
	Provider string `json:"provider"`

	// Confidence is the backend's recognition confidence, when reported.
	Confidence *float64 `json:"confidence,omitempty"`
}

// GenerationResult is the outcome of one text-generation call.
type GenerationResult struct {
	Text      string  `json:"text"`
	LatencyMs float64 `json:"latency_ms"`
	Provider  string  `json:"provider"`

	// TokensUsed is set only when the serving backend reports usage counts.
	TokensUsed *int `json:"tokens_used,omitempty"`
}

// GenerateRequest carries one generation call's inputs.
type GenerateRequest struct {
	// Prompt is the user message. It is forwarded as-is; an empty prompt is
	// the backend's problem to reject, not this layer's.
	Prompt string

	// System is an optional system instruction prepended to the message list.
	System string

	// MaxTokens is the completion token budget. Zero means the configured
	// default.
	MaxTokens int
}

// Transcriber converts a complete audio payload (a decodable single-channel
// WAV at a rate the backend accepts) into text.
type Transcriber interface {
	// Name returns the provider tag (e.g. "groq", "local-whisper").
	Name() string

	// Transcribe converts audio bytes to a transcription result.
	Transcribe(ctx context.Context, audio []byte) (*TranscriptionResult, error)
}

// StreamFunc receives one content chunk of a streaming generation. Returning
// an error aborts the stream and is surfaced by Stream.
type StreamFunc func(chunk string) error

// Generator produces text completions from a prompt plus optional system
// instruction.
type Generator interface {
	// Name returns the provider tag (e.g. "groq", "ollama").
	Name() string

	// Generate produces a single completion.
	Generate(ctx context.Context, req GenerateRequest) (*GenerationResult, error)

	// Stream produces a completion incrementally, invoking fn once per
	// content chunk until the backend signals end-of-response. The stream is
	// finite and not restartable.
	Stream(ctx context.Context, req GenerateRequest, fn StreamFunc) error
}
