package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/upb/voice-control-plane/internal/observability"
	"github.com/upb/voice-control-plane/services/fallback"
	"github.com/upb/voice-control-plane/services/providers"
)

type fakeTranscriber struct {
	name string
	text string
	err  error
}

func (f *fakeTranscriber) Name() string { return f.name }

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte) (*providers.TranscriptionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &providers.TranscriptionResult{Text: f.text, LatencyMs: 12.0, Provider: f.name}, nil
}

type fakeGenerator struct {
	name     string
	reply    string
	err      error
	lastSeen providers.GenerateRequest
}

func (f *fakeGenerator) Name() string { return f.name }

func (f *fakeGenerator) Generate(ctx context.Context, req providers.GenerateRequest) (*providers.GenerationResult, error) {
	f.lastSeen = req
	if f.err != nil {
		return nil, f.err
	}
	return &providers.GenerationResult{Text: f.reply, LatencyMs: 34.0, Provider: f.name}, nil
}

func (f *fakeGenerator) Stream(ctx context.Context, req providers.GenerateRequest, fn providers.StreamFunc) error {
	f.lastSeen = req
	if f.err != nil {
		return f.err
	}
	return fn(f.reply)
}

func newTestService(t *testing.T, stt providers.Transcriber, llm providers.Generator) *Service {
	logger := zaptest.NewLogger(t)
	return NewService(
		fallback.NewSTT(nil, stt, logger),
		fallback.NewLLM(nil, llm, 150, logger),
		observability.NewLatencyTracker(logger),
		logger,
	)
}

func TestTurn(t *testing.T) {
	stt := &fakeTranscriber{name: providers.ProviderLocalWhisper, text: "what time is it"}
	llm := &fakeGenerator{name: providers.ProviderOllama, reply: "It is noon."}
	svc := newTestService(t, stt, llm)

	result, err := svc.Turn(context.Background(), []byte("audio"), TurnOptions{})
	require.NoError(t, err)

	assert.Equal(t, "what time is it", result.Transcript)
	assert.Equal(t, "It is noon.", result.Reply)
	assert.Equal(t, providers.ProviderLocalWhisper, result.STTProvider)
	assert.Equal(t, providers.ProviderOllama, result.LLMProvider)
	assert.Greater(t, result.TotalMs, 0.0)
	assert.NotEqual(t, result.TurnID.String(), "00000000-0000-0000-0000-000000000000")

	// The transcript feeds the generation stage with the default system
	// prompt attached.
	assert.Equal(t, "what time is it", llm.lastSeen.Prompt)
	assert.Equal(t, DefaultSystemPrompt, llm.lastSeen.System)

	summary := svc.Tracker().Summary()
	assert.Equal(t, 1, summary[StageSTT].Count)
	assert.Equal(t, 1, summary[StageLLM].Count)
}

func TestTurnSTTFailureStopsPipeline(t *testing.T) {
	sttErr := errors.New("no audio device")
	stt := &fakeTranscriber{name: providers.ProviderLocalWhisper, err: sttErr}
	llm := &fakeGenerator{name: providers.ProviderOllama, reply: "unused"}
	svc := newTestService(t, stt, llm)

	_, err := svc.Turn(context.Background(), []byte("audio"), TurnOptions{})
	assert.Same(t, sttErr, err)
	assert.Empty(t, llm.lastSeen.Prompt, "generation must not run after a failed transcription")

	// The failed stage is still measured.
	assert.Equal(t, 1, svc.Tracker().Summary()[StageSTT].Count)
}

func TestTurnLLMFailure(t *testing.T) {
	llmErr := errors.New("ollama not running")
	stt := &fakeTranscriber{name: providers.ProviderLocalWhisper, text: "hello"}
	llm := &fakeGenerator{name: providers.ProviderOllama, err: llmErr}
	svc := newTestService(t, stt, llm)

	_, err := svc.Turn(context.Background(), []byte("audio"), TurnOptions{})
	assert.Same(t, llmErr, err)
}

func TestGenerateCustomSystemAndBudget(t *testing.T) {
	llm := &fakeGenerator{name: providers.ProviderOllama, reply: "ok"}
	svc := newTestService(t, &fakeTranscriber{name: providers.ProviderLocalWhisper}, llm)

	_, err := svc.Generate(context.Background(), "hi", TurnOptions{System: "pirate voice", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "pirate voice", llm.lastSeen.System)
	assert.Equal(t, 64, llm.lastSeen.MaxTokens)
}

func TestStreamRecordsStage(t *testing.T) {
	llm := &fakeGenerator{name: providers.ProviderOllama, reply: "streamed"}
	svc := newTestService(t, &fakeTranscriber{name: providers.ProviderLocalWhisper}, llm)

	var got string
	err := svc.Stream(context.Background(), "hi", TurnOptions{}, func(chunk string) error {
		got += chunk
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "streamed", got)
	assert.Equal(t, 1, svc.Tracker().Summary()[StageLLM].Count)
}
