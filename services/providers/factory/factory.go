// Package factory builds concrete provider backends from configuration.
// Dispatch is a strategy table from provider name to constructor, so an
// unsupported name fails loudly at construction time instead of deep inside
// a request.
package factory

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/voice-control-plane/config"
	"github.com/upb/voice-control-plane/services/fallback"
	"github.com/upb/voice-control-plane/services/providers"
	"github.com/upb/voice-control-plane/services/providers/groq"
	"github.com/upb/voice-control-plane/services/providers/ollama"
	"github.com/upb/voice-control-plane/services/providers/whisperlocal"
)

// ErrUnknownProvider is returned when a configured provider name has no
// registered constructor.
var ErrUnknownProvider = errors.New("unknown provider")

type (
	transcriberConstructor func(cfg config.ProvidersConfig, logger *zap.Logger) providers.Transcriber
	generatorConstructor   func(cfg config.ProvidersConfig, logger *zap.Logger) providers.Generator
)

var transcriberConstructors = map[string]transcriberConstructor{
	config.STTProviderGroq: func(cfg config.ProvidersConfig, logger *zap.Logger) providers.Transcriber {
		return groq.New(cfg.Groq, logger)
	},
	config.STTProviderLocal: func(cfg config.ProvidersConfig, logger *zap.Logger) providers.Transcriber {
		return whisperlocal.New(cfg.Whisper, logger)
	},
}

var generatorConstructors = map[string]generatorConstructor{
	config.LLMProviderGroq: func(cfg config.ProvidersConfig, logger *zap.Logger) providers.Generator {
		return groq.New(cfg.Groq, logger)
	},
	config.LLMProviderOllama: func(cfg config.ProvidersConfig, logger *zap.Logger) providers.Generator {
		return ollama.New(cfg.Ollama, logger)
	},
}

// NewTranscriber builds the named STT backend.
func NewTranscriber(name string, cfg config.ProvidersConfig, logger *zap.Logger) (providers.Transcriber, error) {
	ctor, ok := transcriberConstructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: STT provider %q", ErrUnknownProvider, name)
	}
	return ctor(cfg, logger), nil
}

// NewGenerator builds the named LLM backend.
func NewGenerator(name string, cfg config.ProvidersConfig, logger *zap.Logger) (providers.Generator, error) {
	ctor, ok := generatorConstructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: LLM provider %q", ErrUnknownProvider, name)
	}
	return ctor(cfg, logger), nil
}

// NewFallbackSTT wires the configured remote/local transcribers into the
// fallback core. The remote tier is omitted when no credential is present,
// so every call goes straight to the local backend.
func NewFallbackSTT(cfg *config.Config, logger *zap.Logger) (*fallback.STT, error) {
	var remote providers.Transcriber
	if cfg.HasRemoteCredential() {
		var err error
		remote, err = NewTranscriber(cfg.Pipeline.STTProvider, cfg.Providers, logger)
		if err != nil {
			return nil, err
		}
		// A configured local-only selection means the "remote" tier is the
		// local backend itself; collapse to a single tier.
		if remote.Name() == providers.ProviderLocalWhisper {
			return fallback.NewSTT(nil, remote, logger), nil
		}
	}

	local, err := NewTranscriber(config.STTProviderLocal, cfg.Providers, logger)
	if err != nil {
		return nil, err
	}
	return fallback.NewSTT(remote, local, logger), nil
}

// NewFallbackLLM wires the configured remote/local generators into the
// fallback core.
func NewFallbackLLM(cfg *config.Config, logger *zap.Logger) (*fallback.LLM, error) {
	var remote providers.Generator
	if cfg.HasRemoteCredential() {
		var err error
		remote, err = NewGenerator(cfg.Pipeline.LLMProvider, cfg.Providers, logger)
		if err != nil {
			return nil, err
		}
		if remote.Name() == providers.ProviderOllama {
			local := remote
			return fallback.NewLLM(nil, local, cfg.Pipeline.DefaultMaxTokens, logger), nil
		}
	}

	local, err := NewGenerator(config.LLMProviderOllama, cfg.Providers, logger)
	if err != nil {
		return nil, err
	}
	return fallback.NewLLM(remote, local, cfg.Pipeline.DefaultMaxTokens, logger), nil
}
