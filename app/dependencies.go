package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/voice-control-plane/config"
	"github.com/upb/voice-control-plane/internal/observability"
	"github.com/upb/voice-control-plane/services/pipeline"
	"github.com/upb/voice-control-plane/services/providers/factory"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Tracker  *observability.LatencyTracker
	Pipeline *pipeline.Service
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	stt, err := factory.NewFallbackSTT(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build STT backends: %w", err)
	}

	llm, err := factory.NewFallbackLLM(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build LLM backends: %w", err)
	}

	tracker := observability.NewLatencyTracker(logger)

	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Tracker:  tracker,
		Pipeline: pipeline.NewService(stt, llm, tracker, logger),
	}

	logger.Info("all dependencies initialized",
		zap.String("stt_provider", cfg.Pipeline.STTProvider),
		zap.String("llm_provider", cfg.Pipeline.LLMProvider),
		zap.Bool("remote_credential", cfg.HasRemoteCredential()))

	return deps, nil
}
