package fallback

import (
	"context"

	"go.uber.org/zap"

	"github.com/upb/voice-control-plane/services/providers"
)

// GenerateOptions controls per-call selection.
type GenerateOptions struct {
	// UseLocal skips the remote attempt entirely.
	UseLocal bool
}

// LLM wraps a remote and a local generation backend behind one
// fallback-selecting call.
type LLM struct {
	remote           providers.Generator // nil when no remote credential is configured
	local            providers.Generator
	defaultMaxTokens int
	logger           *zap.Logger
}

// NewLLM creates the fallback generator. Pass a nil remote to disable the
// cloud fast path; local must not be nil. defaultMaxTokens is applied when a
// request leaves MaxTokens at zero.
func NewLLM(remote, local providers.Generator, defaultMaxTokens int, logger *zap.Logger) *LLM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{
		remote:           remote,
		local:            local,
		defaultMaxTokens: defaultMaxTokens,
		logger:           logger,
	}
}

// Generate runs the selection policy: remote first unless forced local or
// unconfigured, any remote error logged and recovered locally; local errors
// propagate untouched.
func (l *LLM) Generate(ctx context.Context, req providers.GenerateRequest, opts GenerateOptions) (*providers.GenerationResult, error) {
	req = l.withDefaults(req)

	if !opts.UseLocal && l.remote != nil {
		result, err := l.remote.Generate(ctx, req)
		if err == nil {
			return result, nil
		}
		l.logger.Warn("remote generation failed, falling back to local",
			zap.String("remote", l.remote.Name()),
			zap.String("local", l.local.Name()),
			zap.Error(err))
	}

	return l.local.Generate(ctx, req)
}

// Stream runs the same two-tier selection for incremental output, with one
// restriction: fallback is only possible while no chunk has reached the
// caller. Once the remote stream has delivered output, a failure is surfaced
// to the caller as-is — the stream neither switches providers mid-flight nor
// silently discards the partial result.
func (l *LLM) Stream(ctx context.Context, req providers.GenerateRequest, opts GenerateOptions, fn providers.StreamFunc) error {
	req = l.withDefaults(req)

	if !opts.UseLocal && l.remote != nil {
		delivered := false
		err := l.remote.Stream(ctx, req, func(chunk string) error {
			delivered = true
			return fn(chunk)
		})
		if err == nil {
			return nil
		}
		if delivered {
			return err
		}
		l.logger.Warn("remote stream failed before first chunk, falling back to local",
			zap.String("remote", l.remote.Name()),
			zap.String("local", l.local.Name()),
			zap.Error(err))
	}

	return l.local.Stream(ctx, req, fn)
}

func (l *LLM) withDefaults(req providers.GenerateRequest) providers.GenerateRequest {
	if req.MaxTokens == 0 {
		req.MaxTokens = l.defaultMaxTokens
	}
	return req
}
