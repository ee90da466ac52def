// Package fallback implements the provider-selection core: each call tries
// the fast remote backend first and degrades to the local backend on any
// remote failure, reporting which backend actually served the request.
//
// A successful fallback is silent to the end user: the result shape is the
// same, only the provider tag differs. A double failure surfaces the local
// backend's own error with no extra wrapping, since there is no further
// tier.
package fallback

import (
	"context"

	"go.uber.org/zap"

	"github.com/upb/voice-control-plane/services/providers"
)

// TranscribeOptions controls per-call selection.
type TranscribeOptions struct {
	// UseLocal skips the remote attempt entirely, regardless of credential
	// configuration.
	UseLocal bool
}

// STT wraps a remote and a local transcription backend behind one
// fallback-selecting call.
type STT struct {
	remote providers.Transcriber // nil when no remote credential is configured
	local  providers.Transcriber
	logger *zap.Logger
}

// NewSTT creates the fallback transcriber. Pass a nil remote to disable the
// cloud fast path; local must not be nil.
func NewSTT(remote, local providers.Transcriber, logger *zap.Logger) *STT {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &STT{remote: remote, local: local, logger: logger}
}

// Transcribe runs the selection policy: remote first unless forced local or
// unconfigured, any remote error logged and recovered locally. The audio
// payload is forwarded as-is; this layer never inspects its content. There
// is no internal timeout — bound the call with a context deadline if the
// remote backend may hang.
func (s *STT) Transcribe(ctx context.Context, audio []byte, opts TranscribeOptions) (*providers.TranscriptionResult, error) {
	if !opts.UseLocal && s.remote != nil {
		result, err := s.remote.Transcribe(ctx, audio)
		if err == nil {
			return result, nil
		}
		s.logger.Warn("remote transcription failed, falling back to local",
			zap.String("remote", s.remote.Name()),
			zap.String("local", s.local.Name()),
			zap.Error(err))
	}

	// Local failures propagate untouched: there is no tertiary fallback.
	return s.local.Transcribe(ctx, audio)
}
