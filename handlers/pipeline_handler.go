// Package handlers exposes the voice pipeline over HTTP. The transport layer
// is deliberately thin: selection, fallback and latency accounting all live
// in the services.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/voice-control-plane/app"
	"github.com/upb/voice-control-plane/services/pipeline"
	"github.com/upb/voice-control-plane/utils"
)

// maxAudioBytes caps an uploaded payload at 25 MiB, matching the remote
// provider's own file limit.
const maxAudioBytes = 25 << 20

// GenerateRequest is the JSON body for the generate endpoints.
type GenerateRequest struct {
	Prompt    string `json:"prompt" validate:"required"`
	System    string `json:"system,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty" validate:"gte=0,lte=4096"`
	UseLocal  bool   `json:"use_local,omitempty"`
}

// TranscribeHandler accepts a raw audio body and returns the transcription.
// Pass ?local=1 to skip the cloud tier.
func TranscribeHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
		if err != nil {
			_ = utils.WriteBadRequest(w, "failed to read audio body", nil)
			return
		}

		opts := pipeline.TurnOptions{UseLocal: r.URL.Query().Get("local") == "1"}
		result, err := deps.Pipeline.Transcribe(r.Context(), audio, opts)
		if err != nil {
			deps.Logger.Error("transcription failed", zap.Error(err))
			_ = utils.WriteBadGateway(w, err.Error())
			return
		}

		_ = utils.WriteJSON(w, http.StatusOK, result)
	}
}

// GenerateHandler runs a single completion.
func GenerateHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeGenerateRequest(w, r)
		if !ok {
			return
		}

		result, err := deps.Pipeline.Generate(r.Context(), req.Prompt, pipeline.TurnOptions{
			UseLocal:  req.UseLocal,
			System:    req.System,
			MaxTokens: req.MaxTokens,
		})
		if err != nil {
			deps.Logger.Error("generation failed", zap.Error(err))
			_ = utils.WriteBadGateway(w, err.Error())
			return
		}

		_ = utils.WriteJSON(w, http.StatusOK, result)
	}
}

// StreamGenerateHandler runs a streaming completion as server-sent events,
// one data frame per content chunk. A provider failure after output has
// started is reported as a final error event: headers are long gone by then.
func StreamGenerateHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeGenerateRequest(w, r)
		if !ok {
			return
		}

		flusher, canFlush := w.(http.Flusher)
		if !canFlush {
			_ = utils.WriteInternalServerError(w, "streaming unsupported by connection")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)

		err := deps.Pipeline.Stream(r.Context(), req.Prompt, pipeline.TurnOptions{
			UseLocal:  req.UseLocal,
			System:    req.System,
			MaxTokens: req.MaxTokens,
		}, func(chunk string) error {
			payload, err := json.Marshal(map[string]string{"content": chunk})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		})
		if err != nil {
			deps.Logger.Error("stream failed", zap.Error(err))
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", jsonString(err.Error()))
			flusher.Flush()
			return
		}

		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

// TurnHandler runs a complete audio-in, reply-out turn.
func TurnHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
		if err != nil {
			_ = utils.WriteBadRequest(w, "failed to read audio body", nil)
			return
		}

		opts := pipeline.TurnOptions{UseLocal: r.URL.Query().Get("local") == "1"}
		result, err := deps.Pipeline.Turn(r.Context(), audio, opts)
		if err != nil {
			deps.Logger.Error("turn failed", zap.Error(err))
			_ = utils.WriteBadGateway(w, err.Error())
			return
		}

		_ = utils.WriteJSON(w, http.StatusOK, result)
	}
}

func decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (*GenerateRequest, bool) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "invalid JSON body", nil)
		return nil, false
	}

	if err := utils.ValidateStruct(&req); err != nil {
		var validationErr *utils.ValidationError
		if errors.As(err, &validationErr) {
			details := make(map[string]interface{}, len(validationErr.Fields))
			for k, v := range validationErr.Fields {
				details[k] = v
			}
			_ = utils.WriteBadRequest(w, validationErr.Message, details)
		} else {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
		}
		return nil, false
	}

	return &req, true
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
