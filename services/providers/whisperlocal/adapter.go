// Package whisperlocal implements the offline STT backend against a
// whisper.cpp-style inference server. The server owns the loaded model, so
// the adapter stays credential-free and works with no network uplink.
package whisperlocal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/upb/voice-control-plane/config"
	"github.com/upb/voice-control-plane/services/providers"
)

// Adapter transcribes audio by uploading it to the local inference server.
type Adapter struct {
	cfg    config.WhisperConfig
	logger *zap.Logger

	clientOnce sync.Once
	client     *http.Client
}

var _ providers.Transcriber = (*Adapter)(nil)

// New creates a local whisper adapter. The HTTP client is built lazily on
// first use.
func New(cfg config.WhisperConfig, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{cfg: cfg, logger: logger}
}

// Name returns the provider tag.
func (a *Adapter) Name() string {
	return providers.ProviderLocalWhisper
}

func (a *Adapter) getClient() *http.Client {
	a.clientOnce.Do(func() {
		a.logger.Info("initializing local whisper client",
			zap.String("server_url", a.cfg.ServerURL),
			zap.Int("beam_size", a.cfg.BeamSize))
		a.client = &http.Client{}
	})
	return a.client
}

// inferenceResponse mirrors the server's verbose JSON shape. Only text and
// segment texts are extracted; everything else is provider detail.
type inferenceResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

// Transcribe uploads the audio payload and joins the returned timed segments
// with single spaces, trimmed.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) (*providers.TranscriptionResult, error) {
	start := time.Now()

	result, err := a.transcribe(ctx, audio)

	latency := msSince(start)
	a.logger.Debug("local stt latency",
		zap.Float64("latency_ms", latency),
		zap.Bool("ok", err == nil))

	if err != nil {
		return nil, err
	}
	result.LatencyMs = latency
	return result, nil
}

func (a *Adapter) transcribe(ctx context.Context, audio []byte) (*providers.TranscriptionResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "transcribe", "failed to build form", 0, err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, providers.NewProviderError(a.Name(), "transcribe", "failed to write audio", 0, err)
	}
	_ = form.WriteField("beam_size", strconv.Itoa(a.cfg.BeamSize))
	_ = form.WriteField("response_format", "verbose_json")
	if err := form.Close(); err != nil {
		return nil, providers.NewProviderError(a.Name(), "transcribe", "failed to finalize form", 0, err)
	}

	url := strings.TrimRight(a.cfg.ServerURL, "/") + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "transcribe", "failed to create request", 0, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := a.getClient().Do(req)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "transcribe", "inference request failed", 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "transcribe", "failed to read response", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, providers.NewProviderError(a.Name(), "transcribe",
			fmt.Sprintf("inference server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
			resp.StatusCode, nil)
	}

	var parsed inferenceResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, providers.NewProviderError(a.Name(), "transcribe", "malformed inference response", resp.StatusCode, err)
	}

	return &providers.TranscriptionResult{
		Text:     joinSegments(parsed),
		Provider: a.Name(),
	}, nil
}

// joinSegments concatenates segment texts with single spaces, falling back
// to the flat text field when the server omits segments.
func joinSegments(resp inferenceResponse) string {
	if len(resp.Segments) == 0 {
		return strings.TrimSpace(resp.Text)
	}
	parts := make([]string, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		parts = append(parts, strings.TrimSpace(seg.Text))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
