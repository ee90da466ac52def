// Package ollama implements the offline generation backend against the
// Ollama chat API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/upb/voice-control-plane/config"
	"github.com/upb/voice-control-plane/services/providers"
)

// Adapter generates text through a locally running Ollama instance.
type Adapter struct {
	cfg    config.OllamaConfig
	logger *zap.Logger

	clientOnce sync.Once
	client     *http.Client
}

var _ providers.Generator = (*Adapter)(nil)

// New creates an Ollama adapter. The HTTP client is built lazily on first
// use.
func New(cfg config.OllamaConfig, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{cfg: cfg, logger: logger}
}

// Name returns the provider tag.
func (a *Adapter) Name() string {
	return providers.ProviderOllama
}

func (a *Adapter) getClient() *http.Client {
	a.clientOnce.Do(func() {
		a.logger.Info("initializing ollama client",
			zap.String("host", a.cfg.Host),
			zap.String("model", a.cfg.Model))
		a.client = &http.Client{}
	})
	return a.client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]int `json:"options,omitempty"`
}

type chatResponse struct {
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	EvalCount       int         `json:"eval_count"`
	PromptEvalCount int         `json:"prompt_eval_count"`
}

// Generate produces a single completion.
func (a *Adapter) Generate(ctx context.Context, req providers.GenerateRequest) (*providers.GenerationResult, error) {
	start := time.Now()

	parsed, err := a.chat(ctx, req, false, func(resp *chatResponse) error { return nil })

	latency := msSince(start)
	a.logger.Debug("ollama llm latency",
		zap.Float64("latency_ms", latency),
		zap.Bool("ok", err == nil))

	if err != nil {
		return nil, err
	}

	result := &providers.GenerationResult{
		Text:      parsed.Message.Content,
		LatencyMs: latency,
		Provider:  a.Name(),
	}
	if total := parsed.PromptEvalCount + parsed.EvalCount; total > 0 {
		result.TokensUsed = &total
	}
	return result, nil
}

// Stream produces a completion incrementally, invoking fn for each non-empty
// content chunk until Ollama reports done.
func (a *Adapter) Stream(ctx context.Context, req providers.GenerateRequest, fn providers.StreamFunc) error {
	_, err := a.chat(ctx, req, true, func(resp *chatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		return fn(resp.Message.Content)
	})
	return err
}

// chat posts to /api/chat. In streaming mode each NDJSON line is passed to
// onChunk; the returned response is the final (done) message. In
// non-streaming mode the single response body is returned.
func (a *Adapter) chat(ctx context.Context, req providers.GenerateRequest, stream bool, onChunk func(*chatResponse) error) (*chatResponse, error) {
	payload := chatRequest{
		Model:    a.cfg.Model,
		Messages: buildMessages(req),
		Stream:   stream,
	}
	if req.MaxTokens > 0 {
		payload.Options = map[string]int{"num_predict": req.MaxTokens}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "chat", "failed to marshal request", 0, err)
	}

	url := strings.TrimRight(a.cfg.Host, "/") + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "chat", "failed to create request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.getClient().Do(httpReq)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "chat", "chat request failed", 0, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, providers.NewProviderError(a.Name(), "chat",
			fmt.Sprintf("ollama returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(respBody))),
			httpResp.StatusCode, nil)
	}

	if !stream {
		var parsed chatResponse
		if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
			return nil, providers.NewProviderError(a.Name(), "chat", "malformed chat response", httpResp.StatusCode, err)
		}
		return &parsed, nil
	}

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var last chatResponse
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk chatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, providers.NewProviderError(a.Name(), "stream", "malformed stream chunk", httpResp.StatusCode, err)
		}
		if err := onChunk(&chunk); err != nil {
			return nil, err
		}
		last = chunk
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, providers.NewProviderError(a.Name(), "stream", "stream read failed", httpResp.StatusCode, err)
	}
	return &last, nil
}

func buildMessages(req providers.GenerateRequest) []chatMessage {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	return messages
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
