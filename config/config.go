package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Supported provider names. Selection happens at startup; an unknown name is
// rejected by Validate before any component is built.
const (
	STTProviderGroq  = "groq"
	STTProviderLocal = "local"

	LLMProviderGroq   = "groq"
	LLMProviderOllama = "ollama"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Providers     ProvidersConfig
	Pipeline      PipelineConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ProvidersConfig holds the STT/LLM backend configurations
type ProvidersConfig struct {
	Groq    GroqConfig
	Whisper WhisperConfig
	Ollama  OllamaConfig
}

// GroqConfig holds the cloud provider configuration. An empty APIKey means
// the remote fast path is never attempted and every call goes local.
type GroqConfig struct {
	APIKey   string
	BaseURL  string
	STTModel string
	LLMModel string
}

// WhisperConfig holds the local speech-to-text backend configuration
// (a whisper.cpp-style inference server).
type WhisperConfig struct {
	ServerURL string
	BeamSize  int
}

// OllamaConfig holds the local generation backend configuration.
type OllamaConfig struct {
	Host  string
	Model string
}

// PipelineConfig holds provider selection and generation defaults.
type PipelineConfig struct {
	STTProvider      string
	LLMProvider      string
	DefaultMaxTokens int

	// Latency targets in milliseconds, used for reporting only.
	TargetSTTLatency   int
	TargetLLMLatency   int
	TargetTotalLatency int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Providers: ProvidersConfig{
			Groq: GroqConfig{
				APIKey:   getEnv("GROQ_API_KEY", ""),
				BaseURL:  getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
				STTModel: getEnv("STT_MODEL", "whisper-large-v3-turbo"),
				LLMModel: getEnv("LLM_MODEL", "llama-3.3-70b-versatile"),
			},
			Whisper: WhisperConfig{
				ServerURL: getEnv("WHISPER_SERVER_URL", "http://localhost:8178"),
				BeamSize:  getEnvAsInt("WHISPER_BEAM_SIZE", 5),
			},
			Ollama: OllamaConfig{
				Host:  getEnv("OLLAMA_HOST", "http://localhost:11434"),
				Model: getEnv("OLLAMA_MODEL", "llama3.2:3b"),
			},
		},
		Pipeline: PipelineConfig{
			STTProvider:        getEnv("STT_PROVIDER", STTProviderGroq),
			LLMProvider:        getEnv("LLM_PROVIDER", LLMProviderGroq),
			DefaultMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 150),
			TargetSTTLatency:   getEnvAsInt("TARGET_STT_LATENCY", 200),
			TargetLLMLatency:   getEnvAsInt("TARGET_LLM_LATENCY", 150),
			TargetTotalLatency: getEnvAsInt("TARGET_TOTAL_LATENCY", 500),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Pipeline.STTProvider {
	case STTProviderGroq, STTProviderLocal:
	default:
		return fmt.Errorf("unknown STT provider %q: supported: %s, %s",
			c.Pipeline.STTProvider, STTProviderGroq, STTProviderLocal)
	}

	switch c.Pipeline.LLMProvider {
	case LLMProviderGroq, LLMProviderOllama:
	default:
		return fmt.Errorf("unknown LLM provider %q: supported: %s, %s",
			c.Pipeline.LLMProvider, LLMProviderGroq, LLMProviderOllama)
	}

	if c.Pipeline.DefaultMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.Pipeline.DefaultMaxTokens)
	}

	if c.Providers.Whisper.BeamSize <= 0 {
		return fmt.Errorf("WHISPER_BEAM_SIZE must be positive, got %d", c.Providers.Whisper.BeamSize)
	}

	if c.Providers.Ollama.Host == "" {
		return fmt.Errorf("ollama host is required")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// HasRemoteCredential reports whether the cloud fast path is configured.
func (c *Config) HasRemoteCredential() bool {
	return c.Providers.Groq.APIKey != ""
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
