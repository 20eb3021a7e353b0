// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageDisk   = "disk"
	StorageNATS   = "nats"
)

// Response providers.
const (
	ProviderCanned    = "canned"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Storage settings
	StorageBackend string
	DataDir        string

	// NATS settings
	NATSURL           string
	NATSCAFile        string
	NATSCertFile      string
	NATSKeyFile       string
	NATSToken         string
	NATSKVBucket      string
	NATSEventsEnabled bool

	// Response provider settings
	ResponseProvider string
	AnthropicAPIKey  string
	OpenAIAPIKey     string
	LLMModel         string

	// Engine settings
	StreamTickInterval time.Duration
	PendingPromptTTL   time.Duration

	// HTTP
	CORSOrigins []string

	// Rate limiting
	RateLimitRequests          int
	RateLimitWindow            time.Duration
	WorkspaceRateLimitRequests int

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server. Write timeout is off by default since SSE connections are long-lived.
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 0),

		// Storage
		StorageBackend: getEnv("STORAGE_BACKEND", StorageMemory),
		DataDir:        getEnv("DATA_DIR", "./data"),

		// NATS
		NATSURL:           getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:        getEnv("NATS_CA_FILE", ""),
		NATSCertFile:      getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:       getEnv("NATS_KEY_FILE", ""),
		NATSToken:         getEnv("NATS_TOKEN", ""),
		NATSKVBucket:      getEnv("NATS_KV_BUCKET", "WORKSPACE_STATE"),
		NATSEventsEnabled: getBoolEnv("NATS_EVENTS_ENABLED", false),

		// Response provider
		ResponseProvider: getEnv("RESPONSE_PROVIDER", ProviderCanned),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		LLMModel:         getEnv("LLM_MODEL", ""),

		// Engine
		StreamTickInterval: getDurationEnv("STREAM_TICK_INTERVAL", 15*time.Millisecond),
		PendingPromptTTL:   getDurationEnv("PENDING_PROMPT_TTL", 5*time.Minute),

		// HTTP
		CORSOrigins: getListEnv("CORS_ORIGINS"),

		// Rate limiting
		RateLimitRequests:          getIntEnv("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:            getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		WorkspaceRateLimitRequests: getIntEnv("WORKSPACE_RATE_LIMIT_REQUESTS", 30),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
