package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("PENDING_PROMPT_TTL", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, ProviderCanned, cfg.ResponseProvider)
	assert.Equal(t, 5*time.Minute, cfg.PendingPromptTTL)
	assert.Equal(t, 15*time.Millisecond, cfg.StreamTickInterval)
	assert.False(t, cfg.TracingEnabled)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "nats")
	t.Setenv("STREAM_TICK_INTERVAL", "40ms")
	t.Setenv("RATE_LIMIT_REQUESTS", "7")
	t.Setenv("NATS_EVENTS_ENABLED", "true")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, ,http://localhost:3000")

	cfg := Load()

	assert.Equal(t, StorageNATS, cfg.StorageBackend)
	assert.Equal(t, 40*time.Millisecond, cfg.StreamTickInterval)
	assert.Equal(t, 7, cfg.RateLimitRequests)
	assert.True(t, cfg.NATSEventsEnabled)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "lots")
	t.Setenv("PENDING_PROMPT_TTL", "soon")
	t.Setenv("TRACING_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 120, cfg.RateLimitRequests)
	assert.Equal(t, 5*time.Minute, cfg.PendingPromptTTL)
	assert.False(t, cfg.TracingEnabled)
}
