package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("HEARTBEAT_INTERVAL", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 60*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, int64(8*1024), cfg.MaxMessageSize)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "staging")
	t.Setenv("HEARTBEAT_INTERVAL", "30s")
	t.Setenv("SEND_BUFFER", "64")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://www.example.com")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 64, cfg.SendBuffer)
	assert.Equal(t, []string{"https://app.example.com", "https://www.example.com"}, cfg.AllowedOrigins)
}

func TestLoad_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("HEARTBEAT_INTERVAL", "soon")
	t.Setenv("SEND_BUFFER", "-5")

	cfg := Load()

	assert.Equal(t, 60*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 256, cfg.SendBuffer)
}

func TestLoad_ProductionRequiresURLs(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	assert.Panics(t, func() { Load() })
}
