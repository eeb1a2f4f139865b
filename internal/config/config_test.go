package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 330, cfg.ClinicUTCOffsetMinutes)
	assert.Equal(t, 10*time.Minute, cfg.SessionStartGrace)
	assert.Equal(t, 45*time.Minute, cfg.SessionStaleAfter)
	assert.Equal(t, 30*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, 30, cfg.DefaultDurationMin)
	assert.Equal(t, 500, cfg.DefaultFee)
	assert.NotEmpty(t, cfg.GeminiModels)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9099")
	t.Setenv("SESSION_START_GRACE", "5m")
	t.Setenv("CLINIC_UTC_OFFSET_MINUTES", "0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("GEMINI_MODELS", "gemini-2.5-pro")

	cfg := Load()

	assert.Equal(t, "9099", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.SessionStartGrace)
	assert.Equal(t, 0, cfg.ClinicUTCOffsetMinutes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, []string{"gemini-2.5-pro"}, cfg.GeminiModels)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SESSION_STALE_AFTER", "not-a-duration")
	t.Setenv("DEFAULT_CONSULT_FEE", "lots")

	cfg := Load()

	assert.Equal(t, 45*time.Minute, cfg.SessionStaleAfter)
	assert.Equal(t, 500, cfg.DefaultFee)
}
