package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CSRF_SECRET", "csrf")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("API_BASE_URL", "http://127.0.0.1:5000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.False(t, cfg.EnforceRoleRoutes)
	assert.Empty(t, cfg.PGDSN)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("ENFORCE_ROLE_ROUTES", "true")
	t.Setenv("SESSION_TTL", "30m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.EnforceRoleRoutes)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "https://api.example.com/", cfg.APIBaseURL)
}

func TestLoadConfigRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing session secret": {"SESSION_SECRET": ""},
		"missing csrf secret":    {"CSRF_SECRET": ""},
		"relative api url":       {"API_BASE_URL": "/api"},
		"zero rate limit":        {"RATE_LIMIT_PER_MINUTE": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv("API_BASE_URL", "http://127.0.0.1:5000")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestNilConfigIsNotProduction(t *testing.T) {
	var cfg *Config
	assert.False(t, cfg.IsProduction())
}
