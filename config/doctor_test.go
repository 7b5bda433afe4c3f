package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Upstream.APIKey = "AIzaSyTestKey123"
	return cfg
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_MissingKey(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is not set")
}

func TestValidate_PlaceholderKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Upstream.APIKey = "your-api-key-here"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placeholder")
}

func TestValidate_BearerTokenAlone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Upstream.BearerToken = "gw-token-abc"
	assert.NoError(t, cfg.Validate(), "a bearer token without an API key is a valid setup")
}

func TestValidate_BadBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Upstream.BaseURL = "generativelanguage.googleapis.com"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http")
}

func TestValidate_UnknownHistoryBackend(t *testing.T) {
	cfg := validConfig()
	cfg.History.Backend = "postgres"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history backend")
}

func TestValidate_UpstreamOverrides(t *testing.T) {
	cfg := validConfig()
	cfg.Upstream.Flavor = "openai"
	cfg.Upstream.Auth = "bearer"
	assert.NoError(t, cfg.Validate())

	cfg.Upstream.Flavor = "dalle"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flavor")

	cfg = validConfig()
	cfg.Upstream.Auth = "basic"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth scheme")
}

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"your-api-key-here", true},
		{"YOUR-API-KEY-HERE", true},
		{"  changeme  ", true},
		{"<api-key>", true},
		{"sk-...", true},
		{"AIzaSyRealLookingKey", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPlaceholder(tt.value), "value=%q", tt.value)
	}
}

func TestDoctor_CleanConfig(t *testing.T) {
	assert.Empty(t, validConfig().Doctor())
}

func TestDoctor_FindingsCarryFixes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Upstream.BaseURL = "generativelanguage.googleapis.com"
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = ""

	findings := cfg.Doctor()
	require.NotEmpty(t, findings)

	joined := strings.Join(findings, "\n")
	assert.Contains(t, joined, "PAINTBOX_UPSTREAM_API_KEY")
	assert.Contains(t, joined, "has no scheme")
	assert.Contains(t, joined, "PAINTBOX_REDIS_ADDR")

	// Every problem line is followed by a fix line.
	for i := 0; i < len(findings); i += 2 {
		assert.True(t, strings.HasPrefix(findings[i+1], "  fix: "), "finding %d lacks a fix hint", i)
	}
}

func TestDoctor_PlaceholderKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Upstream.APIKey = "changeme"

	joined := strings.Join(cfg.Doctor(), "\n")
	assert.Contains(t, joined, "placeholder")
	assert.Contains(t, joined, "changeme")
}
