package config

import (
	"fmt"
	"strings"
)

// placeholderValues are strings people paste from setup guides without
// replacing. A key matching one of these is treated as missing.
var placeholderValues = []string{
	"your-api-key-here",
	"your_api_key_here",
	"your-api-key",
	"changeme",
	"change-me",
	"replace-me",
	"xxx",
	"<api-key>",
	"<your-key>",
	"sk-...",
}

// IsPlaceholder reports whether value looks like an unreplaced placeholder.
func IsPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, p := range placeholderValues {
		if v == p {
			return true
		}
	}
	return false
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Upstream.APIKey == "" && c.Upstream.BearerToken == "" {
		errs = append(errs, "upstream API key is not set")
	}
	if IsPlaceholder(c.Upstream.APIKey) {
		errs = append(errs, "upstream API key is a placeholder value")
	}
	if IsPlaceholder(c.Upstream.BearerToken) {
		errs = append(errs, "upstream bearer token is a placeholder value")
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, "upstream base URL is not set")
	}
	if !strings.HasPrefix(c.Upstream.BaseURL, "http://") && !strings.HasPrefix(c.Upstream.BaseURL, "https://") {
		errs = append(errs, "upstream base URL must start with http:// or https://")
	}
	if c.RateLimit.RPS <= 0 {
		errs = append(errs, "rate limit rps must be positive")
	}
	switch c.History.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("unknown history backend %q (want memory or sqlite)", c.History.Backend))
	}
	switch c.Upstream.Flavor {
	case "", "gemini", "openai":
	default:
		errs = append(errs, fmt.Sprintf("unknown upstream flavor %q (want gemini or openai)", c.Upstream.Flavor))
	}
	switch c.Upstream.Auth {
	case "", "google-key", "bearer", "azure-key", "raw":
	default:
		errs = append(errs, fmt.Sprintf("unknown upstream auth scheme %q", c.Upstream.Auth))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Doctor returns human-readable findings about the configuration, one line
// per problem, each followed by a "fix:" hint. An empty slice means the
// configuration is ready to use.
func (c *Config) Doctor() []string {
	var findings []string

	add := func(problem, fix string) {
		findings = append(findings, problem, "  fix: "+fix)
	}

	switch {
	case c.Upstream.APIKey == "" && c.Upstream.BearerToken == "":
		add("no upstream credential is configured",
			"set PAINTBOX_UPSTREAM_API_KEY to your API key, or PAINTBOX_UPSTREAM_BEARER_TOKEN for a gateway token")
	case IsPlaceholder(c.Upstream.APIKey):
		add(fmt.Sprintf("PAINTBOX_UPSTREAM_API_KEY is still the placeholder %q", c.Upstream.APIKey),
			"replace it with a real key from your provider console")
	case IsPlaceholder(c.Upstream.BearerToken):
		add(fmt.Sprintf("PAINTBOX_UPSTREAM_BEARER_TOKEN is still the placeholder %q", c.Upstream.BearerToken),
			"replace it with a real gateway token")
	}

	if c.Upstream.BaseURL == "" {
		add("PAINTBOX_UPSTREAM_BASE_URL is empty",
			"set it to your endpoint, e.g. https://generativelanguage.googleapis.com")
	} else if !strings.HasPrefix(c.Upstream.BaseURL, "http://") && !strings.HasPrefix(c.Upstream.BaseURL, "https://") {
		add(fmt.Sprintf("PAINTBOX_UPSTREAM_BASE_URL %q has no scheme", c.Upstream.BaseURL),
			"prefix it with https://")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		add("redis is enabled but PAINTBOX_REDIS_ADDR is empty",
			"set the address (host:port) or disable redis")
	}

	if c.History.Backend == "sqlite" && c.History.Path == "" {
		add("history backend is sqlite but PAINTBOX_HISTORY_PATH is empty",
			"set a database file path or switch the backend to memory")
	}

	return findings
}
