package config

import "time"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Upstream:  DefaultUpstreamConfig(),
		Cache:     DefaultCacheConfig(),
		RateLimit: DefaultRateLimitConfig(),
		History:   DefaultHistoryConfig(),
		Redis:     DefaultRedisConfig(),
		Log:       DefaultLogConfig(),
	}
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    180 * time.Second, // image generation responses are slow
		ShutdownTimeout: 15 * time.Second,
		ClientRPS:       10,
		ClientBurst:     20,
	}
}

// DefaultUpstreamConfig returns the default upstream configuration.
// The API key has no default on purpose.
func DefaultUpstreamConfig() UpstreamConfig {
	return UpstreamConfig{
		BaseURL: "https://generativelanguage.googleapis.com",
		Timeout: 120 * time.Second,
	}
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      true,
		LocalMaxSize: 256,
		LocalTTL:     5 * time.Minute,
		RedisTTL:     time.Hour,
	}
}

// DefaultRateLimitConfig returns the default upstream rate limit.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RPS: 2, Burst: 4}
}

// DefaultHistoryConfig returns the default history configuration.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Backend: "sqlite",
		Path:    "paintbox.db",
	}
}

// DefaultRedisConfig returns the default Redis configuration. Redis is off
// by default so a bare `paintbox serve` works without infrastructure.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:  false,
		Addr:     "localhost:6379",
		DB:       0,
		PoolSize: 10,
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stdout"},
		EnableCaller: true,
	}
}
