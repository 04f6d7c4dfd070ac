package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig represents storage configuration. Driver selects between
// the embedded sqlite store and postgres.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ProviderConfig holds one language-model provider's endpoint settings.
type ProviderConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LLMConfig represents language-model configuration. Provider selects the
// implementation at startup; there is no runtime string dispatch elsewhere.
type LLMConfig struct {
	Provider    string         `mapstructure:"provider"`
	Cerebras    ProviderConfig `mapstructure:"cerebras"`
	OpenRouter  ProviderConfig `mapstructure:"openrouter"`
	Temperature float64        `mapstructure:"temperature"`
	MaxTokens   int            `mapstructure:"max_tokens"`
	MaxRetries  int            `mapstructure:"max_retries"`
	RateLimit   float64        `mapstructure:"rate_limit"`
	RateBurst   int            `mapstructure:"rate_burst"`
}

// VectorConfig represents policy index configuration.
type VectorConfig struct {
	CollectionName string `mapstructure:"collection_name"`
	Dimensions     int    `mapstructure:"dimensions"`
}

// CacheConfig represents caching configuration. The LRU coverage cache is
// always on; the redis completion cache is optional.
type CacheConfig struct {
	CoverageCacheSize int           `mapstructure:"coverage_cache_size"`
	RedisEnabled      bool          `mapstructure:"redis_enabled"`
	RedisURL          string        `mapstructure:"redis_url"`
	CompletionTTL     time.Duration `mapstructure:"completion_ttl"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig represents API authentication configuration.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}
