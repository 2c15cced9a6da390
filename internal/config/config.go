// Package config provides configuration management for the scholar search service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SCHOLAR"

// Config holds all configuration for the scholar search service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Sentry contains error reporting settings.
	Sentry SentryConfig `mapstructure:"sentry"`
	// CORS contains cross-origin settings for the public API.
	CORS CORSConfig `mapstructure:"cors"`
	// Throttle contains inbound per-client request limits.
	Throttle ThrottleConfig `mapstructure:"throttle"`
	// Cache contains result cache settings.
	Cache CacheConfig `mapstructure:"cache"`
	// Search contains orchestrator settings.
	Search SearchConfig `mapstructure:"search"`
	// Providers contains per-provider client settings.
	Providers ProvidersConfig `mapstructure:"providers"`
	// Events contains Kafka publisher settings for search events.
	Events EventsConfig `mapstructure:"events"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response. It must
	// exceed the provider deadline or slow searches are cut off mid-response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the maximum keep-alive idle time.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// SentryConfig holds error reporting configuration.
type SentryConfig struct {
	// DSN is read from SCHOLAR_SENTRY_DSN only. Empty disables Sentry.
	DSN string `mapstructure:"-"`
	// Environment tags reported events.
	Environment string `mapstructure:"environment"`
	// SampleRate is the error event sample rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate"`
}

// CORSConfig holds cross-origin configuration.
type CORSConfig struct {
	// AllowedOrigins lists allowed origins. Empty allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ThrottleConfig holds inbound per-client request limits.
type ThrottleConfig struct {
	// Enabled turns the throttles on.
	Enabled bool `mapstructure:"enabled"`
	// GlobalRequests is the number of requests allowed per GlobalWindow.
	GlobalRequests int `mapstructure:"global_requests"`
	// GlobalWindow is the window of the global throttle.
	GlobalWindow time.Duration `mapstructure:"global_window"`
	// SearchRequests is the number of search requests allowed per SearchWindow.
	SearchRequests int `mapstructure:"search_requests"`
	// SearchWindow is the window of the search throttle.
	SearchWindow time.Duration `mapstructure:"search_window"`
	// MaxClients bounds the number of tracked client addresses.
	MaxClients int `mapstructure:"max_clients"`
}

// CacheConfig holds result cache configuration.
type CacheConfig struct {
	// MaxEntries is the cache capacity.
	MaxEntries int `mapstructure:"max_entries"`
	// TTL is the lifetime of an entry from insertion.
	TTL time.Duration `mapstructure:"ttl"`
}

// SearchConfig holds orchestrator configuration.
type SearchConfig struct {
	// ProviderDeadline bounds each provider call, including rate limiter queueing.
	ProviderDeadline time.Duration `mapstructure:"provider_deadline"`
}

// ProvidersConfig holds the configuration of every provider client.
type ProvidersConfig struct {
	// Mailto is the contact email sent to OpenAlex and Crossref.
	Mailto string `mapstructure:"mailto"`

	OpenAlex        ProviderConfig `mapstructure:"openalex"`
	SemanticScholar ProviderConfig `mapstructure:"semantic_scholar"`
	ArXiv           ProviderConfig `mapstructure:"arxiv"`
	Crossref        ProviderConfig `mapstructure:"crossref"`
	ORCID           ProviderConfig `mapstructure:"orcid"`
}

// ProviderConfig holds the configuration of one provider client.
type ProviderConfig struct {
	// Enabled includes the provider in searches.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is read from the environment only.
	APIKey string `mapstructure:"-"`
	// BaseURL overrides the provider's public API endpoint.
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds each HTTP attempt.
	Timeout time.Duration `mapstructure:"timeout"`
	// MinInterval is the minimum spacing between requests to the provider.
	MinInterval time.Duration `mapstructure:"min_interval"`
	// MaxRetries is the number of retries after a 429 or 5xx response.
	MaxRetries int `mapstructure:"max_retries"`
}

// EventsConfig holds Kafka publisher settings.
type EventsConfig struct {
	// Enabled enables publishing of search.completed events.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic events are written to.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages per batch.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time before an incomplete batch is flushed.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load reads configuration from a .env file, an optional config.yaml and
// SCHOLAR_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/scholar-search-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports variables from the given files into the process
// environment without overriding variables that are already set.
// Missing files are ignored.
func loadDotEnv(filenames ...string) error {
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// loadSecrets reads credentials that must never come from config files.
func loadSecrets(cfg *Config) {
	cfg.Sentry.DSN = os.Getenv(EnvPrefix + "_SENTRY_DSN")

	cfg.Providers.OpenAlex.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_OPENALEX_API_KEY")
	cfg.Providers.SemanticScholar.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_SEMANTIC_SCHOLAR_API_KEY")
	cfg.Providers.ORCID.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_ORCID_API_KEY")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "scholar_search")

	// Sentry defaults
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{})

	// Throttle defaults
	v.SetDefault("throttle.enabled", true)
	v.SetDefault("throttle.global_requests", 100)
	v.SetDefault("throttle.global_window", "15m")
	v.SetDefault("throttle.search_requests", 20)
	v.SetDefault("throttle.search_window", "1m")
	v.SetDefault("throttle.max_clients", 10000)

	// Cache defaults
	v.SetDefault("cache.max_entries", 500)
	v.SetDefault("cache.ttl", "30m")

	// Search defaults
	v.SetDefault("search.provider_deadline", "25s")

	// Provider defaults
	v.SetDefault("providers.mailto", "")

	v.SetDefault("providers.openalex.enabled", true)
	v.SetDefault("providers.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("providers.openalex.timeout", "8s")
	v.SetDefault("providers.openalex.min_interval", "100ms")
	v.SetDefault("providers.openalex.max_retries", 1)

	v.SetDefault("providers.semantic_scholar.enabled", true)
	v.SetDefault("providers.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("providers.semantic_scholar.timeout", "8s")
	v.SetDefault("providers.semantic_scholar.min_interval", "1s")
	v.SetDefault("providers.semantic_scholar.max_retries", 1)

	v.SetDefault("providers.arxiv.enabled", true)
	v.SetDefault("providers.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("providers.arxiv.timeout", "10s")
	v.SetDefault("providers.arxiv.min_interval", "3s")
	v.SetDefault("providers.arxiv.max_retries", 1)

	v.SetDefault("providers.crossref.enabled", true)
	v.SetDefault("providers.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("providers.crossref.timeout", "8s")
	v.SetDefault("providers.crossref.min_interval", "200ms")
	v.SetDefault("providers.crossref.max_retries", 1)

	v.SetDefault("providers.orcid.enabled", true)
	v.SetDefault("providers.orcid.base_url", "https://pub.orcid.org/v3.0")
	v.SetDefault("providers.orcid.timeout", "8s")
	v.SetDefault("providers.orcid.min_interval", "200ms")
	v.SetDefault("providers.orcid.max_retries", 1)

	// Events defaults
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{"localhost:9092"})
	v.SetDefault("events.topic", "events.scholar_search.search_completed")
	v.SetDefault("events.batch_size", 100)
	v.SetDefault("events.batch_timeout", "10ms")
	v.SetDefault("events.write_timeout", "10s")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Metrics.Enabled && (c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}
	if c.Metrics.Enabled && c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("metrics port must differ from HTTP port: %d", c.Server.HTTPPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Sentry.SampleRate < 0 || c.Sentry.SampleRate > 1 {
		return fmt.Errorf("sentry sample rate must be between 0 and 1")
	}

	// Validate throttles
	if c.Throttle.Enabled {
		if c.Throttle.GlobalRequests <= 0 || c.Throttle.GlobalWindow <= 0 {
			return fmt.Errorf("global throttle requires positive requests and window")
		}
		if c.Throttle.SearchRequests <= 0 || c.Throttle.SearchWindow <= 0 {
			return fmt.Errorf("search throttle requires positive requests and window")
		}
	}

	// Validate cache
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max_entries must be positive")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	if c.Search.ProviderDeadline <= 0 {
		return fmt.Errorf("search provider_deadline must be positive")
	}

	// Validate providers
	for name, p := range c.Providers.byName() {
		if p.MaxRetries < 0 {
			return fmt.Errorf("provider %s: max_retries must not be negative", name)
		}
		if p.MinInterval < 0 {
			return fmt.Errorf("provider %s: min_interval must not be negative", name)
		}
	}

	// Validate events
	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("events brokers are required when events are enabled")
		}
		if c.Events.Topic == "" {
			return fmt.Errorf("events topic is required when events are enabled")
		}
	}

	return nil
}

func (c ProvidersConfig) byName() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"openalex":         c.OpenAlex,
		"semantic_scholar": c.SemanticScholar,
		"arxiv":            c.ArXiv,
		"crossref":         c.Crossref,
		"orcid":            c.ORCID,
	}
}
