// Package config provides centralized configuration management for the fwlens services.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/telhawk-systems/fwlens/analytics"
)

var (
	globalConfig *Config
	once         sync.Once
)

// EnvPrefix is prepended to every environment override (FWLENS_SERVER_PORT, ...).
const EnvPrefix = "FWLENS"

// Config is the master configuration struct shared by the API service and the CLI.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	NATS       NATSConfig       `mapstructure:"nats"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// TrustedProxies lists IPs or CIDRs of reverse proxies whose
	// X-Forwarded-For / X-Real-IP headers identify the client.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// Addr returns the listen address for the configured port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// OpenSearchConfig holds OpenSearch connection settings
type OpenSearchConfig struct {
	URL           string        `mapstructure:"url"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	TLSSkipVerify bool          `mapstructure:"tls_skip_verify"`
	IndexPattern  string        `mapstructure:"index_pattern"`
	IndexPrefix   string        `mapstructure:"index_prefix"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// AnalyticsConfig bounds search requests and extends the field alias table.
type AnalyticsConfig struct {
	DefaultDays  int `mapstructure:"default_days"`
	MaxDays      int `mapstructure:"max_days"`
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`

	// ExtraAliases maps a canonical attribute (src_ip, user, ...) to additional
	// source field names tried after the built-in ones.
	ExtraAliases map[string][]string `mapstructure:"extra_aliases"`
}

// Limits converts the bounds into pipeline limits.
func (a AnalyticsConfig) Limits() analytics.Limits {
	return analytics.Limits{
		DefaultDays:  a.DefaultDays,
		MaxDays:      a.MaxDays,
		DefaultLimit: a.DefaultLimit,
		MaxLimit:     a.MaxLimit,
	}
}

// Pipeline builds the analytics pipeline for these settings.
func (c *Config) Pipeline(searcher analytics.Searcher) *analytics.Pipeline {
	aliases := analytics.DefaultAliases().Extend(c.Analytics.ExtraAliases)
	return analytics.NewPipeline(searcher,
		analytics.WithNormalizer(analytics.NewNormalizer(aliases)),
		analytics.WithLimits(c.Analytics.Limits()),
		analytics.WithIndexPattern(c.OpenSearch.IndexPattern),
	)
}

// DefaultJWTSecret is the placeholder signing key shipped in the defaults.
const DefaultJWTSecret = "change-this-in-production"

// AuthConfig holds JWT and user configuration
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Users          []UserConfig  `mapstructure:"users"`
}

// UsesDefaultSecret reports whether tokens would be signed with the
// well-known placeholder key.
func (a AuthConfig) UsesDefaultSecret() bool {
	return a.JWTSecret == "" || a.JWTSecret == DefaultJWTSecret
}

// UserConfig is a static login. PasswordHash is a bcrypt hash.
type UserConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL        string `mapstructure:"url"`
	Enabled    bool   `mapstructure:"enabled"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

// RateLimitConfig throttles failed logins per client IP.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// NATSConfig holds NATS message broker configuration
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Enabled       bool          `mapstructure:"enabled"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// CORSConfig holds allowed browser origins for the API
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MustLoad loads the configuration and panics on error.
// This initializes the global singleton.
func MustLoad(path string) {
	once.Do(func() {
		cfg, err := Load(path)
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
		globalConfig = cfg
	})
}

// GetConfig returns the global configuration singleton.
// Panics if MustLoad has not been called first.
func GetConfig() *Config {
	if globalConfig == nil {
		panic("config not initialized - call MustLoad first")
	}
	return globalConfig
}

// Load reads configuration from path, or $FWLENS_CONFIG_DIR/config.yaml when
// path is empty, then applies FWLENS_* environment overrides.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path == "" {
		path = filepath.Join(configDir(), "config.yaml")
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func configDir() string {
	if dir := os.Getenv(EnvPrefix + "_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "/etc/fwlens"
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.trusted_proxies", []string{})

	// OpenSearch defaults
	v.SetDefault("opensearch.url", "https://localhost:9200")
	v.SetDefault("opensearch.username", "admin")
	v.SetDefault("opensearch.password", "admin")
	v.SetDefault("opensearch.tls_skip_verify", true)
	v.SetDefault("opensearch.index_pattern", "fortigate-*")
	v.SetDefault("opensearch.index_prefix", "fortigate")
	v.SetDefault("opensearch.timeout", "30s")

	// Analytics defaults
	v.SetDefault("analytics.default_days", 3)
	v.SetDefault("analytics.max_days", 7)
	v.SetDefault("analytics.default_limit", 1000)
	v.SetDefault("analytics.max_limit", 5000)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", DefaultJWTSecret)
	v.SetDefault("auth.issuer", "fwlens")
	v.SetDefault("auth.access_token_ttl", "60m")

	// Redis defaults
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 5)
	v.SetDefault("rate_limit.window", "1m")

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
