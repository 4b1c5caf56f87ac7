package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Platform PlatformConfig `mapstructure:"platform"`
	Events   EventsConfig   `mapstructure:"events"`
	Manager  ManagerConfig  `mapstructure:"manager"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"` // requests per minute per client
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SentryConfig holds Sentry configuration
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
	Release     string `mapstructure:"release"`
}

// PlatformConfig selects and configures the payment platform
type PlatformConfig struct {
	Mode            string        `mapstructure:"mode"` // sandbox or remote
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout"` // wait for a product query's response event
	SandboxProducts string        `mapstructure:"sandbox_products"` // id:amount:CUR,...
	Locale          string        `mapstructure:"locale"`
}

// EventsConfig configures where remote platform events are read from
type EventsConfig struct {
	Source  string `mapstructure:"source"` // redis or nats
	Channel string `mapstructure:"channel"`
	NATSURL string `mapstructure:"nats_url"`
}

// ManagerConfig tunes the purchase manager
type ManagerConfig struct {
	CatalogTTL     time.Duration `mapstructure:"catalog_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // HTTP wait for catalog responses
}

// NotifyConfig configures the asynq notification fan-out
type NotifyConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Queue       string `mapstructure:"queue"`
	Concurrency int    `mapstructure:"concurrency"`
}

const (
	PlatformSandbox = "sandbox"
	PlatformRemote  = "remote"

	EventsRedis = "redis"
	EventsNATS  = "nats"
)

// Load loads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	v := viper.New()

	dotenv := viper.New()
	dotenv.SetConfigName(".env")
	dotenv.SetConfigType("env")
	dotenv.AddConfigPath(".")
	dotenv.AddConfigPath("..")
	dotenv.AddConfigPath("../..")
	if err := dotenv.ReadInConfig(); err != nil {
		// .env file is optional for production (env vars are used)
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		dotenv = nil
	}

	return load(v, dotenv)
}

// LoadFrom unmarshals and validates configuration from v, with environment
// variables layered over defaults.
func LoadFrom(v *viper.Viper) (*Config, error) {
	return load(v, nil)
}

// load registers defaults, then the .env values, before enabling the
// environment so every key is known to Unmarshal.
func load(v, dotenv *viper.Viper) (*Config, error) {
	setDefaults(v)
	if dotenv != nil {
		applyDotenv(v, dotenv)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDotenv layers flat .env keys (SERVER_PORT) under the environment
func applyDotenv(v, dotenv *viper.Viper) {
	for _, key := range v.AllKeys() {
		flat := strings.ReplaceAll(key, ".", "_")
		if dotenv.IsSet(flat) {
			v.SetDefault(key, dotenv.Get(flat))
		}
	}
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit", 120)

	// JWT defaults
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "storekit-manager")

	// Redis defaults
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 3)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	// Sentry defaults
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "")
	v.SetDefault("sentry.release", "")

	// Platform defaults
	v.SetDefault("platform.mode", PlatformSandbox)
	v.SetDefault("platform.base_url", "")
	v.SetDefault("platform.api_key", "")
	v.SetDefault("platform.timeout", 10*time.Second)
	v.SetDefault("platform.response_timeout", time.Minute)
	v.SetDefault("platform.sandbox_products", "com.example.pro:9.99:USD,com.example.coins:0.99:USD")
	v.SetDefault("platform.locale", "en-US")

	// Events defaults
	v.SetDefault("events.source", EventsRedis)
	v.SetDefault("events.channel", "storekit.events")
	v.SetDefault("events.nats_url", "nats://localhost:4222")

	// Manager defaults
	v.SetDefault("manager.catalog_ttl", 15*time.Minute)
	v.SetDefault("manager.request_timeout", 10*time.Second)

	// Notify defaults
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.queue", "notifications")
	v.SetDefault("notify.concurrency", 5)
}

func validate(cfg *Config) error {
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if cfg.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	switch cfg.Platform.Mode {
	case PlatformSandbox:
	case PlatformRemote:
		if cfg.Platform.BaseURL == "" {
			return fmt.Errorf("PLATFORM_BASE_URL is required in remote mode")
		}
		if cfg.Events.Source != EventsRedis && cfg.Events.Source != EventsNATS {
			return fmt.Errorf("EVENTS_SOURCE must be %q or %q", EventsRedis, EventsNATS)
		}
	default:
		return fmt.Errorf("PLATFORM_MODE must be %q or %q", PlatformSandbox, PlatformRemote)
	}

	if cfg.Manager.CatalogTTL <= 0 {
		return fmt.Errorf("MANAGER_CATALOG_TTL must be positive")
	}
	return nil
}
