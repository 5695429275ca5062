package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. HA_DATABASE_HOST
const EnvPrefix = "HA"

var defaultSearchPaths = []string{".", "./config", "/app", "/app/config"}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Edge      EdgeConfig      `mapstructure:"edge"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	Security  SecurityConfig  `mapstructure:"security"`
	Email     EmailConfig     `mapstructure:"email"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" split_words:"true"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" split_words:"true"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true"`
}

// DSN renders the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

type EdgeConfig struct {
	BaseURL                string        `mapstructure:"base_url" split_words:"true"`
	ServiceKey             string        `mapstructure:"service_key" split_words:"true"`
	Timeout                time.Duration `mapstructure:"timeout"`
	RecommendationsTimeout time.Duration `mapstructure:"recommendations_timeout" split_words:"true"`
	MaxRetries             int           `mapstructure:"max_retries" split_words:"true"`
	BreakerMaxFailures     int           `mapstructure:"breaker_max_failures" split_words:"true"`
	BreakerResetTimeout    time.Duration `mapstructure:"breaker_reset_timeout" split_words:"true"`
}

type AnalyticsConfig struct {
	CacheTTL          time.Duration `mapstructure:"cache_ttl" split_words:"true"`
	CacheCleanup      time.Duration `mapstructure:"cache_cleanup" split_words:"true"`
	RegenerateRetries uint64        `mapstructure:"regenerate_retries" split_words:"true"`
	Locale            string        `mapstructure:"locale"`
}

type RealtimeConfig struct {
	BaseDelay   time.Duration `mapstructure:"base_delay" split_words:"true"`
	MaxDelay    time.Duration `mapstructure:"max_delay" split_words:"true"`
	MaxAttempts int           `mapstructure:"max_attempts" split_words:"true"`
}

type ChatConfig struct {
	DailyLimit int `mapstructure:"daily_limit" split_words:"true"`
}

type OutboxConfig struct {
	BatchSize       int           `mapstructure:"batch_size" split_words:"true"`
	PollInterval    time.Duration `mapstructure:"poll_interval" split_words:"true"`
	RetryAttempts   int           `mapstructure:"retry_attempts" split_words:"true"`
	RetryDelay      time.Duration `mapstructure:"retry_delay" split_words:"true"`
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" split_words:"true"`
	HealthPort      int           `mapstructure:"health_port" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" split_words:"true"`
	AllowedMethods []string `mapstructure:"allowed_methods" split_words:"true"`
	AllowedHeaders []string `mapstructure:"allowed_headers" split_words:"true"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("jwt.issuer", "health-analytics")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("edge.timeout", 30*time.Second)
	v.SetDefault("edge.recommendations_timeout", 15*time.Second)
	v.SetDefault("edge.max_retries", 2)
	v.SetDefault("edge.breaker_max_failures", 5)
	v.SetDefault("edge.breaker_reset_timeout", 30*time.Second)

	v.SetDefault("analytics.cache_ttl", 5*time.Minute)
	v.SetDefault("analytics.cache_cleanup", 10*time.Minute)
	v.SetDefault("analytics.regenerate_retries", 3)
	v.SetDefault("analytics.locale", "ru")

	v.SetDefault("realtime.base_delay", time.Second)
	v.SetDefault("realtime.max_delay", 30*time.Second)
	v.SetDefault("realtime.max_attempts", 5)

	v.SetDefault("chat.daily_limit", 20)

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", time.Second)
	v.SetDefault("outbox.retention", 7*24*time.Hour)
	v.SetDefault("outbox.cleanup_interval", time.Hour)
	v.SetDefault("outbox.health_port", 8081)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization", "Accept-Language", "X-Request-ID"})

	v.SetDefault("email.port", 587)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadConfig reads config.yml from the usual locations and applies HA_* environment overrides.
func LoadConfig() (*Config, error) {
	return Load(defaultSearchPaths...)
}

// Load is LoadConfig with explicit search paths. A missing file is not an error;
// defaults and environment still apply.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	switch {
	case c.JWT.Secret == "":
		return errors.New("jwt.secret is required")
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	case c.Realtime.MaxAttempts <= 0:
		return errors.New("realtime.max_attempts must be positive")
	case c.Realtime.BaseDelay <= 0 || c.Realtime.MaxDelay < c.Realtime.BaseDelay:
		return errors.New("realtime delays must satisfy 0 < base_delay <= max_delay")
	case c.Chat.DailyLimit <= 0:
		return errors.New("chat.daily_limit must be positive")
	case c.Email.Enabled && (c.Email.Host == "" || c.Email.From == ""):
		return errors.New("email.host and email.from are required when email is enabled")
	}
	return nil
}
