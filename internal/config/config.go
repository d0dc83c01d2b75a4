package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/circuitbreaker"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/render"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/tracing"
)

// EnvPrefix is prepended to every environment override, e.g. WIDGET_BACKEND_URL.
const EnvPrefix = "WIDGET"

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig selects the limiter. An empty RedisURL keeps counters in
// process; RequestsPerMinute <= 0 disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Burst             int    `mapstructure:"burst"`
	RedisURL          string `mapstructure:"redis_url"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SourcesConfig struct {
	BrandsFile string `mapstructure:"brands_file"`
}

// Config is the full widget configuration.
type Config struct {
	Server    ServerConfig            `mapstructure:"server"`
	Backend   BackendConfig           `mapstructure:"backend"`
	Breaker   circuitbreaker.Settings `mapstructure:"breaker"`
	RateLimit RateLimitConfig         `mapstructure:"ratelimit"`
	Tracing   tracing.Config          `mapstructure:"tracing"`
	Logging   LoggingConfig           `mapstructure:"logging"`
	Widget    render.Config           `mapstructure:"widget"`
	Sources   SourcesConfig           `mapstructure:"sources"`
}

// SetDefaults registers every key with its default value so that env
// overrides resolve even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("backend.url", "http://localhost:5000")
	v.SetDefault("backend.timeout", 60*time.Second)

	b := circuitbreaker.DefaultSettings()
	v.SetDefault("breaker.max_half_open_requests", b.MaxHalfOpenRequests)
	v.SetDefault("breaker.interval", b.Interval)
	v.SetDefault("breaker.open_timeout", b.OpenTimeout)
	v.SetDefault("breaker.failure_threshold", b.FailureThreshold)
	v.SetDefault("breaker.success_threshold", b.SuccessThreshold)

	v.SetDefault("ratelimit.requests_per_minute", 60)
	v.SetDefault("ratelimit.burst", 10)
	v.SetDefault("ratelimit.redis_url", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "nestle-chat-widget")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	w := render.DefaultConfig()
	v.SetDefault("widget.assistant_name", w.AssistantName)
	v.SetDefault("widget.preview_sources", w.PreviewCount)

	v.SetDefault("sources.brands_file", "")
}

// New returns a viper instance with defaults and WIDGET_ env overrides.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional YAML file at path into v and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Backend.URL == "" {
		errs = append(errs, errors.New("backend.url is required"))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("ratelimit.burst must not be negative"))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
