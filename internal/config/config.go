// Package config loads service configuration from an optional YAML file
// with environment-variable overrides. Every knob has a default; a
// missing config file is not an error.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	// AuthSecret signs and verifies API tokens. Empty disables auth,
	// for local use only.
	AuthSecret string `mapstructure:"auth_secret"`
}

// ProviderConfig selects the completion provider and model for a run.
type ProviderConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	// APIKeyEnv names the environment variable holding the key. The key
	// itself never appears in config files.
	APIKeyEnv   string  `mapstructure:"api_key_env"`
	Temperature float64 `mapstructure:"temperature"`
}

// PipelineConfig holds the run-level orchestration knobs.
type PipelineConfig struct {
	// MinAgents is the usable-payload floor below which the synthesis
	// report carries a reliability warning.
	MinAgents int `mapstructure:"min_agents"`
	// CourtesyDelay is the minimum pause between completion calls.
	CourtesyDelay time.Duration `mapstructure:"courtesy_delay"`
	// RequestsPerMinute caps the completion call rate; 0 leaves only
	// the courtesy delay.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	// TemplateDir optionally layers YAML prompt templates over the
	// built-in set.
	TemplateDir string `mapstructure:"template_dir"`
	// WatchTemplates reloads the template directory on change.
	WatchTemplates bool `mapstructure:"watch_templates"`
}

// BreakerConfig holds the completion transport circuit breaker knobs.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

// StorageConfig holds the archive and cache backends. Both are
// optional; an empty DSN or address disables that backend.
type StorageConfig struct {
	PostgresDSN string        `mapstructure:"postgres_dsn"`
	RedisAddr   string        `mapstructure:"redis_addr"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	// InsightsDir is the root of the file-based insight store.
	InsightsDir string `mapstructure:"insights_dir"`
}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Provider ProviderConfig `mapstructure:"provider"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Storage  StorageConfig  `mapstructure:"storage"`
	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("provider.provider", "openai")
	v.SetDefault("provider.model", "gpt-4o")
	v.SetDefault("provider.temperature", 0.7)
	v.SetDefault("pipeline.min_agents", 2)
	v.SetDefault("pipeline.courtesy_delay", 2*time.Second)
	v.SetDefault("pipeline.requests_per_minute", 0)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.success_threshold", 2)
	v.SetDefault("breaker.open_timeout", 30*time.Second)
	v.SetDefault("storage.cache_ttl", 24*time.Hour)
	v.SetDefault("storage.insights_dir", "insights")
	v.SetDefault("log_level", "info")
}

// Load reads configuration from path, or from LISTINGINTEL_CONFIG when
// path is empty. A missing file yields pure defaults plus env
// overrides. Env vars use the LISTINGINTEL_ prefix with underscores,
// e.g. LISTINGINTEL_SERVER_ADDR.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LISTINGINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("LISTINGINTEL_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider.Provider {
	case "openai", "anthropic", "google":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Provider)
	}
	if c.Pipeline.MinAgents < 0 {
		return fmt.Errorf("pipeline.min_agents must not be negative")
	}
	if c.Pipeline.CourtesyDelay < 0 {
		return fmt.Errorf("pipeline.courtesy_delay must not be negative")
	}
	return nil
}
