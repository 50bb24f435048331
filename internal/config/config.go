// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Rendered RenderedConfig `mapstructure:"rendered"`
	Index    IndexConfig    `mapstructure:"index"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	DB       DBConfig       `mapstructure:"db"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls the observability HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// FetchConfig governs the plain HTTP fetch path and its retry policy.
type FetchConfig struct {
	TimeoutMs         int      `mapstructure:"timeout_ms"`
	MaxAttempts       int      `mapstructure:"max_attempts"`
	BackoffInitialMs  int      `mapstructure:"backoff_initial_ms"`
	BackoffMultiplier float64  `mapstructure:"backoff_multiplier"`
	BackoffMaxMs      int      `mapstructure:"backoff_max_ms"`
	UserAgent         string   `mapstructure:"user_agent"`
	AllowedDomains    []string `mapstructure:"allowed_domains"`
}

// RenderedConfig configures the headless rendering escape hatch.
type RenderedConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	URLPatterns   []string `mapstructure:"url_patterns"`
	MaxParallel   int      `mapstructure:"max_parallel"`
	NavTimeoutSec int      `mapstructure:"nav_timeout_seconds"`
	QuiescenceMs  int      `mapstructure:"quiescence_ms"`
}

// IndexConfig governs batch indexing behavior.
type IndexConfig struct {
	BatchSize  int  `mapstructure:"batch_size"`
	Parallel   bool `mapstructure:"parallel"`
	MaxWorkers int  `mapstructure:"max_workers"`
}

// JobConfig is the enable flag and schedule for one named job.
type JobConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

// JobsConfig holds per-job schedules.
type JobsConfig struct {
	ComprehensiveSync JobConfig `mapstructure:"comprehensive_sync"`
	DailySync         JobConfig `mapstructure:"daily_sync"`
	VersionDetect     JobConfig `mapstructure:"version_detect"`
	WeeklyRefresh     JobConfig `mapstructure:"weekly_refresh"`
	MonthlyCleanup    JobConfig `mapstructure:"monthly_cleanup"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// UpstreamConfig locates the source-of-truth version feed.
type UpstreamConfig struct {
	FeedURL        string `mapstructure:"feed_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCFOUNDRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.timeout_ms", 15000)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.backoff_initial_ms", 250)
	v.SetDefault("fetch.backoff_multiplier", 2.0)
	v.SetDefault("fetch.backoff_max_ms", 5000)
	v.SetDefault("fetch.user_agent", "docfoundry-bot/0.1")
	v.SetDefault("rendered.enabled", false)
	v.SetDefault("rendered.max_parallel", 1)
	v.SetDefault("rendered.nav_timeout_seconds", 25)
	v.SetDefault("rendered.quiescence_ms", 500)
	v.SetDefault("index.batch_size", 50)
	v.SetDefault("index.parallel", true)
	v.SetDefault("index.max_workers", 4)
	v.SetDefault("jobs.comprehensive_sync.enabled", true)
	v.SetDefault("jobs.comprehensive_sync.cron", "0 1 * * *")
	v.SetDefault("jobs.daily_sync.enabled", true)
	v.SetDefault("jobs.daily_sync.cron", "0 3 * * *")
	v.SetDefault("jobs.version_detect.enabled", true)
	v.SetDefault("jobs.version_detect.cron", "0 * * * *")
	v.SetDefault("jobs.weekly_refresh.enabled", true)
	v.SetDefault("jobs.weekly_refresh.cron", "0 5 * * 0")
	v.SetDefault("jobs.monthly_cleanup.enabled", true)
	v.SetDefault("jobs.monthly_cleanup.cron", "0 6 1 * *")
	v.SetDefault("upstream.timeout_seconds", 30)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.TimeoutMs <= 0 {
		return fmt.Errorf("fetch.timeout_ms must be > 0")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	if c.Fetch.BackoffMultiplier < 1 {
		return fmt.Errorf("fetch.backoff_multiplier must be >= 1")
	}
	if len(c.Fetch.AllowedDomains) == 0 {
		return fmt.Errorf("fetch.allowed_domains must not be empty")
	}
	if c.Index.BatchSize <= 0 {
		return fmt.Errorf("index.batch_size must be > 0")
	}
	if c.Index.Parallel && c.Index.MaxWorkers <= 0 {
		return fmt.Errorf("index.max_workers must be > 0 when index.parallel is enabled")
	}
	if c.Rendered.Enabled && c.Rendered.MaxParallel <= 0 {
		return fmt.Errorf("rendered.max_parallel must be > 0 when rendered is enabled")
	}
	return nil
}

// FetchTimeout converts the configured fetch timeout into a Duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutMs) * time.Millisecond
}
