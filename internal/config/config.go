// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	WB            WBConfig            `yaml:"wb"`
	Polling       PollingConfig       `yaml:"polling"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Alerts        AlertsConfig        `yaml:"alerts"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
	Tracing       TracingConfig       `yaml:"tracing"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// WBConfig defines the marketplace API client settings.
type WBConfig struct {
	Token      string        `yaml:"token"`
	Sandbox    bool          `yaml:"sandbox"`
	BaseURL    string        `yaml:"base_url"` // overrides every category host
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	UserAgent  string        `yaml:"user_agent"`
	// RateLimits overrides the default limits, keyed by category name.
	RateLimits map[string]wb.RateLimit `yaml:"rate_limits"`
}

// ClientConfig converts the section into a wb.ClientConfig.
func (c *WBConfig) ClientConfig() (wb.ClientConfig, error) {
	out := wb.ClientConfig{
		Token:      c.Token,
		Timeout:    c.Timeout,
		MaxRetries: c.MaxRetries,
		RetryDelay: c.RetryDelay,
		Sandbox:    c.Sandbox,
		BaseURL:    c.BaseURL,
	}
	if len(c.RateLimits) > 0 {
		out.RateLimits = make(map[wb.Category]wb.RateLimit, len(c.RateLimits))
		for name, rl := range c.RateLimits {
			cat, err := wb.ParseCategory(name)
			if err != nil {
				return wb.ClientConfig{}, fmt.Errorf("wb.rate_limits: %w", err)
			}
			out.RateLimits[cat] = rl
		}
	}
	return out, nil
}

// PollingConfig defines how long-running tasks are awaited.
type PollingConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	Interval      time.Duration `yaml:"interval"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	MaxInterval   time.Duration `yaml:"max_interval"`
}

// Options returns poller options applying this section.
func (p *PollingConfig) Options() []wb.PollerOption {
	return []wb.PollerOption{
		wb.WithTimeout(p.Timeout),
		wb.WithInterval(p.Interval),
		wb.WithBackoff(p.BackoffFactor, p.MaxInterval),
	}
}

// ScheduleConfig defines cron intervals.
type ScheduleConfig struct {
	BalanceInterval time.Duration `yaml:"balance_interval"`
	TaskInterval    time.Duration `yaml:"task_interval"`
	LimitsInterval  time.Duration `yaml:"limits_interval"`
	// TaskBudget bounds how long one task-poll run waits on each task.
	TaskBudget time.Duration `yaml:"task_budget"`
	// TaskConcurrency is how many tracked tasks are polled at once.
	TaskConcurrency int `yaml:"task_concurrency"`
}

// AlertsConfig defines alert behavior.
type AlertsConfig struct {
	LowBalanceThreshold float64 `yaml:"low_balance_threshold"` // 0 disables
	TaskFailures        bool    `yaml:"task_failures"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Discord DiscordConfig `yaml:"discord"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, pretty
}

// TracingConfig defines OpenTelemetry export settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadClient reads only what the direct marketplace commands need: the wb,
// polling and logging sections. A missing file is not an error; the token
// then comes from WB_TOKEN.
func LoadClient(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	if cfg.WB.Token == "" {
		cfg.WB.Token = os.Getenv("WB_TOKEN")
	}

	applyDefaults(cfg)

	if err := errors.Join(validateWB(&cfg.WB), validatePolling(&cfg.Polling)); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyWBDefaults(&cfg.WB)
	applyPollingDefaults(&cfg.Polling)
	applyScheduleDefaults(&cfg.Schedule)
	applyLoggingDefaults(&cfg.Logging)
	applyTracingDefaults(&cfg.Tracing)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyWBDefaults(w *WBConfig) {
	if w.Timeout == 0 {
		w.Timeout = wb.DefaultTimeout
	}
	if w.MaxRetries == 0 {
		w.MaxRetries = wb.DefaultMaxRetries
	}
	if w.RetryDelay == 0 {
		w.RetryDelay = wb.DefaultRetryDelay
	}
	if w.UserAgent == "" {
		w.UserAgent = wb.DefaultUserAgent
	}
}

func applyPollingDefaults(p *PollingConfig) {
	if p.Timeout == 0 {
		p.Timeout = wb.DefaultTaskTimeout
	}
	if p.Interval == 0 {
		p.Interval = wb.DefaultPollInterval
	}
	if p.BackoffFactor == 0 {
		p.BackoffFactor = wb.DefaultBackoffFactor
	}
	if p.MaxInterval == 0 {
		p.MaxInterval = wb.DefaultMaxInterval
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.BalanceInterval == 0 {
		s.BalanceInterval = time.Hour
	}
	if s.TaskInterval == 0 {
		s.TaskInterval = time.Minute
	}
	if s.LimitsInterval == 0 {
		s.LimitsInterval = 5 * time.Minute
	}
	if s.TaskBudget == 0 {
		s.TaskBudget = 20 * time.Second
	}
	if s.TaskConcurrency == 0 {
		s.TaskConcurrency = 4
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func applyTracingDefaults(t *TracingConfig) {
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4317"
	}
	if t.ServiceName == "" {
		t.ServiceName = "wb-seller-tracker"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}

	errs = append(errs, validateWB(&cfg.WB), validatePolling(&cfg.Polling))

	if cfg.Schedule.TaskConcurrency < 0 {
		errs = append(errs, fmt.Errorf("schedule.task_concurrency must be positive"))
	}

	if cfg.Alerts.LowBalanceThreshold < 0 {
		errs = append(errs, fmt.Errorf("alerts.low_balance_threshold must be non-negative"))
	}

	if cfg.Notifications.Discord.Enabled && cfg.Notifications.Discord.WebhookURL == "" {
		errs = append(
			errs,
			fmt.Errorf("notifications.discord.webhook_url is required when discord is enabled"),
		)
	}

	if !slices.Contains([]string{"text", "json", "pretty"}, cfg.Logging.Format) {
		errs = append(
			errs,
			fmt.Errorf("logging.format must be one of: text, json, pretty (got %q)", cfg.Logging.Format),
		)
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be within 0-1"))
	}

	return errors.Join(errs...)
}

func validateWB(w *WBConfig) error {
	var errs []error

	if w.Token == "" {
		errs = append(errs, fmt.Errorf("wb.token is required"))
	}
	if w.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("wb.max_retries must be non-negative"))
	}
	for name, rl := range w.RateLimits {
		if _, err := wb.ParseCategory(name); err != nil {
			errs = append(errs, fmt.Errorf("wb.rate_limits: %w", err))
			continue
		}
		if rl.RPM <= 0 || rl.Burst <= 0 {
			errs = append(errs, fmt.Errorf("wb.rate_limits.%s: rpm and burst must be positive", name))
		}
	}

	return errors.Join(errs...)
}

func validatePolling(p *PollingConfig) error {
	var errs []error

	if p.BackoffFactor < 1 {
		errs = append(errs, fmt.Errorf("polling.backoff_factor must be at least 1 (got %g)", p.BackoffFactor))
	}
	if p.Timeout < 0 || p.Interval < 0 || p.MaxInterval < 0 {
		errs = append(errs, fmt.Errorf("polling durations must be non-negative"))
	}

	return errors.Join(errs...)
}
