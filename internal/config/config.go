package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvProd is the only environment that registers the error monitor.
const EnvProd = "prod"

// Config holds all configuration for the jobs letter command
type Config struct {
	Env      string         `yaml:"env"`
	LogLevel string         `yaml:"log_level"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Mailjet  MailjetConfig  `yaml:"mailjet"`
	Sentry   SentryConfig   `yaml:"sentry"`
	Router   RouterConfig   `yaml:"router"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

// DatabaseConfig holds the PostgreSQL connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig holds the optional Redis used for run locks
type RedisConfig struct {
	URL string `yaml:"url"`
}

// MailjetConfig holds Mailjet API configuration
type MailjetConfig struct {
	APIKey         string `yaml:"api_key"`
	SecretKey      string `yaml:"secret_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ContactListID  int    `yaml:"contact_list_id"`
	SenderID       string `yaml:"sender_id"`
}

// Timeout returns the configured timeout as a duration
func (c MailjetConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SentryConfig holds the error monitor settings
type SentryConfig struct {
	DSN            string `yaml:"dsn"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MonitorSlug    string `yaml:"monitor_slug"`
}

// Timeout returns the configured timeout as a duration
func (c SentryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RouterConfig is the host and scheme used for absolute links rendered
// outside of a web request.
type RouterConfig struct {
	Host     string `yaml:"host"`
	Scheme   string `yaml:"scheme"`
	BasePath string `yaml:"base_path"`
}

// ScheduleConfig holds the daemon settings
type ScheduleConfig struct {
	Timezone   string `yaml:"timezone"`
	StatusAddr string `yaml:"status_addr"`
	LockTTLMin int    `yaml:"lock_ttl_minutes"`
}

// Location resolves the schedule time zone.
func (c ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// LockTTL returns how long an overlap lock may live.
func (c ScheduleConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMin) * time.Minute
}

// ArchiveConfig holds the S3 bucket that keeps a copy of every rendered letter
type ArchiveConfig struct {
	Bucket     string `yaml:"bucket"`
	Region     string `yaml:"region"`
	AWSProfile string `yaml:"aws_profile"` // empty uses the default credential chain
	Prefix     string `yaml:"prefix"`
}

// Enabled reports whether letters should be archived.
func (c ArchiveConfig) Enabled() bool { return c.Bucket != "" }

// SentryEnabled reports whether the error monitor is registered.
func (c *Config) SentryEnabled() bool {
	return c.Env == EnvProd && c.Sentry.DSN != ""
}

// Load reads and parses the configuration file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 2
	}
	if cfg.Mailjet.BaseURL == "" {
		cfg.Mailjet.BaseURL = "https://api.mailjet.com"
	}
	if cfg.Mailjet.TimeoutSeconds == 0 {
		cfg.Mailjet.TimeoutSeconds = 30
	}
	if cfg.Sentry.TimeoutSeconds == 0 {
		cfg.Sentry.TimeoutSeconds = 10
	}
	if cfg.Sentry.MonitorSlug == "" {
		cfg.Sentry.MonitorSlug = "jobs-letter"
	}
	if cfg.Router.Scheme == "" {
		cfg.Router.Scheme = "https"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "UTC"
	}
	if cfg.Schedule.LockTTLMin == 0 {
		cfg.Schedule.LockTTLMin = 30
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "eu-west-3"
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "jobsletter"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file in the working directory is loaded first when present.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"APP_ENV":               &cfg.Env,
		"LOG_LEVEL":             &cfg.LogLevel,
		"DATABASE_URL":          &cfg.Database.URL,
		"REDIS_URL":             &cfg.Redis.URL,
		"MAILJET_API_KEY":       &cfg.Mailjet.APIKey,
		"MAILJET_SECRET_KEY":    &cfg.Mailjet.SecretKey,
		"MAILJET_BASE_URL":      &cfg.Mailjet.BaseURL,
		"MAILJET_SENDER_ID":     &cfg.Mailjet.SenderID,
		"SENTRY_DSN":            &cfg.Sentry.DSN,
		"COMMAND_ROUTER_HOST":   &cfg.Router.Host,
		"COMMAND_ROUTER_SCHEME": &cfg.Router.Scheme,
		"COMMAND_ROUTER_BASE":   &cfg.Router.BasePath,
		"SCHEDULE_TIMEZONE":     &cfg.Schedule.Timezone,
		"STATUS_ADDR":           &cfg.Schedule.StatusAddr,
		"LETTER_ARCHIVE_BUCKET": &cfg.Archive.Bucket,
		"LETTER_ARCHIVE_REGION": &cfg.Archive.Region,
		"AWS_PROFILE_OVERRIDE":  &cfg.Archive.AWSProfile,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("MAILJET_CONTACT_LIST_ID"); v != "" {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("MAILJET_CONTACT_LIST_ID: %q is not an integer", v)
		}
		cfg.Mailjet.ContactListID = id
	}

	return cfg, nil
}

// Validate checks the values the send command cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database url is required (DATABASE_URL)"))
	}
	// The Postgres run lock pins one connection for the whole run.
	if c.Database.MaxOpenConns < 2 {
		errs = append(errs, fmt.Errorf("database max_open_conns must be at least 2, got %d", c.Database.MaxOpenConns))
	}
	if c.Mailjet.APIKey == "" || c.Mailjet.SecretKey == "" {
		errs = append(errs, errors.New("mailjet credentials are required (MAILJET_API_KEY, MAILJET_SECRET_KEY)"))
	}
	if c.Mailjet.ContactListID <= 0 {
		errs = append(errs, errors.New("mailjet contact list id must be positive (MAILJET_CONTACT_LIST_ID)"))
	}
	if c.Mailjet.SenderID == "" {
		errs = append(errs, errors.New("mailjet sender id is required (MAILJET_SENDER_ID)"))
	}
	if c.Router.Host == "" {
		errs = append(errs, errors.New("router host is required (COMMAND_ROUTER_HOST)"))
	}
	if c.Router.Scheme != "http" && c.Router.Scheme != "https" {
		errs = append(errs, fmt.Errorf("router scheme must be http or https, got %q", c.Router.Scheme))
	}
	if _, err := c.Schedule.Location(); err != nil {
		errs = append(errs, fmt.Errorf("schedule timezone: %w", err))
	}
	return errors.Join(errs...)
}
