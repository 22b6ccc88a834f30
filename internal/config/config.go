// File: internal/config/config.go
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// DriverType selects the family of actions a remote engine understands.
type DriverType string

const (
	DriverWeb     DriverType = "web"
	DriverWindows DriverType = "windows"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig            `mapstructure:"logger" yaml:"logger"`
	Remote   RemoteConfig            `mapstructure:"remote" yaml:"remote"`
	Drivers  map[string]DriverConfig `mapstructure:"drivers" yaml:"drivers"`
	Script   ScriptConfig            `mapstructure:"script" yaml:"script"`
	Messages MessagesConfig          `mapstructure:"messages" yaml:"messages"`
	Store    StoreConfig             `mapstructure:"store" yaml:"store"`
	Metrics  MetricsConfig           `mapstructure:"metrics" yaml:"metrics"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// RemoteConfig tunes how the bridge talks to remote automation engines.
type RemoteConfig struct {
	// ResponseTimeout bounds WaitAndGet when a request does not carry its own timeout.
	ResponseTimeout time.Duration `mapstructure:"response_timeout" yaml:"response_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	// RequestsPerSecond throttles outgoing engine calls. Zero disables throttling.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	IgnoreTLSErrors   bool    `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ForceHTTP2        bool    `mapstructure:"force_http2" yaml:"force_http2"`
	// DisposeConcurrency limits parallel session closes during shutdown.
	DisposeConcurrency int `mapstructure:"dispose_concurrency" yaml:"dispose_concurrency"`
}

// DriverConfig describes one entry of the drivers mapping.
type DriverConfig struct {
	Type DriverType `mapstructure:"type" yaml:"type"`
	URL  string     `mapstructure:"url" yaml:"url"`
}

// ScriptConfig configures the script compiler.
type ScriptConfig struct {
	TemplatesDir string            `mapstructure:"templates_dir" yaml:"templates_dir"`
	Variables    map[string]string `mapstructure:"variables" yaml:"variables"`
}

// MessagesConfig configures raw message production and batching.
type MessagesConfig struct {
	SessionAlias           string `mapstructure:"session_alias" yaml:"session_alias"`
	ScreenshotSessionAlias string `mapstructure:"screenshot_session_alias" yaml:"screenshot_session_alias"`
	SessionGroup           string `mapstructure:"session_group" yaml:"session_group"`
	BatchLimit             int64  `mapstructure:"batch_limit" yaml:"batch_limit"`
	StoreActionMessages    bool   `mapstructure:"store_action_messages" yaml:"store_action_messages"`
}

// StoreConfig selects where raw messages and events are written.
type StoreConfig struct {
	Type     string         `mapstructure:"type" yaml:"type"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	NATS     NATSConfig     `mapstructure:"nats" yaml:"nats"`
}

// PostgresConfig holds the database connection details.
type PostgresConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NATSConfig holds the message bus connection details.
type NATSConfig struct {
	URL           string        `mapstructure:"url" yaml:"url"`
	Name          string        `mapstructure:"name" yaml:"name"`
	SubjectPrefix string        `mapstructure:"subject_prefix" yaml:"subject_prefix"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MetricsConfig controls the prometheus listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

const (
	StoreTypeLog      = "log"
	StoreTypePostgres = "postgres"
	StoreTypeNATS     = "nats"
)

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "handbridge")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Remote engine --
	v.SetDefault("remote.response_timeout", "120s")
	v.SetDefault("remote.poll_interval", "1s")
	v.SetDefault("remote.request_timeout", "30s")
	v.SetDefault("remote.requests_per_second", 0)
	v.SetDefault("remote.ignore_tls_errors", false)
	v.SetDefault("remote.force_http2", false)
	v.SetDefault("remote.dispose_concurrency", 8)

	// -- Drivers --
	v.SetDefault("drivers", map[string]any{
		"default": map[string]any{"type": string(DriverWeb), "url": "http://localhost:8008"},
	})

	// -- Script --
	v.SetDefault("script.templates_dir", "~/.handbridge/templates")

	// -- Messages --
	v.SetDefault("messages.session_alias", "th2-hand")
	v.SetDefault("messages.screenshot_session_alias", "")
	v.SetDefault("messages.session_group", "")
	v.SetDefault("messages.batch_limit", 1024*1024)
	v.SetDefault("messages.store_action_messages", false)

	// -- Store --
	v.SetDefault("store.type", StoreTypeLog)
	v.SetDefault("store.nats.name", "handbridge")
	v.SetDefault("store.nats.subject_prefix", "handbridge")
	v.SetDefault("store.nats.timeout", "5s")

	// -- Metrics --
	v.SetDefault("metrics.addr", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.BindEnv("store.postgres.url", "HANDBRIDGE_DATABASE_URL")
	v.BindEnv("store.nats.url", "HANDBRIDGE_NATS_URL")
	v.BindEnv("drivers_mapping", "HANDBRIDGE_DRIVERS_MAPPING")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// The compact mapping string overrides whatever the config file declared.
	if raw := v.GetString("drivers_mapping"); raw != "" {
		drivers, err := ParseDriversMapping(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid drivers mapping: %w", err)
		}
		cfg.Drivers = drivers
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.Script.TemplatesDir != "" {
		dir, err := homedir.Expand(c.Script.TemplatesDir)
		if err != nil {
			return fmt.Errorf("failed to expand templates dir: %w", err)
		}
		c.Script.TemplatesDir = dir
	}
	if c.Messages.ScreenshotSessionAlias == "" {
		c.Messages.ScreenshotSessionAlias = c.Messages.SessionAlias + "_screenshots"
	}
	return nil
}

// ScreenshotAlias returns the alias screenshots are stored under.
func (m MessagesConfig) ScreenshotAlias() string {
	if m.ScreenshotSessionAlias != "" {
		return m.ScreenshotSessionAlias
	}
	return m.SessionAlias + "_screenshots"
}

// DriverNames returns the configured driver kinds in sorted order.
func (c *Config) DriverNames() []string {
	names := make([]string, 0, len(c.Drivers))
	for name := range c.Drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if len(c.Drivers) == 0 {
		return fmt.Errorf("drivers must declare at least one driver")
	}
	for name, d := range c.Drivers {
		if d.URL == "" {
			return fmt.Errorf("drivers.%s.url is required", name)
		}
		if d.Type != DriverWeb && d.Type != DriverWindows {
			return fmt.Errorf("drivers.%s.type must be %q or %q, got %q", name, DriverWeb, DriverWindows, d.Type)
		}
	}
	if c.Remote.ResponseTimeout <= 0 {
		return fmt.Errorf("remote.response_timeout must be a positive duration")
	}
	if c.Remote.PollInterval <= 0 {
		return fmt.Errorf("remote.poll_interval must be a positive duration")
	}
	if c.Remote.RequestsPerSecond < 0 {
		return fmt.Errorf("remote.requests_per_second must not be negative")
	}
	if c.Messages.SessionAlias == "" {
		return fmt.Errorf("messages.session_alias is required")
	}
	if c.Messages.BatchLimit <= 0 {
		return fmt.Errorf("messages.batch_limit must be a positive integer")
	}
	switch c.Store.Type {
	case StoreTypeLog:
	case StoreTypePostgres:
		if c.Store.Postgres.URL == "" {
			return fmt.Errorf("store.postgres.url is required when store.type is postgres")
		}
	case StoreTypeNATS:
		if c.Store.NATS.URL == "" {
			return fmt.Errorf("store.nats.url is required when store.type is nats")
		}
	default:
		return fmt.Errorf("unknown store.type %q", c.Store.Type)
	}
	return nil
}

// ParseDriversMapping reads the compact form name=type@url;name2=type@url.
func ParseDriversMapping(raw string) (map[string]DriverConfig, error) {
	drivers := make(map[string]DriverConfig)
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rest, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q: missing '='", entry)
		}
		kind, url, ok := strings.Cut(rest, "@")
		if !ok {
			return nil, fmt.Errorf("entry %q: missing '@'", entry)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("entry %q: empty driver name", entry)
		}
		drivers[name] = DriverConfig{
			Type: DriverType(strings.ToLower(strings.TrimSpace(kind))),
			URL:  strings.TrimSpace(url),
		}
	}
	if len(drivers) == 0 {
		return nil, fmt.Errorf("no drivers declared")
	}
	return drivers, nil
}
