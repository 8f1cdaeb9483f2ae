package shared

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// StorageDrivers lists the accepted values for session.storage.
var StorageDrivers = []string{"memory", "file", "sqlite", "redis"}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Session  SessionConfig  `toml:"session"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// APIConfig describes the remote band API and how requests to it are retried.
type APIConfig struct {
	BaseURL           string   `toml:"base_url"`
	LoginURL          string   `toml:"login_url"`
	MaxRetries        int      `toml:"max_retries"`
	RetryBaseDelay    Duration `toml:"retry_base_delay"`
	RetryMaxDelay     Duration `toml:"retry_max_delay"`
	AttemptTimeout    Duration `toml:"attempt_timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	OpenBrowser       bool     `toml:"open_browser_on_unauthorized"`
}

// SessionConfig contains token storage and renewal timings.
type SessionConfig struct {
	Storage            string   `toml:"storage"`
	Dir                string   `toml:"dir"`
	ExpiryBuffer       Duration `toml:"expiry_buffer"`
	RenewalLead        Duration `toml:"renewal_lead"`
	MinimumDelay       Duration `toml:"minimum_delay"`
	ProactiveWindow    Duration `toml:"proactive_window"`
	RefreshTimeout     Duration `toml:"refresh_timeout"`
	BackgroundCooldown Duration `toml:"background_cooldown"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig contains settings for the redis session store.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// ServerConfig contains local proxy server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps [time.Duration] so it can be written as "5m" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a [time.ParseDuration] string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Addr returns the host:port the proxy listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	case c.API.MaxRetries < 0:
		return fmt.Errorf("%w: api.max_retries must not be negative", ErrInvalidConfig)
	case c.API.RequestsPerSecond < 0:
		return fmt.Errorf("%w: api.requests_per_second must not be negative", ErrInvalidConfig)
	case !slices.Contains(StorageDrivers, c.Session.Storage):
		return fmt.Errorf("%w: unknown session.storage %q", ErrInvalidConfig, c.Session.Storage)
	case c.Session.Storage == "redis" && c.Redis.Addr == "":
		return fmt.Errorf("%w: redis.addr is required for redis storage", ErrInvalidConfig)
	}
	return nil
}
