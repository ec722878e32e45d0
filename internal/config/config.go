// Package config loads the YAML configuration shared by the processor
// and clients. Section and key names mirror the config files already
// deployed with the system, so existing configs keep working after
// conversion from JSON to YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from either a Go
// duration string ("200ms", "1.5s") or a bare number of seconds, the
// form older config files used.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds float64
	if err := value.Decode(&seconds); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// SharedFolderConfig names the two directories of the file-drop
// transport.
type SharedFolderConfig struct {
	Requests  string `yaml:"requests"`
	Responses string `yaml:"responses"`
}

// DatabaseConfig locates the SQLite database and its backups.
type DatabaseConfig struct {
	Path       string `yaml:"path"`
	BackupPath string `yaml:"backup_path"`
}

// ProcessorConfig tunes the server side.
type ProcessorConfig struct {
	PollInterval          Duration `yaml:"poll_interval"`
	MaxConcurrentRequests int      `yaml:"max_concurrent_requests"`
}

// ClientConfig tunes the client side.
type ClientConfig struct {
	PollInterval   Duration `yaml:"poll_interval"`
	RequestTimeout Duration `yaml:"request_timeout"`
	RetryAttempts  int      `yaml:"retry_attempts"`
	RetryDelay     Duration `yaml:"retry_delay"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// NotifyConfig configures the ticket-update notifier.
type NotifyConfig struct {
	Enabled   bool              `yaml:"enabled"`
	Table     string            `yaml:"table"`
	Outbox    string            `yaml:"outbox"`
	Sender    string            `yaml:"sender"`
	Addresses map[string]string `yaml:"addresses"`
}

// Config is the full configuration document.
type Config struct {
	SharedFolder SharedFolderConfig `yaml:"shared_folder"`
	Database     DatabaseConfig     `yaml:"database"`
	Processor    ProcessorConfig    `yaml:"processor"`
	Client       ClientConfig       `yaml:"client"`
	Logging      LoggingConfig      `yaml:"logging"`
	Notify       NotifyConfig       `yaml:"notify"`
}

// Default returns a configuration with every tunable at its default.
// Paths are empty and must be filled in by the caller or the file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Processor.PollInterval <= 0 {
		c.Processor.PollInterval = Duration(100 * time.Millisecond)
	}
	if c.Processor.MaxConcurrentRequests <= 0 {
		c.Processor.MaxConcurrentRequests = 10
	}
	if c.Client.PollInterval <= 0 {
		c.Client.PollInterval = Duration(200 * time.Millisecond)
	}
	if c.Client.RequestTimeout <= 0 {
		c.Client.RequestTimeout = Duration(30 * time.Second)
	}
	if c.Client.RetryAttempts <= 0 {
		c.Client.RetryAttempts = 3
	}
	if c.Client.RetryDelay <= 0 {
		c.Client.RetryDelay = Duration(time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Notify.Table == "" {
		c.Notify.Table = "tickets"
	}
}

// Load reads, parses and validates a config file, applying defaults
// for absent tunables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks that the required paths are present.
func (c *Config) Validate() error {
	if c.SharedFolder.Requests == "" {
		return fmt.Errorf("shared_folder.requests is required")
	}
	if c.SharedFolder.Responses == "" {
		return fmt.Errorf("shared_folder.responses is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

// LogLevel maps the configured level name to a slog.Level.
// Unknown names fall back to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
