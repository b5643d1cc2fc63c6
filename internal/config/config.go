// Package config loads and validates the bridge configuration. Values are
// layered: compiled defaults, then an optional yaml file, then EPOSPROXY_*
// environment variables, then whatever flags the entrypoint applies on top.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Printer PrinterConfig `yaml:"printer"`
	Retry   RetryConfig   `yaml:"retry"`
	Journal JournalConfig `yaml:"journal"`
	Admin   AdminConfig   `yaml:"admin"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	HTTPS        bool          `yaml:"https"`
	CertFile     string        `yaml:"cert_file"`
	KeyFile      string        `yaml:"key_file"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type PrinterConfig struct {
	// Device is the printer descriptor string: an IP (optionally :port),
	// USB:<vendor>:<product>, or a device path. Empty selects the platform
	// default device.
	Device       string        `yaml:"device"`
	PaperWidthPx int           `yaml:"paper_width_px"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
}

type JournalConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type AdminConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			HTTPS:        false,
			CertFile:     "server.crt",
			KeyFile:      "server.key",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Printer: PrinterConfig{
			Device:       "",
			PaperWidthPx: 576,
			DialTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Delay:       time.Second,
		},
		Journal: JournalConfig{
			Enabled:       true,
			Path:          "./data/journal.db",
			RetentionDays: 30,
		},
		Admin: AdminConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the yaml file at configPath
// (missing file is fine, it just means defaults), and environment overrides.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	return cfg, nil
}

// applyEnv overlays EPOSPROXY_* environment variables. Unparseable values
// are ignored rather than fatal, matching how the file layer treats absent
// keys.
func (c *Config) applyEnv() {
	if v := os.Getenv("EPOSPROXY_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("EPOSPROXY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("EPOSPROXY_HTTPS"); v != "" {
		if https, err := strconv.ParseBool(v); err == nil {
			c.Server.HTTPS = https
		}
	}
	if v := os.Getenv("EPOSPROXY_PRINTER"); v != "" {
		c.Printer.Device = v
	}
	if v := os.Getenv("EPOSPROXY_PAPER_WIDTH"); v != "" {
		if width, err := strconv.Atoi(v); err == nil {
			c.Printer.PaperWidthPx = width
		}
	}
	if v := os.Getenv("EPOSPROXY_RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Retry.Delay = d
		}
	}
	if v := os.Getenv("EPOSPROXY_JOURNAL_PATH"); v != "" {
		c.Journal.Path = v
	}
	if v := os.Getenv("EPOSPROXY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EPOSPROXY_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Server.HTTPS && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		return fmt.Errorf("https requires cert_file and key_file")
	}

	if c.Printer.PaperWidthPx < 8 {
		return fmt.Errorf("paper width must be at least 8 pixels, got %d", c.Printer.PaperWidthPx)
	}

	if c.Printer.PaperWidthPx%8 != 0 {
		return fmt.Errorf("paper width must be a multiple of 8 pixels, got %d", c.Printer.PaperWidthPx)
	}

	if c.Printer.DialTimeout < 0 {
		return fmt.Errorf("printer dial timeout must be non-negative")
	}

	if c.Printer.WriteTimeout < 0 {
		return fmt.Errorf("printer write timeout must be non-negative")
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}

	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry delay must be non-negative")
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal path is required when the journal is enabled")
	}

	if c.Journal.RetentionDays < 0 {
		return fmt.Errorf("journal retention days must be non-negative")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}

// NewLogger builds the process logger described by the logging section.
func (l LoggingConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch l.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if l.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
