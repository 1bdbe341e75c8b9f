// Package config loads safe-estate configuration from a YAML file,
// an optional .env file and ESTATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	DBPath  string        `yaml:"db_path"`
	Media   MediaConfig   `yaml:"media"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	Cleanup CleanupConfig `yaml:"cleanup"`
	Images  ImagesConfig  `yaml:"images"`
	DevMode bool          `yaml:"dev_mode"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Port          int    `yaml:"port"`
	BaseURL       string `yaml:"base_url"`
	SecureCookies bool   `yaml:"secure_cookies"`
}

// MediaConfig contains uploaded file storage settings.
type MediaConfig struct {
	Root string `yaml:"root"`
}

// SMTPConfig contains outgoing mail settings used for OTP delivery.
type SMTPConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	From string `yaml:"from"`
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// CleanupConfig contains the expired-session/OTP cleanup schedule.
type CleanupConfig struct {
	Schedule string `yaml:"schedule"`
}

// ImagesConfig contains stock-image download settings.
type ImagesConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Dir returns the default configuration directory: ~/.safe-estate
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".safe-estate"), nil
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns the configuration used when nothing overrides it.
func Default() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return &Config{
		Server: ServerConfig{
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		DBPath:  filepath.Join(dir, "estate.db"),
		Media:   MediaConfig{Root: filepath.Join(dir, "media")},
		SMTP:    SMTPConfig{Port: "587"},
		Cleanup: CleanupConfig{Schedule: "@every 1h"},
		Images:  ImagesConfig{Timeout: 10 * time.Second},
	}, nil
}

// Load builds the configuration. A missing config file or .env file is
// not an error; an empty path skips the YAML file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ESTATE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ESTATE_PORT: invalid port %q", v)
		}
		c.Server.Port = port
	}
	c.DBPath = envOrDefault("ESTATE_DB", c.DBPath)
	c.Media.Root = envOrDefault("ESTATE_MEDIA_ROOT", c.Media.Root)
	c.Server.BaseURL = envOrDefault("ESTATE_BASE_URL", c.Server.BaseURL)
	if v := os.Getenv("ESTATE_DEV_MODE"); v != "" {
		c.DevMode = v == "true"
	}
	if v := os.Getenv("ESTATE_SECURE_COOKIES"); v != "" {
		c.Server.SecureCookies = v == "true"
	}
	c.SMTP.Host = envOrDefault("ESTATE_SMTP_HOST", c.SMTP.Host)
	c.SMTP.Port = envOrDefault("ESTATE_SMTP_PORT", c.SMTP.Port)
	c.SMTP.User = envOrDefault("ESTATE_SMTP_USER", c.SMTP.User)
	c.SMTP.Pass = envOrDefault("ESTATE_SMTP_PASS", c.SMTP.Pass)
	c.SMTP.From = envOrDefault("ESTATE_SMTP_FROM", c.SMTP.From)
	c.Cleanup.Schedule = envOrDefault("ESTATE_CLEANUP_SCHEDULE", c.Cleanup.Schedule)
	if v := os.Getenv("ESTATE_IMAGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ESTATE_IMAGE_TIMEOUT: %w", err)
		}
		c.Images.Timeout = d
	}
	return nil
}

// Addr returns the listen address for the configured port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
