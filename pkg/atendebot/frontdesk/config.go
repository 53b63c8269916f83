// Package frontdesk – config.go defines the service configuration and
// its YAML loader.
package frontdesk

import (
	"fmt"
	"os"
	"time"

	"github.com/jberleze/atendebot/pkg/atendebot/channels/whatsapp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	// SessionsFile is the path of the persisted conversation mapping.
	SessionsFile string `yaml:"sessions_file"`

	// DedupWindow is the full-clear interval of the duplicate filter.
	DedupWindow time.Duration `yaml:"dedup_window"`

	// Hours configures the optional business-hours gate.
	Hours HoursConfig `yaml:"hours"`

	// Channels configures the messaging transport.
	Channels ChannelsConfig `yaml:"channels"`

	// Server configures the HTTP pairing/health endpoint.
	Server ServerConfig `yaml:"server"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// ChannelsConfig holds transport configuration.
type ChannelsConfig struct {
	WhatsApp whatsapp.Config `yaml:"whatsapp"`
}

// ServerConfig configures the HTTP endpoint.
type ServerConfig struct {
	// Address is the listen address, e.g. ":5002".
	Address string `yaml:"address"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the log format ("json", "text").
	Format string `yaml:"format"`
}

// DefaultConfig returns the default service configuration. The listen
// port honors the PORT environment variable the office's hosting
// platform sets, falling back to 5002.
func DefaultConfig() *Config {
	addr := ":5002"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	return &Config{
		SessionsFile: "./sessions.json",
		DedupWindow:  time.Minute,
		Hours:        DefaultHoursConfig(),
		Channels: ChannelsConfig{
			WhatsApp: whatsapp.DefaultConfig(),
		},
		Server: ServerConfig{
			Address: addr,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig reads a YAML configuration file, overlaying it on the
// defaults. A .env file next to the process is loaded first (existing
// environment variables are never overwritten by it). An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	// Silently ignore a missing .env.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if cfg.SessionsFile == "" {
		cfg.SessionsFile = "./sessions.json"
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = time.Minute
	}

	return cfg, nil
}
