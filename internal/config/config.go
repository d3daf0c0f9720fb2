// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	Completion  CompletionConfig
	Bridge      BridgeConfig
}

// CompletionConfig selects the default completion provider endpoint.
// A session's own config may override the base URL per request.
type CompletionConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// BridgeConfig controls per-agent process spawning.
type BridgeConfig struct {
	DataDir        string
	Shell          string
	StartupCommand string
	Cols           int
	Rows           int
	RingSize       int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "3001"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/mission-control.db"),
		Completion: CompletionConfig{
			BaseURL: getEnv("COMPLETION_BASE_URL", "https://generativelanguage.googleapis.com"),
			APIKey:  getEnv("COMPLETION_API_KEY", os.Getenv("API_KEY")),
			Timeout: getEnvDuration("COMPLETION_TIMEOUT", 2*time.Minute),
		},
		Bridge: BridgeConfig{
			DataDir:        getEnv("AGENT_DATA_DIR", "./data/agents"),
			Shell:          getEnv("AGENT_SHELL", defaultShell()),
			StartupCommand: getEnv("AGENT_STARTUP_COMMAND", "cline"),
			Cols:           getEnvInt("AGENT_PTY_COLS", 80),
			Rows:           getEnvInt("AGENT_PTY_ROWS", 30),
			RingSize:       getEnvInt("AGENT_OUTPUT_RING_SIZE", 64*1024),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Bridge.DataDir == "" {
		return fmt.Errorf("AGENT_DATA_DIR cannot be empty")
	}
	if c.Bridge.Shell == "" {
		return fmt.Errorf("AGENT_SHELL cannot be empty")
	}
	if c.Bridge.Cols <= 0 || c.Bridge.Rows <= 0 {
		return fmt.Errorf("AGENT_PTY_COLS and AGENT_PTY_ROWS must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func defaultShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "bash"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
