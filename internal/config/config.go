package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Timers holds the wait-time color thresholds in minutes
type Timers struct {
	GreenTime  int `yaml:"green_time"`
	YellowTime int `yaml:"yellow_time"`
	RedTime    int `yaml:"red_time"`
}

// Config represents the daemon configuration
type Config struct {
	BackendURL   string `yaml:"backend_url"`
	BackendToken string `yaml:"backend_token"`
	ListenAddr   string `yaml:"listen_addr"`

	PollSeconds      int `yaml:"poll_seconds"`
	TickMilliseconds int `yaml:"tick_milliseconds"`

	Timers             Timers `yaml:"timers"`
	SoundEnabled       bool   `yaml:"sound_enabled"`
	ColorCodingEnabled bool   `yaml:"color_coding_enabled"`
	HistoryLimit       int    `yaml:"history_limit"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		BackendURL:         "http://localhost:8081",
		ListenAddr:         ":8080",
		PollSeconds:        5,
		TickMilliseconds:   1000,
		Timers:             Timers{GreenTime: 5, YellowTime: 10, RedTime: 15},
		SoundEnabled:       true,
		ColorCodingEnabled: true,
		HistoryLimit:       20,
		LogLevel:           "info",
	}
}

// PollInterval returns the data poll cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// TickInterval returns the derive-clock cadence.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickMilliseconds) * time.Millisecond
}

// Load reads the YAML config at path on top of the defaults, then applies
// environment overrides. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if url := os.Getenv("KDS_BACKEND_URL"); url != "" {
		cfg.BackendURL = url
	}
	if token := os.Getenv("KDS_BACKEND_TOKEN"); token != "" {
		cfg.BackendToken = token
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend_url is required")
	}
	if c.PollSeconds <= 0 {
		return fmt.Errorf("poll_seconds must be positive, got %d", c.PollSeconds)
	}
	if c.TickMilliseconds <= 0 {
		return fmt.Errorf("tick_milliseconds must be positive, got %d", c.TickMilliseconds)
	}
	if c.Timers.GreenTime > c.Timers.YellowTime || c.Timers.YellowTime > c.Timers.RedTime {
		return fmt.Errorf("timer thresholds must be ordered green <= yellow <= red")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}
	return nil
}
