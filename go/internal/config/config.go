// Package config loads the display service settings from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/animalitos/go/internal/models"
)

// DefaultPath is read when DISPLAY_CONFIG is unset.
const DefaultPath = "config.yaml"

type Config struct {
	DrawAPI  DrawAPIConfig    `yaml:"draw_api"`
	Server   ServerConfig     `yaml:"server"`
	Display  DisplayConfig    `yaml:"display"`
	Outcomes []models.Outcome `yaml:"outcomes"`
	NATS     NATSConfig       `yaml:"nats"`
	Telegram TelegramConfig   `yaml:"telegram"`
	Log      LogConfig        `yaml:"log"`
}

type DrawAPIConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Port          string `yaml:"port"`
	OperatorToken string `yaml:"operator_token"`
}

type DisplayConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	TimeZone        string        `yaml:"time_zone"`
	MaxPollFailures int           `yaml:"max_poll_failures"`
	Spin            SpinConfig    `yaml:"spin"`
}

type SpinConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	LateGrowth   float64       `yaml:"late_growth"`
	MidGrowth    float64       `yaml:"mid_growth"`
	Settle       time.Duration `yaml:"settle"`
}

// NATSConfig enables the event publisher when URL is set.
type NATSConfig struct {
	URL           string `yaml:"url"`
	StreamName    string `yaml:"stream_name"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// TelegramConfig enables the announcer when both fields are set.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the production defaults with the built-in outcome catalog.
func Default() Config {
	return Config{
		DrawAPI: DrawAPIConfig{
			URL:     "http://localhost:3000/api/sorteos",
			Timeout: 15 * time.Second,
		},
		Server: ServerConfig{Port: "8080"},
		Display: DisplayConfig{
			PollInterval:    10 * time.Second,
			TimeZone:        "America/Caracas",
			MaxPollFailures: 3,
			Spin: SpinConfig{
				InitialDelay: 50 * time.Millisecond,
				MaxDelay:     400 * time.Millisecond,
				LateGrowth:   1.10,
				MidGrowth:    1.04,
				Settle:       time.Second,
			},
		},
		Outcomes: models.DefaultOutcomes(),
		NATS: NATSConfig{
			StreamName:    "DRAW_DISPLAY_EVENTS",
			SubjectPrefix: "display.events",
		},
		Log: LogConfig{Level: "info", Pretty: true},
	}
}

// Load reads path over the defaults and applies environment overrides. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// A file that lists outcomes replaces the whole catalog
		cfg.Outcomes = nil
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if len(cfg.Outcomes) == 0 {
			cfg.Outcomes = models.DefaultOutcomes()
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides file values with any set environment variables.
func (c *Config) ApplyEnv() error {
	c.DrawAPI.URL = getEnv("DRAW_API_URL", c.DrawAPI.URL)
	c.DrawAPI.Token = getEnv("DRAW_API_TOKEN", c.DrawAPI.Token)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.OperatorToken = getEnv("OPERATOR_TOKEN", c.Server.OperatorToken)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.Telegram.Token = getEnv("TELEGRAM_TOKEN", c.Telegram.Token)
	c.Display.TimeZone = getEnv("DISPLAY_TZ", c.Display.TimeZone)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}

// Validate rejects settings the display cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.DrawAPI.URL == "" {
		problems = append(problems, "draw_api.url is required")
	} else if u, err := url.Parse(c.DrawAPI.URL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("draw_api.url %q is not an absolute URL", c.DrawAPI.URL))
	}
	if c.Display.PollInterval <= 0 {
		problems = append(problems, "display.poll_interval must be positive")
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, err.Error())
	}
	spin := c.Display.Spin
	if spin.InitialDelay <= 0 || spin.MaxDelay < spin.InitialDelay {
		problems = append(problems, "display.spin delays must satisfy 0 < initial_delay <= max_delay")
	}
	if spin.LateGrowth < 1 || spin.MidGrowth < 1 {
		problems = append(problems, "display.spin growth factors must be >= 1")
	}
	if len(c.Outcomes) == 0 {
		problems = append(problems, "at least one outcome is required")
	}
	seen := make(map[string]bool, len(c.Outcomes))
	for _, o := range c.Outcomes {
		key := strings.ToLower(strings.TrimSpace(o.Name))
		if key == "" {
			problems = append(problems, fmt.Sprintf("outcome %q has no name", o.Code))
			continue
		}
		if seen[key] {
			problems = append(problems, fmt.Sprintf("duplicate outcome name %q", o.Name))
		}
		seen[key] = true
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location resolves the display time zone; empty means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Display.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Display.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid display.time_zone %q: %w", c.Display.TimeZone, err)
	}
	return loc, nil
}

// TelegramEnabled reports whether the announcer has what it needs.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != "" && c.Telegram.ChatID != 0
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
