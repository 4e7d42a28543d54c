// Package config loads pomosync settings from a YAML file with
// POMOSYNC_* environment overrides layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/pomosync/internal/timer"
)

// DefaultListenAddr is where a host serves TCP participants.
const DefaultListenAddr = ":7319"

// Config is the full pomosync configuration. Gateway and NATS stay off
// until their address is set.
type Config struct {
	Timer   TimerConfig   `yaml:"timer"`
	Host    HostConfig    `yaml:"host"`
	Gateway GatewayConfig `yaml:"gateway"`
	NATS    NATSConfig    `yaml:"nats"`
	Log     LogConfig     `yaml:"log"`
}

// TimerConfig holds phase lengths in the clock syntax ("25" or "25:30").
type TimerConfig struct {
	Work        string `yaml:"work"`
	ShortBreak  string `yaml:"short_break"`
	LongBreak   string `yaml:"long_break"`
	CycleLength int    `yaml:"cycle_length"`
	AutoStart   bool   `yaml:"auto_start"`
}

// HostConfig holds the TCP session server settings.
type HostConfig struct {
	Listen          string `yaml:"listen"`
	MaxParticipants int    `yaml:"max_participants"`
}

// GatewayConfig holds the WebSocket gateway settings.
type GatewayConfig struct {
	Listen string `yaml:"listen"`
}

// NATSConfig holds the effect bus settings.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	settings := timer.DefaultSettings()
	return Config{
		Timer: TimerConfig{
			Work:        timer.FormatClock(settings.Work),
			ShortBreak:  timer.FormatClock(settings.ShortBreak),
			LongBreak:   timer.FormatClock(settings.LongBreak),
			CycleLength: settings.CycleLength,
			AutoStart:   settings.AutoStart,
		},
		Host: HostConfig{
			Listen:          DefaultListenAddr,
			MaxParticipants: 16,
		},
		NATS: NATSConfig{
			SubjectPrefix: "pomosync.effects",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the conventional config location,
// ~/.config/pomosync/config.yaml on Linux.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pomosync", "config.yaml")
}

// Load reads the config file at path, if present, and layers POMOSYNC_*
// environment overrides on top. A missing file is not an error; defaults
// apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// TimerSettings converts the timer block into engine settings.
func (c Config) TimerSettings() (timer.Settings, error) {
	s := timer.DefaultSettings()

	work, err := timer.ParseClock(c.Timer.Work)
	if err != nil {
		return timer.Settings{}, fmt.Errorf("work duration: %w", err)
	}
	shortBreak, err := timer.ParseClock(c.Timer.ShortBreak)
	if err != nil {
		return timer.Settings{}, fmt.Errorf("short break duration: %w", err)
	}
	longBreak, err := timer.ParseClock(c.Timer.LongBreak)
	if err != nil {
		return timer.Settings{}, fmt.Errorf("long break duration: %w", err)
	}

	s.Work = work
	s.ShortBreak = shortBreak
	s.LongBreak = longBreak
	s.CycleLength = c.Timer.CycleLength
	s.AutoStart = c.Timer.AutoStart

	if err := s.Validate(); err != nil {
		return timer.Settings{}, err
	}
	return s, nil
}

func (c *Config) applyEnv() {
	c.Timer.Work = getEnv("POMOSYNC_WORK", c.Timer.Work)
	c.Timer.ShortBreak = getEnv("POMOSYNC_SHORT_BREAK", c.Timer.ShortBreak)
	c.Timer.LongBreak = getEnv("POMOSYNC_LONG_BREAK", c.Timer.LongBreak)
	c.Timer.CycleLength = getEnvAsInt("POMOSYNC_CYCLE_LENGTH", c.Timer.CycleLength)
	c.Timer.AutoStart = getEnvAsBool("POMOSYNC_AUTO_START", c.Timer.AutoStart)

	c.Host.Listen = getEnv("POMOSYNC_LISTEN", c.Host.Listen)
	c.Host.MaxParticipants = getEnvAsInt("POMOSYNC_MAX_PARTICIPANTS", c.Host.MaxParticipants)

	c.Gateway.Listen = getEnv("POMOSYNC_GATEWAY_LISTEN", c.Gateway.Listen)

	c.NATS.URL = getEnv("POMOSYNC_NATS_URL", c.NATS.URL)
	c.NATS.SubjectPrefix = getEnv("POMOSYNC_NATS_SUBJECT_PREFIX", c.NATS.SubjectPrefix)

	c.Log.Level = getEnv("POMOSYNC_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("POMOSYNC_LOG_FILE", c.Log.File)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
