package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	UserID   string         `toml:"user_id"`
	Timezone string         `toml:"timezone"`
	Day      DayConfig      `toml:"day"`
	Gaps     GapConfig      `toml:"gaps"`
	Cache    CacheConfig    `toml:"cache"`
	AI       AIConfig       `toml:"ai"`
	Watch    WatchConfig    `toml:"watch"`
	Calendar CalendarConfig `toml:"calendar"`
}

type DayConfig struct {
	StartHour        int    `toml:"start_hour"`
	ObservationStart string `toml:"observation_start"`
	ObservationEnd   string `toml:"observation_end"`
}

type GapConfig struct {
	MinMinutes int `toml:"min_minutes"`
}

type CacheConfig struct {
	MaxAgeMinutes int `toml:"max_age_minutes"`
}

type AIConfig struct {
	Provider string `toml:"provider"` // "openai" or "claude-cli"
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
}

type WatchConfig struct {
	IntervalMinutes int  `toml:"interval_minutes"`
	Notifications   bool `toml:"notifications"`
}

type CalendarConfig struct {
	Enabled bool   `toml:"enabled"`
	Source  string `toml:"source"` // ICS URL or file path
}

func DefaultConfig() Config {
	return Config{
		UserID:   "default",
		Timezone: "Local",
		Day: DayConfig{
			StartHour:        5,
			ObservationStart: "07:30",
			ObservationEnd:   "18:30",
		},
		Gaps: GapConfig{
			MinMinutes: 15,
		},
		Cache: CacheConfig{
			MaxAgeMinutes: 60,
		},
		AI: AIConfig{
			Provider: "openai",
		},
		Watch: WatchConfig{
			IntervalMinutes: 30,
			Notifications:   true,
		},
		Calendar: CalendarConfig{
			Enabled: false,
			Source:  "",
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "daylog"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadPath(path)
}

// LoadPath reads the config at an explicit path, falling back to defaults
// when the file does not exist.
func LoadPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			applyEnvOverrides(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("DAYLOG_USER"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("DAYLOG_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("DAYLOG_CALENDAR_SOURCE"); v != "" {
		cfg.Calendar.Source = v
		cfg.Calendar.Enabled = true
	}
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ParseClock splits "HH:MM" into hour and minute.
func ParseClock(s string) (int, int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid clock %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid clock %q, want HH:MM", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid clock %q, want HH:MM", s)
	}
	return h, m, nil
}
