package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadPath(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.UserID)
	assert.Equal(t, 5, cfg.Day.StartHour)
	assert.Equal(t, "07:30", cfg.Day.ObservationStart)
	assert.Equal(t, "18:30", cfg.Day.ObservationEnd)
	assert.Equal(t, 15, cfg.Gaps.MinMinutes)
	assert.Equal(t, 60, cfg.Cache.MaxAgeMinutes)
	assert.Equal(t, "openai", cfg.AI.Provider)
}

func TestLoadPath_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
user_id = "mira"
timezone = "Europe/Stockholm"

[day]
start_hour = 4
observation_start = "08:00"

[gaps]
min_minutes = 10

[ai]
provider = "claude-cli"
model = "haiku"
`), 0644))

	cfg, err := LoadPath(path)
	require.NoError(t, err)

	assert.Equal(t, "mira", cfg.UserID)
	assert.Equal(t, "Europe/Stockholm", cfg.Timezone)
	assert.Equal(t, 4, cfg.Day.StartHour)
	assert.Equal(t, "08:00", cfg.Day.ObservationStart)
	// Untouched keys keep their defaults.
	assert.Equal(t, "18:30", cfg.Day.ObservationEnd)
	assert.Equal(t, 10, cfg.Gaps.MinMinutes)
	assert.Equal(t, "claude-cli", cfg.AI.Provider)
	assert.Equal(t, "haiku", cfg.AI.Model)
}

func TestLoadPath_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DAYLOG_USER", "env-user")
	t.Setenv("DAYLOG_TIMEZONE", "Asia/Tokyo")

	cfg, err := LoadPath(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "env-user", cfg.UserID)
	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
}

func TestLoadPath_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not toml ["), 0644))

	_, err := LoadPath(path)
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("07:30")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 30, m)

	for _, bad := range []string{"", "7", "7:3x", "24:00", "12:60"} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
