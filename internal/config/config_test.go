package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2, cfg.Button.Channel)
	assert.Equal(t, 3, cfg.Job.Channel)
	assert.Equal(t, 4, cfg.Blinker.Channel)
	assert.Equal(t, 100*time.Millisecond, cfg.Blinker.On)
	assert.Equal(t, 500*time.Millisecond, cfg.Blinker.Off)
	assert.True(t, cfg.Blinker.Initial)
	assert.Equal(t, 30*time.Second, cfg.Blinker.ChangeAfter)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
poll: 10ms
gpio:
  backend: fake
job:
  variant: persisted
  threshold_seconds: 20
button:
  pull: down
mqtt:
  broker: tcp://localhost:1883
`))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, cfg.Poll)
	assert.Equal(t, "fake", cfg.GPIO.Backend)
	assert.Equal(t, VariantPersisted, cfg.Job.Variant)
	assert.Equal(t, 20, cfg.Job.Threshold())
	assert.Equal(t, "down", cfg.Button.Pull)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)

	// Untouched sections keep their defaults.
	assert.Equal(t, 4, cfg.Blinker.Channel)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("blinker:\n  colour: red\n"))
	assert.Error(t, err)
}

func TestThresholdByVariant(t *testing.T) {
	assert.Equal(t, 10, JobConfig{Variant: VariantPlain}.Threshold())
	assert.Equal(t, 25, JobConfig{Variant: VariantPersisted}.Threshold())
	assert.Equal(t, 7, JobConfig{Variant: VariantPersisted, ThresholdSeconds: 7}.Threshold())

	w := JobConfig{Variant: VariantPlain, EveryMinutes: 15}.Window()
	assert.Equal(t, 15, w.EveryMinutes)
	assert.Equal(t, 10, w.ThresholdSeconds)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"poll too slow", func(c *Config) { c.Poll = time.Second }, "poll"},
		{"poll zero", func(c *Config) { c.Poll = 0 }, "poll"},
		{"bad backend", func(c *Config) { c.GPIO.Backend = "sysfs" }, "gpio.backend"},
		{"shared channel", func(c *Config) { c.Job.Channel = 4 }, "already used"},
		{"channel range", func(c *Config) { c.Button.Channel = 99 }, "out of range"},
		{"blinker on", func(c *Config) { c.Blinker.On = 0 }, "blinker.on"},
		{"job off", func(c *Config) { c.Job.Off = -time.Second }, "job.off"},
		{"variant", func(c *Config) { c.Job.Variant = "nightly" }, "job.variant"},
		{"threshold", func(c *Config) { c.Job.ThresholdSeconds = 60 }, "threshold_seconds"},
		{"every", func(c *Config) { c.Job.EveryMinutes = 61 }, "every_minutes"},
		{"pull", func(c *Config) { c.Button.Pull = "sideways" }, "button.pull"},
		{"mode source", func(c *Config) { c.Mode.Source = "moon" }, "mode.source"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"sun on plain job", func(c *Config) { c.Mode.Source = "sun" }, "needs job.variant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDisabledComponentsSkipChannelChecks(t *testing.T) {
	cfg := Default()
	cfg.Job.Enabled = false
	cfg.Job.Channel = cfg.Blinker.Channel
	assert.NoError(t, cfg.Validate())
}

func TestSunWithPersistedJob(t *testing.T) {
	cfg := Default()
	cfg.Mode.Source = "sun"
	cfg.Job.Variant = VariantPersisted
	assert.NoError(t, cfg.Validate())

	cfg.Job.Variant = VariantPlain
	cfg.Job.Enabled = false
	assert.NoError(t, cfg.Validate(), "sun source is fine without a job")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blinkd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \"\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.HTTP.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
