// Package config loads the daemon configuration from a YAML file laid
// over built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/blinkd/internal/blink"
	"github.com/sweeney/blinkd/internal/gpio"
	"github.com/sweeney/blinkd/internal/mode"
)

// Job variants.
const (
	VariantPlain     = "plain"
	VariantPersisted = "persisted"
)

// Config is the full daemon configuration.
type Config struct {
	Poll      time.Duration `yaml:"poll"`
	Heartbeat time.Duration `yaml:"heartbeat"`

	GPIO    GPIOConfig    `yaml:"gpio"`
	Blinker BlinkerConfig `yaml:"blinker"`
	Job     JobConfig     `yaml:"job"`
	Button  ButtonConfig  `yaml:"button"`
	Mode    ModeConfig    `yaml:"mode"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
}

type GPIOConfig struct {
	Backend  string        `yaml:"backend"`
	Chip     string        `yaml:"chip"`
	Consumer string        `yaml:"consumer"`
	EdgePoll time.Duration `yaml:"edge_poll"`
}

// BlinkerConfig configures the randomized blinker.
type BlinkerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Channel     int           `yaml:"channel"`
	On          time.Duration `yaml:"on"`
	Off         time.Duration `yaml:"off"`
	Initial     bool          `yaml:"initial"`
	ChangeAfter time.Duration `yaml:"change_after"`
}

// JobConfig configures the window job. A zero threshold selects the
// variant's default.
type JobConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Channel          int           `yaml:"channel"`
	Variant          string        `yaml:"variant"`
	On               time.Duration `yaml:"on"`
	Off              time.Duration `yaml:"off"`
	EveryMinutes     int           `yaml:"every_minutes"`
	ThresholdSeconds int           `yaml:"threshold_seconds"`
}

type ButtonConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Channel   int    `yaml:"channel"`
	Pull      string `yaml:"pull"`
	QueueSize int    `yaml:"queue_size"`
}

type ModeConfig struct {
	Source     string  `yaml:"source"`
	Path       string  `yaml:"path"`
	AutoCreate bool    `yaml:"auto_create"`
	Latitude   float64 `yaml:"latitude"`
	Longitude  float64 `yaml:"longitude"`
}

// MQTTConfig configures optional telemetry. An empty broker disables it.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Prefix   string `yaml:"prefix"`
}

// HTTPConfig configures the status server. An empty addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Journal bool   `yaml:"journal"`
}

// Default returns the stock wiring: button on BCM 2,
// window job on BCM 3, randomized blinker on BCM 4.
func Default() Config {
	return Config{
		Poll:      20 * time.Millisecond,
		Heartbeat: 15 * time.Minute,
		GPIO: GPIOConfig{
			Backend:  gpio.BackendCdev,
			Chip:     "gpiochip0",
			Consumer: "blinkd",
			EdgePoll: 5 * time.Millisecond,
		},
		Blinker: BlinkerConfig{
			Enabled:     true,
			Channel:     4,
			On:          100 * time.Millisecond,
			Off:         500 * time.Millisecond,
			Initial:     true,
			ChangeAfter: blink.DefaultChangeAfter,
		},
		Job: JobConfig{
			Enabled:      true,
			Channel:      3,
			Variant:      VariantPlain,
			On:           blink.PlainOn,
			Off:          blink.PlainOff,
			EveryMinutes: blink.DefaultEveryMinutes,
		},
		Button: ButtonConfig{
			Enabled: true,
			Channel: 2,
			Pull:    "up",
		},
		Mode: ModeConfig{
			Source:     mode.SourceToggle,
			Path:       mode.DefaultPath,
			AutoCreate: true,
		},
		MQTT: MQTTConfig{
			ClientID: "blinkd",
			Prefix:   "blinkd",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over Default. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err = Parse(data)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode: %w", err)
	}
	return cfg, cfg.Validate()
}

// Threshold returns the window threshold in seconds for the configured
// variant.
func (j JobConfig) Threshold() int {
	if j.ThresholdSeconds > 0 {
		return j.ThresholdSeconds
	}
	if j.Variant == VariantPersisted {
		return blink.PersistedThreshold
	}
	return blink.PlainThreshold
}

// Window returns the recurring window for the job.
func (j JobConfig) Window() blink.Window {
	return blink.Window{EveryMinutes: j.EveryMinutes, ThresholdSeconds: j.Threshold()}
}

// Validate checks ranges and enums.
func (c Config) Validate() error {
	var errs []error
	if c.Poll <= 0 || c.Poll > 50*time.Millisecond {
		errs = append(errs, fmt.Errorf("poll must be in (0, 50ms], got %v", c.Poll))
	}
	switch strings.ToLower(c.GPIO.Backend) {
	case gpio.BackendCdev, gpio.BackendRpio, gpio.BackendFake:
	default:
		errs = append(errs, fmt.Errorf("gpio.backend: unknown backend %q", c.GPIO.Backend))
	}

	channels := map[int]string{}
	claim := func(name string, ch int) {
		if ch < 0 || ch > 53 {
			errs = append(errs, fmt.Errorf("%s.channel out of range: %d", name, ch))
			return
		}
		if other, ok := channels[ch]; ok {
			errs = append(errs, fmt.Errorf("%s.channel %d already used by %s", name, ch, other))
			return
		}
		channels[ch] = name
	}

	if c.Blinker.Enabled {
		claim("blinker", c.Blinker.Channel)
		if c.Blinker.On <= 0 {
			errs = append(errs, fmt.Errorf("blinker.on must be positive"))
		}
		if c.Blinker.Off < 0 {
			errs = append(errs, fmt.Errorf("blinker.off must not be negative"))
		}
	}
	if c.Job.Enabled {
		claim("job", c.Job.Channel)
		if c.Job.On <= 0 {
			errs = append(errs, fmt.Errorf("job.on must be positive"))
		}
		if c.Job.Off < 0 {
			errs = append(errs, fmt.Errorf("job.off must not be negative"))
		}
		switch c.Job.Variant {
		case VariantPlain, VariantPersisted:
		default:
			errs = append(errs, fmt.Errorf("job.variant: unknown variant %q", c.Job.Variant))
		}
		if c.Job.EveryMinutes < 0 || c.Job.EveryMinutes > 60 {
			errs = append(errs, fmt.Errorf("job.every_minutes out of range: %d", c.Job.EveryMinutes))
		}
		if c.Job.ThresholdSeconds < 0 || c.Job.ThresholdSeconds > 59 {
			errs = append(errs, fmt.Errorf("job.threshold_seconds out of range: %d", c.Job.ThresholdSeconds))
		}
		if c.Mode.Source == mode.SourceSun && c.Job.Variant == VariantPlain {
			errs = append(errs, fmt.Errorf("mode.source %q needs job.variant %q", mode.SourceSun, VariantPersisted))
		}
	}
	if c.Button.Enabled {
		claim("button", c.Button.Channel)
		if _, err := gpio.ParsePull(c.Button.Pull); err != nil {
			errs = append(errs, fmt.Errorf("button.pull: %w", err))
		}
	}
	switch c.Mode.Source {
	case mode.SourceToggle, mode.SourceSun:
	default:
		errs = append(errs, fmt.Errorf("mode.source: unknown source %q", c.Mode.Source))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
