// Package config loads daemon settings from a YAML file. Every field has a
// sane default so an empty file (or no file at all) yields a runnable
// monitor-only configuration with no external channels wired.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mercer/studio-failsafe/internal/beacon"
	"github.com/mercer/studio-failsafe/internal/bus"
	"github.com/mercer/studio-failsafe/internal/gpio"
	"github.com/mercer/studio-failsafe/internal/logic"
)

// Duration parses YAML scalars like "750ms" or "1h" via time.ParseDuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"500ms\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full daemon configuration.
type Config struct {
	Station  Station  `yaml:"station"`
	Hardware Hardware `yaml:"hardware"`
	Broker   Broker   `yaml:"broker"`
	Webhook  Webhook  `yaml:"webhook"`
	Groups   Groups   `yaml:"groups"`
	Email    Email    `yaml:"email"`
	Metadata Metadata `yaml:"metadata"`
	Beacon   Beacon   `yaml:"beacon"`
	Web      Web      `yaml:"web"`
}

// Station names the installation in outbound messages.
type Station struct {
	Name string `yaml:"name"`
}

// Hardware configures the monitored pin and the debounce behavior.
type Hardware struct {
	Chip string `yaml:"chip"`
	Pin  int    `yaml:"pin"`
	// PinName labels the pin in published payloads.
	PinName string `yaml:"pin_name"`
	// BackupSource is the source selected when the pin reads low ("A" or "B").
	BackupSource string   `yaml:"backup_source"`
	Poll         Duration `yaml:"poll"`
	Debounce     Duration `yaml:"debounce"`
}

// Broker configures the MQTT connection. An empty URL disables the broker
// entirely (no event publishing, no health pings, no remote commands).
type Broker struct {
	URL      string `yaml:"url"`
	ClientID string `yaml:"client_id"`

	NotificationsTopic string `yaml:"notifications_topic"`
	HealthcheckTopic   string `yaml:"healthcheck_topic"`
	CommandsTopic      string `yaml:"commands_topic"`
}

// Topics assembles the bus topic set from the broker section.
func (b Broker) Topics() bus.Topics {
	return bus.Topics{
		Notifications: b.NotificationsTopic,
		Healthcheck:   b.HealthcheckTopic,
		Commands:      b.CommandsTopic,
	}
}

// Webhook configures the primary alert channel. Empty URL disables it.
type Webhook struct {
	URL           string `yaml:"url"`
	AuthorName    string `yaml:"author_name"`
	AuthorURL     string `yaml:"author_url"`
	AuthorIconURL string `yaml:"author_icon_url"`
}

// Groups configures the bot-posted group channels. Empty bot ids disable
// the corresponding channel.
type Groups struct {
	BaseURL string `yaml:"base_url"`
	// SecondaryBotID posts the always-sent audience summary.
	SecondaryBotID string `yaml:"secondary_bot_id"`
	// BroadFallbackBotID posts the all-members warning when no host contact
	// could be resolved.
	BroadFallbackBotID string `yaml:"broad_fallback_bot_id"`
}

// Email configures the direct-contact SMTP channel. Empty host disables it.
type Email struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Metadata configures the on-air schedule lookup. Empty base URL disables it.
type Metadata struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

// Beacon configures the health ping cadence.
type Beacon struct {
	Interval      Duration `yaml:"interval"`
	RetryInterval Duration `yaml:"retry_interval"`
	MaxFailures   int      `yaml:"max_failures"`
}

// Web configures the local status page.
type Web struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	topics := bus.DefaultTopics()
	return Config{
		Hardware: Hardware{
			Chip:         gpio.DefaultChip,
			Pin:          gpio.DefaultPin,
			PinName:      "source_select",
			BackupSource: "B",
			Poll:         Duration(500 * time.Millisecond),
			Debounce:     Duration(2 * time.Second),
		},
		Broker: Broker{
			ClientID:           "studio-failsafe",
			NotificationsTopic: topics.Notifications,
			HealthcheckTopic:   topics.Healthcheck,
			CommandsTopic:      topics.Commands,
		},
		Email: Email{Port: 587},
		Metadata: Metadata{
			Timeout: Duration(10 * time.Second),
		},
		Beacon: Beacon{
			Interval:      Duration(beacon.DefaultInterval),
			RetryInterval: Duration(beacon.DefaultRetryInterval),
			MaxFailures:   beacon.DefaultMaxFailures,
		},
		Web: Web{Addr: ":8017"},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if err := cfg.validate(); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := logic.ParseSource(c.Hardware.BackupSource); err != nil {
		return fmt.Errorf("hardware.backup_source: %w", err)
	}
	if c.Hardware.Poll.Std() <= 0 {
		return fmt.Errorf("hardware.poll must be positive, got %s", c.Hardware.Poll.Std())
	}
	if c.Hardware.Debounce.Std() < 0 {
		return fmt.Errorf("hardware.debounce must not be negative, got %s", c.Hardware.Debounce.Std())
	}
	if c.Hardware.Pin < 0 {
		return fmt.Errorf("hardware.pin must not be negative, got %d", c.Hardware.Pin)
	}
	return nil
}
