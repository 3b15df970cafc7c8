// Package config loads the daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/zigbee-light/internal/gpio"
	"github.com/sweeney/zigbee-light/internal/zcl"
	"github.com/sweeney/zigbee-light/internal/zigbee"
)

// Config is the application configuration.
type Config struct {
	GPIO      GPIOConfig   `yaml:"gpio"`
	Zigbee    ZigbeeConfig `yaml:"zigbee"`
	MQTT      MQTTConfig   `yaml:"mqtt"`
	HTTP      HTTPConfig   `yaml:"http"`
	Log       LogConfig    `yaml:"log"`
	Heartbeat Duration     `yaml:"heartbeat"` // 0 disables
}

// GPIOConfig selects the button and LED lines.
type GPIOConfig struct {
	Chip      string   `yaml:"chip"`
	ButtonPin int      `yaml:"button_pin"`
	LEDPin    int      `yaml:"led_pin"`
	Debounce  Duration `yaml:"debounce"`  // kernel debounce on the button line, 0 = off
	Simulated bool     `yaml:"simulated"` // use in-memory button and LED
}

// ZigbeeConfig configures the device role and the simulated stack.
type ZigbeeConfig struct {
	Role         string          `yaml:"role"`
	MaxChildren  int             `yaml:"max_children"`
	StorePath    string          `yaml:"store_path"` // empty keeps credentials in memory
	JoinDelay    Duration        `yaml:"join_delay"`
	Networks     []NetworkConfig `yaml:"networks"`
	Manufacturer string          `yaml:"manufacturer"`
	Model        string          `yaml:"model"`
}

// NetworkConfig is a network the simulated radio can join.
type NetworkConfig struct {
	Channel  int    `yaml:"channel"`
	PanID    uint16 `yaml:"pan_id"`
	ExtPanID string `yaml:"ext_pan_id"`
}

// MQTTConfig contains broker settings.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	BufferSize  int    `yaml:"buffer_size"` // messages held while disconnected
}

// HTTPConfig contains the status server settings.
type HTTPConfig struct {
	Listen string `yaml:"listen"` // empty disables
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, expands and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.GPIO.Chip == "" {
		c.GPIO.Chip = gpio.DefaultChip
	}
	if c.GPIO.ButtonPin == 0 && c.GPIO.LEDPin == 0 {
		c.GPIO.ButtonPin = gpio.DefaultPinButton
		c.GPIO.LEDPin = gpio.DefaultPinLED
	}

	if c.Zigbee.Role == "" {
		c.Zigbee.Role = string(zigbee.RoleRouter)
	}
	if c.Zigbee.MaxChildren == 0 {
		c.Zigbee.MaxChildren = 16
	}
	if c.Zigbee.JoinDelay == 0 {
		c.Zigbee.JoinDelay = Duration(2 * time.Second)
	}
	def := zigbee.DefaultDeviceInfo()
	if c.Zigbee.Manufacturer == "" {
		c.Zigbee.Manufacturer = def.Manufacturer
	}
	if c.Zigbee.Model == "" {
		c.Zigbee.Model = def.Model
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "zigbee-light"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "zigbee-light"
	}
	if c.MQTT.BufferSize == 0 {
		c.MQTT.BufferSize = 100
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.GPIO.ButtonPin < 0 || c.GPIO.LEDPin < 0 {
		errs = append(errs, fmt.Errorf("gpio: pins must be non-negative"))
	}
	if c.GPIO.ButtonPin == c.GPIO.LEDPin {
		errs = append(errs, fmt.Errorf("gpio: button_pin and led_pin must differ (both %d)", c.GPIO.ButtonPin))
	}
	if c.GPIO.Debounce < 0 {
		errs = append(errs, fmt.Errorf("gpio: debounce must be non-negative"))
	}

	if _, err := c.Zigbee.ParseRole(); err != nil {
		errs = append(errs, err)
	}
	if c.Zigbee.MaxChildren < 0 || c.Zigbee.MaxChildren > 255 {
		errs = append(errs, fmt.Errorf("zigbee: max_children %d out of range 0..255", c.Zigbee.MaxChildren))
	}
	for i, n := range c.Zigbee.Networks {
		if n.Channel < 11 || n.Channel > 26 {
			errs = append(errs, fmt.Errorf("zigbee: networks[%d]: channel %d out of range 11..26", i, n.Channel))
		}
		if n.ExtPanID != "" {
			if _, err := zcl.ParseExtPanID(n.ExtPanID); err != nil {
				errs = append(errs, fmt.Errorf("zigbee: networks[%d]: %w", i, err))
			}
		}
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, fmt.Errorf("mqtt: broker is required when enabled"))
	}
	if c.MQTT.BufferSize < 0 {
		errs = append(errs, fmt.Errorf("mqtt: buffer_size must be non-negative"))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat must be non-negative"))
	}

	return errors.Join(errs...)
}

// ParseRole returns the configured device role.
func (z ZigbeeConfig) ParseRole() (zigbee.Role, error) {
	switch r := zigbee.Role(strings.ToLower(z.Role)); r {
	case zigbee.RoleCoordinator, zigbee.RoleRouter, zigbee.RoleEndDevice:
		return r, nil
	}
	return "", fmt.Errorf("zigbee: unknown role %q", z.Role)
}

// DeviceInfo returns the Basic cluster identity with the configured names.
func (z ZigbeeConfig) DeviceInfo() zigbee.DeviceInfo {
	info := zigbee.DefaultDeviceInfo()
	if z.Manufacturer != "" {
		info.Manufacturer = z.Manufacturer
	}
	if z.Model != "" {
		info.Model = z.Model
	}
	return info
}

// SimNetworks converts the network table for the simulated stack.
// Entries are assumed valid.
func (z ZigbeeConfig) SimNetworks() []zigbee.Network {
	out := make([]zigbee.Network, 0, len(z.Networks))
	for _, n := range z.Networks {
		var ext [8]byte
		if n.ExtPanID != "" {
			ext, _ = zcl.ParseExtPanID(n.ExtPanID)
		}
		out = append(out, zigbee.Network{Channel: uint8(n.Channel), PanID: n.PanID, ExtPanID: ext})
	}
	return out
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands ${VAR} and ${VAR:default}.
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}
