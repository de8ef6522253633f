// Copyright 2025-2026 Aiku AI

package bridge

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

// Config holds the bridge configuration. It is immutable for the process
// lifetime once loaded.
type Config struct {
	IRC        IRCConfig  `yaml:"irc"`
	Meshtastic MeshConfig `yaml:"meshtastic"`
}

// IRCConfig describes the single IRC server and channel the bridge joins.
type IRCConfig struct {
	Server   string `yaml:"server"`
	Port     uint16 `yaml:"port"`
	Channel  string `yaml:"channel"`
	Nickname string `yaml:"nickname"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UseTLS   bool   `yaml:"use_tls"`
}

// MeshConfig selects and configures the mesh transport variant. Exactly
// one of SerialPort or MQTT may be set; when neither is, the caller is
// expected to auto-detect a serial port.
type MeshConfig struct {
	SerialPort string      `yaml:"serial_port"`
	Channel    uint32      `yaml:"channel"`
	MQTT       *MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig configures the connection to a Meshtastic MQTT gateway.
type MQTTConfig struct {
	Broker   string `yaml:"broker_address"`
	Port     uint16 `yaml:"port"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		IRC: IRCConfig{
			Server:   "irc.libera.chat",
			Port:     6697,
			Channel:  "#meshtastic",
			Nickname: "meshtastic-bridge",
			UseTLS:   true,
		},
		Meshtastic: MeshConfig{
			Channel: 0,
		},
	}
}

// LoadConfig reads a YAML config file, overlaying it on the defaults. A
// missing file is not an error; the defaults are returned unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the invariants the Router and transports rely on.
func (c *Config) Validate() error {
	if c.IRC.Server == "" {
		return errors.New("irc server must be set")
	}
	if c.IRC.Nickname == "" {
		return errors.New("irc nickname must be set")
	}
	if !strings.HasPrefix(c.IRC.Channel, "#") && !strings.HasPrefix(c.IRC.Channel, "&") {
		return fmt.Errorf("irc channel %q is not a channel name", c.IRC.Channel)
	}
	if c.Meshtastic.SerialPort != "" && c.Meshtastic.MQTT != nil {
		return errors.New("serial_port and mqtt are mutually exclusive")
	}
	if c.Meshtastic.MQTT != nil {
		if c.Meshtastic.MQTT.Broker == "" {
			return errors.New("mqtt broker_address must be set")
		}
		if c.Meshtastic.MQTT.Topic == "" {
			return errors.New("mqtt topic must be set")
		}
	}
	return nil
}
