// Package config loads the ststool YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaudRate      = 1_000_000
	DefaultLatencyMs     = 50
	DefaultWatchInterval = time.Second
	DefaultTopic         = "sts/telemetry"
	DefaultLogLevel      = "info"
)

type Config struct {
	LogLevel string      `yaml:"log_level"`
	Buses    []BusConfig `yaml:"buses"`
	MQTT     MQTTConfig  `yaml:"mqtt"`
}

// BusConfig describes one serial bus and the servos expected on it.
type BusConfig struct {
	Name      string  `yaml:"name"`
	Port      string  `yaml:"port"`
	BaudRate  int     `yaml:"baud_rate"`
	LatencyMs *int    `yaml:"latency_ms"`
	Servos    []uint8 `yaml:"servos"`
}

// Latency returns the receive latency allowance. An unset latency_ms means
// DefaultLatencyMs; an explicit 0 is kept.
func (b BusConfig) Latency() time.Duration {
	ms := DefaultLatencyMs
	if b.LatencyMs != nil {
		ms = *b.LatencyMs
	}

	return time.Duration(ms) * time.Millisecond
}

// Millis returns a pointer to ms for the optional millisecond fields.
func Millis(ms int) *int { return &ms }

// MQTTConfig configures the telemetry publisher of the watch command.
type MQTTConfig struct {
	Broker     string `yaml:"broker"`
	ClientID   string `yaml:"client_id"`
	Topic      string `yaml:"topic"`
	QoS        byte   `yaml:"qos"`
	IntervalMs int    `yaml:"interval_ms"`
}

// Interval returns the telemetry publishing period.
func (m MQTTConfig) Interval() time.Duration {
	return time.Duration(m.IntervalMs) * time.Millisecond
}

// Load reads, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML document, fills in defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	for i := range cfg.Buses {
		b := &cfg.Buses[i]
		if b.BaudRate == 0 {
			b.BaudRate = DefaultBaudRate
		}
		if b.LatencyMs == nil {
			b.LatencyMs = Millis(DefaultLatencyMs)
		}
		if b.Name == "" {
			b.Name = b.Port
		}
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = DefaultTopic
	}
	if cfg.MQTT.IntervalMs == 0 {
		cfg.MQTT.IntervalMs = int(DefaultWatchInterval / time.Millisecond)
	}
}

// Bus returns the bus named name.
func (cfg *Config) Bus(name string) (BusConfig, bool) {
	for _, b := range cfg.Buses {
		if b.Name == name {
			return b, true
		}
	}

	return BusConfig{}, false
}
