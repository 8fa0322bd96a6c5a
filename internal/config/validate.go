package config

import (
	"fmt"

	"github.com/arloliu/go-sts/logger"
	"github.com/arloliu/go-sts/protocol"
	"github.com/arloliu/go-sts/transport"
)

const maxLatencyMs = 5000

// Validate checks the configuration without changing it.
func Validate(cfg *Config) error {
	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}

	names := make(map[string]struct{}, len(cfg.Buses))
	ports := make(map[string]string, len(cfg.Buses))
	for i, b := range cfg.Buses {
		if b.Port == "" {
			return fmt.Errorf("config: bus %d: port is required", i)
		}
		if _, dup := names[b.Name]; dup {
			return fmt.Errorf("config: bus %q: duplicate name", b.Name)
		}
		names[b.Name] = struct{}{}

		if other, dup := ports[b.Port]; dup {
			return fmt.Errorf("config: bus %q: port %s already used by bus %q", b.Name, b.Port, other)
		}
		ports[b.Port] = b.Name

		if _, ok := transport.BaudCodeOf(b.BaudRate); !ok {
			return fmt.Errorf("config: bus %q: unsupported baud_rate %d", b.Name, b.BaudRate)
		}
		if b.LatencyMs != nil && (*b.LatencyMs < 0 || *b.LatencyMs > maxLatencyMs) {
			return fmt.Errorf("config: bus %q: latency_ms must be in [0, %d]", b.Name, maxLatencyMs)
		}

		seen := make(map[uint8]struct{}, len(b.Servos))
		for _, id := range b.Servos {
			if id > protocol.MaxID {
				return fmt.Errorf("config: bus %q: servo id %d out of range [0, %d]", b.Name, id, protocol.MaxID)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("config: bus %q: duplicate servo id %d", b.Name, id)
			}
			seen[id] = struct{}{}
		}
	}

	if cfg.MQTT.QoS > 2 {
		return fmt.Errorf("config: mqtt: qos must be 0, 1 or 2")
	}
	if cfg.MQTT.IntervalMs < 0 {
		return fmt.Errorf("config: mqtt: interval_ms must not be negative")
	}

	return nil
}
