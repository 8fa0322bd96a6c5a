package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
log_level: debug
buses:
  - name: arm
    port: /dev/ttyUSB0
    servos: [1, 2, 3]
  - port: /dev/ttyUSB1
    baud_rate: 115200
    latency_ms: 20
mqtt:
  broker: tcp://localhost:1883
  qos: 1
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ststool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	require.Len(t, cfg.Buses, 2)

	arm := cfg.Buses[0]
	assert.Equal(t, "arm", arm.Name)
	assert.Equal(t, DefaultBaudRate, arm.BaudRate)
	assert.Equal(t, 50*time.Millisecond, arm.Latency())
	assert.Equal(t, []uint8{1, 2, 3}, arm.Servos)

	second, ok := cfg.Bus("/dev/ttyUSB1")
	require.True(t, ok, "unnamed bus is named after its port")
	assert.Equal(t, 115200, second.BaudRate)
	assert.Equal(t, 20*time.Millisecond, second.Latency())

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, DefaultTopic, cfg.MQTT.Topic)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, DefaultWatchInterval, cfg.MQTT.Interval())

	_, ok = cfg.Bus("missing")
	assert.False(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Parse([]byte("buses: [oops"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: decode")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid",
			cfg:  Config{Buses: []BusConfig{{Port: "/dev/a", Servos: []uint8{0, 253}}}},
		},
		{
			name:    "bad level",
			cfg:     Config{LogLevel: "loud"},
			wantErr: "log_level",
		},
		{
			name:    "missing port",
			cfg:     Config{Buses: []BusConfig{{Name: "x"}}},
			wantErr: "port is required",
		},
		{
			name:    "duplicate name",
			cfg:     Config{Buses: []BusConfig{{Name: "x", Port: "/dev/a"}, {Name: "x", Port: "/dev/b"}}},
			wantErr: "duplicate name",
		},
		{
			name:    "shared port",
			cfg:     Config{Buses: []BusConfig{{Name: "x", Port: "/dev/a"}, {Name: "y", Port: "/dev/a"}}},
			wantErr: "already used",
		},
		{
			name:    "baud rate",
			cfg:     Config{Buses: []BusConfig{{Port: "/dev/a", BaudRate: 9600}}},
			wantErr: "unsupported baud_rate 9600",
		},
		{
			name:    "latency",
			cfg:     Config{Buses: []BusConfig{{Port: "/dev/a", LatencyMs: Millis(6000)}}},
			wantErr: "latency_ms",
		},
		{
			name:    "servo id",
			cfg:     Config{Buses: []BusConfig{{Port: "/dev/a", Servos: []uint8{254}}}},
			wantErr: "out of range",
		},
		{
			name:    "duplicate servo",
			cfg:     Config{Buses: []BusConfig{{Port: "/dev/a", Servos: []uint8{4, 4}}}},
			wantErr: "duplicate servo id 4",
		},
		{
			name:    "qos",
			cfg:     Config{MQTT: MQTTConfig{QoS: 3}},
			wantErr: "qos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			ApplyDefaults(&cfg)

			err := Validate(&cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_Latency(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want time.Duration
	}{
		{name: "unset", yaml: "buses:\n  - port: /dev/a\n", want: DefaultLatencyMs * time.Millisecond},
		{name: "explicit zero", yaml: "buses:\n  - port: /dev/a\n    latency_ms: 0\n", want: 0},
		{name: "explicit value", yaml: "buses:\n  - port: /dev/a\n    latency_ms: 5\n", want: 5 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			require.Len(t, cfg.Buses, 1)
			require.NotNil(t, cfg.Buses[0].LatencyMs)
			assert.Equal(t, tt.want, cfg.Buses[0].Latency())
		})
	}

	assert.Equal(t, DefaultLatencyMs*time.Millisecond, BusConfig{}.Latency(), "nil latency falls back to the default")
}
