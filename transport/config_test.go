package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig("/dev/ttyUSB0")
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.PortName())
	assert.Equal(t, DefaultBaudRate, cfg.BaudRate())
	assert.Equal(t, DefaultLatency, cfg.Latency())
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval())
	assert.NotNil(t, cfg.Clock())
	assert.NotNil(t, cfg.GetLogger())
}

func TestNewConfig_Options(t *testing.T) {
	tests := []struct {
		name    string
		port    string
		opts    []Option
		wantErr bool
	}{
		{name: "empty port", port: "", wantErr: true},
		{name: "supported baud", port: "COM3", opts: []Option{WithBaudRate(115200)}},
		{name: "unsupported baud", port: "COM3", opts: []Option{WithBaudRate(9600)}, wantErr: true},
		{name: "baud code", port: "COM3", opts: []Option{WithBaudCode(Baud38400)}},
		{name: "invalid baud code", port: "COM3", opts: []Option{WithBaudCode(8)}, wantErr: true},
		{name: "zero latency", port: "COM3", opts: []Option{WithLatency(0)}},
		{name: "negative latency", port: "COM3", opts: []Option{WithLatency(-time.Millisecond)}, wantErr: true},
		{name: "latency too large", port: "COM3", opts: []Option{WithLatency(MaxLatency + 1)}, wantErr: true},
		{name: "poll interval too large", port: "COM3", opts: []Option{WithPollInterval(time.Second)}, wantErr: true},
		{name: "nil clock", port: "COM3", opts: []Option{WithClock(nil)}, wantErr: true},
		{name: "nil opener", port: "COM3", opts: []Option{WithOpener(nil)}, wantErr: true},
		{name: "nil logger", port: "COM3", opts: []Option{WithLogger(nil)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfig(tt.port, tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, cfg)
		})
	}
}

func TestNewConfig_UnsupportedBaudIsSentinel(t *testing.T) {
	_, err := NewConfig("COM3", WithBaudRate(9600))
	require.ErrorIs(t, err, ErrUnsupportedBaudRate)
}

func TestBaudCode(t *testing.T) {
	tests := []struct {
		code BaudCode
		rate int
	}{
		{Baud1M, 1000000},
		{Baud500K, 500000},
		{Baud250K, 250000},
		{Baud128K, 128000},
		{Baud115200, 115200},
		{Baud76800, 76800},
		{Baud57600, 57600},
		{Baud38400, 38400},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.True(t, tt.code.Valid())
			assert.Equal(t, tt.rate, tt.code.Rate())

			code, ok := BaudCodeOf(tt.rate)
			require.True(t, ok)
			assert.Equal(t, tt.code, code)
		})
	}

	assert.False(t, BaudCode(8).Valid())
	assert.Zero(t, BaudCode(8).Rate())
	assert.Equal(t, "BaudCode(8)", BaudCode(8).String())

	_, ok := BaudCodeOf(9600)
	assert.False(t, ok)
	assert.Len(t, SupportedBaudRates(), 8)
}
