package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.bug.st/serial"

	"github.com/arloliu/go-sts/logger"
)

const (
	DefaultBaudRate     = 1000000
	DefaultLatency      = 50 * time.Millisecond // allowance added to every receive deadline
	DefaultPollInterval = 200 * time.Microsecond
)

const (
	MaxLatency      = 5 * time.Second
	MaxPollInterval = 50 * time.Millisecond
)

// Config holds the settings of a Transport.
type Config struct {
	portName     string
	baudRate     int
	latency      time.Duration
	pollInterval time.Duration
	clock        clock.Clock
	opener       OpenFunc
	logger       logger.Logger
}

// NewConfig creates a transport configuration for the named serial port.
//
// opts are functional options applied in order; see With* functions.
func NewConfig(portName string, opts ...Option) (*Config, error) {
	if portName == "" {
		return nil, errors.New("transport: port name must not be empty")
	}

	cfg := &Config{
		portName:     portName,
		baudRate:     DefaultBaudRate,
		latency:      DefaultLatency,
		pollInterval: DefaultPollInterval,
		clock:        clock.New(),
		opener:       OpenSerial,
		logger:       logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// PortName returns the serial port name.
func (cfg *Config) PortName() string { return cfg.portName }

// BaudRate returns the initial bit rate.
func (cfg *Config) BaudRate() int { return cfg.baudRate }

// Latency returns the fixed allowance added to every receive deadline.
func (cfg *Config) Latency() time.Duration { return cfg.latency }

// PollInterval returns the pause between empty reads in receive loops.
func (cfg *Config) PollInterval() time.Duration { return cfg.pollInterval }

// Clock returns the time source used for deadlines.
func (cfg *Config) Clock() clock.Clock { return cfg.clock }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithBaudRate sets the bit rate. It must be one of SupportedBaudRates.
func WithBaudRate(rate int) Option {
	return optFunc(func(cfg *Config) error {
		if _, ok := BaudCodeOf(rate); !ok {
			return fmt.Errorf("%w: %d", ErrUnsupportedBaudRate, rate)
		}
		cfg.baudRate = rate

		return nil
	})
}

// WithBaudCode sets the bit rate from a register code.
func WithBaudCode(code BaudCode) Option {
	return optFunc(func(cfg *Config) error {
		if !code.Valid() {
			return fmt.Errorf("%w: code %d", ErrUnsupportedBaudRate, code)
		}
		cfg.baudRate = code.Rate()

		return nil
	})
}

// WithLatency sets the fixed allowance added to every receive deadline.
func WithLatency(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 || d > MaxLatency {
			return fmt.Errorf("transport: latency %v out of range [0, %v]", d, MaxLatency)
		}
		cfg.latency = d

		return nil
	})
}

// WithPollInterval sets the pause taken by Idle.
func WithPollInterval(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 || d > MaxPollInterval {
			return fmt.Errorf("transport: poll interval %v out of range [0, %v]", d, MaxPollInterval)
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithClock sets the time source for deadlines.
func WithClock(c clock.Clock) Option {
	return optFunc(func(cfg *Config) error {
		if c == nil {
			return errors.New("transport: clock must not be nil")
		}
		cfg.clock = c

		return nil
	})
}

// WithOpener replaces the function used to open the port.
func WithOpener(fn OpenFunc) Option {
	return optFunc(func(cfg *Config) error {
		if fn == nil {
			return errors.New("transport: opener must not be nil")
		}
		cfg.opener = fn

		return nil
	})
}

// WithPort makes Open use an already opened port.
func WithPort(p Port) Option {
	return WithOpener(func(string, *serial.Mode) (Port, error) {
		if p == nil {
			return nil, errors.New("transport: nil port")
		}

		return p, nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
