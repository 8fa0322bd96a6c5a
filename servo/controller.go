package servo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-sts/logger"
	"github.com/arloliu/go-sts/protocol"
	"github.com/arloliu/go-sts/transport"
)

var (
	ErrInvalidID       = errors.New("servo: id out of range [0, 253]")
	ErrInvalidBaudCode = errors.New("servo: baud rate code out of range [0, 7]")
	ErrInvalidPosition = errors.New("servo: position out of range [0, 4095]")
	ErrInvalidSpeed    = errors.New("servo: speed must be positive")
	ErrNoModel         = errors.New("servo: device reported model number 0")
	ErrPartialRead     = errors.New("servo: not every servo returned valid data")
)

// Controller drives the servos on one bus.
type Controller struct {
	mu sync.Mutex

	h      *protocol.Handler
	tr     *transport.Transport // set when the controller owns the transport
	clock  clock.Clock
	logger logger.Logger
	tare   TareOptions

	handlerOpts  []protocol.HandlerOption
	calibrations *xsync.MapOf[uint8, Calibration]
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source for motion waits and tare polling.
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) {
		if c != nil {
			ctl.clock = c
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(ctl *Controller) {
		if l != nil {
			ctl.logger = l
		}
	}
}

// WithTareOptions replaces the tare timing parameters.
func WithTareOptions(opts TareOptions) Option {
	return func(ctl *Controller) { ctl.tare = opts }
}

// WithHandlerOptions sets the packet handler options used by Open.
func WithHandlerOptions(hopts ...protocol.HandlerOption) Option {
	return func(ctl *Controller) { ctl.handlerOpts = hopts }
}

// New creates a controller on an existing packet handler. The caller keeps
// ownership of the handler's transport.
func New(h *protocol.Handler, opts ...Option) *Controller {
	c := newController(h.Transport().Config().GetLogger(), opts)
	c.h = h

	return c
}

// Open opens the transport described by cfg and returns a controller that
// owns it. Close releases the port.
func Open(cfg *transport.Config, opts ...Option) (*Controller, error) {
	tr := transport.New(cfg)
	if err := tr.Open(); err != nil {
		return nil, err
	}

	c := newController(cfg.GetLogger(), opts)
	c.h = protocol.NewHandler(tr, c.handlerOpts...)
	c.tr = tr

	return c, nil
}

func newController(l logger.Logger, opts []Option) *Controller {
	c := &Controller{
		clock:        clock.New(),
		logger:       l,
		tare:         DefaultTareOptions(),
		calibrations: xsync.NewMapOf[uint8, Calibration](),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Close closes the transport when the controller owns it.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tr == nil {
		return nil
	}

	return c.tr.Close()
}

// Handler returns the packet handler.
func (c *Controller) Handler() *protocol.Handler { return c.h }

// opError converts a wire-level outcome into an error.
func opError(op string, id uint8, res protocol.CommResult, devErr protocol.DeviceError) error {
	if res != protocol.CommSuccess {
		return fmt.Errorf("servo %d: %s: %w", id, op, res.Err())
	}
	if devErr != 0 {
		return fmt.Errorf("servo %d: %s: %w", id, op, devErr.Err())
	}

	return nil
}

func (c *Controller) read1(op string, id uint8, addr uint8) (uint8, error) {
	v, res, devErr := c.h.Read1ByteTxRx(id, addr)
	if err := opError(op, id, res, devErr); err != nil {
		return 0, err
	}

	return v, nil
}

func (c *Controller) read2(op string, id uint8, addr uint8) (uint16, error) {
	v, res, devErr := c.h.Read2ByteTxRx(id, addr)
	if err := opError(op, id, res, devErr); err != nil {
		return 0, err
	}

	return v, nil
}

func (c *Controller) readBlock(op string, id uint8, addr uint8, n uint8) ([]byte, error) {
	data, res, devErr := c.h.ReadTxRx(id, addr, n)
	if err := opError(op, id, res, devErr); err != nil {
		return nil, err
	}

	return data, nil
}

func (c *Controller) write1(op string, id uint8, addr uint8, v uint8) error {
	res, devErr := c.h.Write1ByteTxRx(id, addr, v)

	return opError(op, id, res, devErr)
}

func (c *Controller) write2(op string, id uint8, addr uint8, v uint16) error {
	res, devErr := c.h.Write2ByteTxRx(id, addr, v)

	return opError(op, id, res, devErr)
}

// sleep waits for d on the controller clock or until ctx is done.
func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := c.clock.Timer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
