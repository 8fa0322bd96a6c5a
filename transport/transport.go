package transport

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-sts/logger"
)

var (
	ErrNotOpen             = errors.New("transport: port is not open")
	ErrAlreadyOpen         = errors.New("transport: port is already open")
	ErrUnsupportedBaudRate = errors.New("transport: unsupported baud rate")
)

const bitsPerByte = 10 // 8N1: start + 8 data + stop

// Transport drives one serial port.
type Transport struct {
	cfg    *Config
	logger logger.Logger

	mu   sync.Mutex // guards port and baud
	port Port
	baud int

	busy atomic.Bool

	// pending holds bytes pulled from the port by BytesAvailable.
	pending []byte
	scratch []byte

	txTimePerByte time.Duration
	startTime     time.Time
	timeout       time.Duration
}

// New creates a Transport. The port is not opened until Open is called.
func New(cfg *Config) *Transport {
	t := &Transport{
		cfg:     cfg,
		logger:  cfg.logger.With("port", cfg.portName),
		scratch: make([]byte, 256),
	}
	t.setBaud(cfg.baudRate)

	return t
}

// Config returns the configuration the transport was created with.
func (t *Transport) Config() *Config { return t.cfg }

// Open opens the serial port at the configured baud rate and clears its buffers.
func (t *Transport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		return ErrAlreadyOpen
	}

	p, err := t.cfg.opener(t.cfg.portName, serialMode(t.baud))
	if err != nil {
		return fmt.Errorf("transport: open %s: %w", t.cfg.portName, err)
	}
	// zero read timeout: Read returns whatever is buffered without waiting
	if err := p.SetReadTimeout(0); err != nil {
		_ = p.Close()
		return fmt.Errorf("transport: set read timeout: %w", err)
	}

	t.port = p
	t.pending = t.pending[:0]
	t.flushLocked()
	t.logger.Info("transport: port opened", "baud", t.baud)

	return nil
}

// Close closes the port. Closing a closed transport is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}

	err := t.port.Close()
	t.port = nil
	t.pending = nil
	t.logger.Info("transport: port closed")

	return err
}

// IsOpen reports whether the port is open.
func (t *Transport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.port != nil
}

// BaudRate returns the current bit rate.
func (t *Transport) BaudRate() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.baud
}

// SetBaudRate changes the bit rate, reconfiguring the open port if any.
func (t *Transport) SetBaudRate(rate int) error {
	if _, ok := BaudCodeOf(rate); !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedBaudRate, rate)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		if err := t.port.SetMode(serialMode(rate)); err != nil {
			return fmt.Errorf("transport: set baud rate %d: %w", rate, err)
		}
	}
	t.setBaud(rate)
	t.logger.Debug("transport: baud rate changed", "baud", rate)

	return nil
}

func (t *Transport) setBaud(rate int) {
	t.baud = rate
	t.txTimePerByte = bitsPerByte * time.Second / time.Duration(rate)
}

// TxTimePerByte returns the wire time of one byte at the current rate.
func (t *Transport) TxTimePerByte() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.txTimePerByte
}

// Flush discards unread input, unsent output and any buffered bytes.
func (t *Transport) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.flushLocked()
}

func (t *Transport) flushLocked() {
	t.pending = t.pending[:0]
	if t.port == nil {
		return
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		t.logger.Warn("transport: reset input buffer failed", "error", err)
	}
	if err := t.port.ResetOutputBuffer(); err != nil {
		t.logger.Warn("transport: reset output buffer failed", "error", err)
	}
}

// Write sends b and returns the number of bytes accepted by the port.
func (t *Transport) Write(b []byte) int {
	t.mu.Lock()
	p := t.port
	t.mu.Unlock()

	if p == nil {
		return 0
	}

	written := 0
	for written < len(b) {
		n, err := p.Write(b[written:])
		written += n
		if err != nil {
			t.logger.Warn("transport: write failed", "error", err, "written", written, "total", len(b))
			break
		}
		if n == 0 {
			break
		}
	}

	return written
}

// Read returns up to max bytes without waiting. The result may be empty.
func (t *Transport) Read(max int) []byte {
	if max <= 0 {
		return nil
	}

	if len(t.pending) < max {
		t.fill(max - len(t.pending))
	}

	n := min(max, len(t.pending))
	out := make([]byte, n)
	copy(out, t.pending[:n])
	t.pending = t.pending[n:]

	return out
}

// BytesAvailable returns how many received bytes can be read immediately.
func (t *Transport) BytesAvailable() int {
	t.fill(len(t.scratch))

	return len(t.pending)
}

// fill moves at most want bytes from the port into pending.
func (t *Transport) fill(want int) {
	t.mu.Lock()
	p := t.port
	t.mu.Unlock()

	if p == nil || want <= 0 {
		return
	}

	buf := t.scratch[:min(want, len(t.scratch))]
	n, err := p.Read(buf)
	if n > 0 {
		t.pending = append(t.pending, buf[:n]...)
	}
	if err != nil {
		t.logger.Debug("transport: read failed", "error", err)
	}
}

// Idle pauses for the configured poll interval. Receive loops call it
// between empty reads. The pause always uses wall time, not the configured
// clock, so a stopped mock clock cannot stall a receive loop.
func (t *Transport) Idle() {
	if d := t.cfg.pollInterval; d > 0 {
		time.Sleep(d)
	}
}

// BeginTimeout starts a receive deadline sized for a reply of expectedLen bytes.
func (t *Transport) BeginTimeout(expectedLen int) {
	t.mu.Lock()
	perByte := t.txTimePerByte
	t.mu.Unlock()

	t.BeginTimeoutDuration(perByte*time.Duration(expectedLen+3) + t.cfg.latency)
}

// BeginTimeoutDuration starts a receive deadline of d.
func (t *Transport) BeginTimeoutDuration(d time.Duration) {
	t.startTime = t.cfg.clock.Now()
	t.timeout = d
}

// Timeout returns the duration of the current receive deadline.
func (t *Transport) Timeout() time.Duration { return t.timeout }

// IsTimedOut reports whether the current receive deadline has passed.
//
// A clock that moved backward restarts the deadline window. Once expired the
// deadline stays expired until the next BeginTimeout.
func (t *Transport) IsTimedOut() bool {
	if t.elapsed() > t.timeout {
		t.timeout = 0
		return true
	}

	return false
}

func (t *Transport) elapsed() time.Duration {
	now := t.cfg.clock.Now()
	d := now.Sub(t.startTime)
	if d < 0 {
		t.startTime = now
		return 0
	}

	return d
}

// Lease is exclusive use of the bus for one exchange.
type Lease struct {
	t        *Transport
	released atomic.Bool
}

// TryAcquire takes the bus guard. It returns false, without waiting, when
// another exchange holds it.
func (t *Transport) TryAcquire() (*Lease, bool) {
	if !t.busy.CompareAndSwap(false, true) {
		return nil, false
	}

	return &Lease{t: t}, true
}

// InUse reports whether the bus guard is held.
func (t *Transport) InUse() bool { return t.busy.Load() }

// Release gives the bus guard back. Calling it more than once is harmless.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	if l.released.CompareAndSwap(false, true) {
		l.t.busy.Store(false)
	}
}
