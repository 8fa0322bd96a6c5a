package transport

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/arloliu/go-sts/logger"
)

// fakePort is an in-memory Port. Bytes queued with feed are returned by Read
// in chunks of at most chunk bytes (all at once when chunk is 0).
type fakePort struct {
	mu       sync.Mutex
	rx       bytes.Buffer
	tx       bytes.Buffer
	chunk    int
	writeMax int // 0 = unlimited
	mode     *serial.Mode
	resets   int
	closed   bool
}

func (p *fakePort) feed(b ...byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx.Write(b)
}

func (p *fakePort) written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.tx.Bytes())
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("closed")
	}
	if p.chunk > 0 && len(b) > p.chunk {
		b = b[:p.chunk]
	}
	n, _ := p.rx.Read(b)
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeMax > 0 && len(b) > p.writeMax {
		p.tx.Write(b[:p.writeMax])
		return p.writeMax, errors.New("short write")
	}
	return p.tx.Write(b)
}

func (p *fakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx.Reset()
	p.resets++
	return nil
}

func (p *fakePort) ResetOutputBuffer() error { return nil }

func (p *fakePort) SetMode(mode *serial.Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
	return nil
}

func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func newTestConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()

	base := []Option{WithLogger(logger.Discard())}
	cfg, err := NewConfig("/dev/ttyTEST", append(base, opts...)...)
	require.NoError(t, err)

	return cfg
}

func newOpenTransport(t *testing.T, opts ...Option) (*Transport, *fakePort) {
	t.Helper()

	p := &fakePort{}
	tr := New(newTestConfig(t, append([]Option{WithPort(p)}, opts...)...))
	require.NoError(t, tr.Open())
	t.Cleanup(func() { _ = tr.Close() })

	return tr, p
}

func newMockClockTransport(t *testing.T) (*Transport, *clock.Mock) {
	t.Helper()

	mc := clock.NewMock()
	tr, _ := newOpenTransport(t, WithClock(mc))

	return tr, mc
}
