// Package simulator emulates a bus of STS servos behind the serial port
// interface, so packet, batch and motion code can run without hardware.
package simulator

import (
	"bytes"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.bug.st/serial"
)

const broadcastID = 0xFE

const (
	instPing      = 0x01
	instRead      = 0x02
	instWrite     = 0x03
	instRegWrite  = 0x04
	instAction    = 0x05
	instSyncRead  = 0x82
	instSyncWrite = 0x83
)

// ErrClosed is returned by I/O on a closed bus.
var ErrClosed = errors.New("simulator: port closed")

// Request is an instruction packet the bus accepted.
type Request struct {
	ID          uint8
	Instruction uint8
	Params      []byte
}

// Bus is a simulated multi-drop servo bus. It implements the serial port
// methods used by the transport package.
type Bus struct {
	servos *xsync.MapOf[uint8, *Servo]

	mu       sync.Mutex
	rx       bytes.Buffer // bytes waiting for the host
	inbox    []byte       // partial instruction packets from the host
	noise    []byte       // prepended to the next reply
	corrupt  bool
	truncate int
	closed   bool
	mode     *serial.Mode
	requests []Request
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{servos: xsync.NewMapOf[uint8, *Servo]()}
}

// AddServo attaches a servo answering to id.
func (b *Bus) AddServo(id uint8, model uint16) *Servo {
	s := newServo(id, model)
	b.servos.Store(id, s)

	return s
}

// Servo returns the servo currently answering to id.
func (b *Bus) Servo(id uint8) (*Servo, bool) {
	return b.servos.Load(id)
}

// RemoveServo detaches the servo answering to id.
func (b *Bus) RemoveServo(id uint8) {
	b.servos.Delete(id)
}

// InjectNoise queues bytes that precede the next reply.
func (b *Bus) InjectNoise(data ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.noise = append(b.noise, data...)
}

// CorruptNextReply flips the checksum of the next reply.
func (b *Bus) CorruptNextReply() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.corrupt = true
}

// TruncateNextReply drops the last n bytes of the next reply.
func (b *Bus) TruncateNextReply(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.truncate = n
}

// Requests returns the instruction packets received so far.
func (b *Bus) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.requests)
}

// Mode returns the framing last set with SetMode.
func (b *Bus) Mode() *serial.Mode {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.mode
}

// Read drains replies queued for the host. It never blocks.
func (b *Bus) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	if b.rx.Len() == 0 {
		return 0, nil
	}

	return b.rx.Read(p)
}

// Write accepts instruction packets and answers them immediately.
func (b *Bus) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	b.inbox = append(b.inbox, p...)
	b.process()

	return len(p), nil
}

// ResetInputBuffer drops replies the host has not read.
func (b *Bus) ResetInputBuffer() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rx.Reset()

	return nil
}

// ResetOutputBuffer is a no-op; writes are processed synchronously.
func (b *Bus) ResetOutputBuffer() error { return nil }

// SetMode records the framing for Mode.
func (b *Bus) SetMode(mode *serial.Mode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mode = mode

	return nil
}

// SetReadTimeout is a no-op; Read never blocks.
func (b *Bus) SetReadTimeout(time.Duration) error { return nil }

// Close makes further I/O fail with ErrClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	return nil
}

// Reopen makes a closed bus usable again.
func (b *Bus) Reopen() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = false
	b.inbox = nil
	b.rx.Reset()
}

// process consumes complete packets from inbox. Called with b.mu held.
func (b *Bus) process() {
	for {
		start := bytes.Index(b.inbox, []byte{0xFF, 0xFF})
		if start < 0 {
			b.inbox = b.inbox[:0]
			return
		}
		b.inbox = b.inbox[start:]
		if len(b.inbox) < 4 {
			return
		}
		total := int(b.inbox[3]) + 4
		if len(b.inbox) < total {
			return
		}
		pkt := b.inbox[:total]
		b.inbox = b.inbox[total:]

		if checksum(pkt[2:total-1]) != pkt[total-1] {
			continue
		}
		req := Request{
			ID:          pkt[2],
			Instruction: pkt[4],
			Params:      slices.Clone(pkt[5 : total-1]),
		}
		b.requests = append(b.requests, req)
		b.dispatch(req)
	}
}

func (b *Bus) dispatch(req Request) {
	switch req.Instruction {
	case instSyncWrite:
		b.syncWrite(req.Params)
		return
	case instSyncRead:
		b.syncRead(req.Params)
		return
	}

	if req.ID == broadcastID {
		b.servos.Range(func(_ uint8, s *Servo) bool {
			if !s.Mute {
				b.execute(s, req)
			}
			return true
		})
		return
	}

	s, ok := b.servos.Load(req.ID)
	if !ok || s.Mute {
		return
	}
	if params, ok := b.execute(s, req); ok {
		b.reply(req.ID, s.ErrorByte, params)
	}
}

// execute applies req to s and returns the reply parameters. ok is false for
// instructions the servo does not answer.
func (b *Bus) execute(s *Servo, req Request) ([]byte, bool) {
	p := req.Params
	switch req.Instruction {
	case instPing:
		return nil, true
	case instRead:
		if len(p) < 2 {
			return nil, false
		}
		return s.read(p[0], p[1]), true
	case instWrite:
		if len(p) < 1 {
			return nil, false
		}
		oldID := s.ID()
		s.write(p[0], p[1:])
		b.rekey(s, oldID)
		return nil, true
	case instRegWrite:
		if len(p) < 1 {
			return nil, false
		}
		s.regWrite(p[0], p[1:])
		return nil, true
	case instAction:
		oldID := s.ID()
		s.action()
		b.rekey(s, oldID)
		return nil, true
	}

	return nil, false
}

// rekey moves s when a write changed its id register. The reply still goes
// out under the old id.
func (b *Bus) rekey(s *Servo, oldID uint8) {
	if newID := s.ID(); newID != oldID {
		b.servos.Delete(oldID)
		b.servos.Store(newID, s)
	}
}

func (b *Bus) syncWrite(p []byte) {
	if len(p) < 2 {
		return
	}
	start, n := p[0], int(p[1])
	body := p[2:]
	for len(body) >= n+1 {
		if s, ok := b.servos.Load(body[0]); ok && !s.Mute {
			s.write(start, body[1:1+n])
		}
		body = body[n+1:]
	}
}

func (b *Bus) syncRead(p []byte) {
	if len(p) < 2 {
		return
	}
	start, n := p[0], p[1]
	for _, id := range p[2:] {
		s, ok := b.servos.Load(id)
		if !ok || s.Mute {
			continue
		}
		b.reply(id, s.ErrorByte, s.read(start, n))
	}
}

// reply queues a status packet, applying any pending fault injection.
func (b *Bus) reply(id uint8, errByte byte, params []byte) {
	total := len(params) + 6
	pkt := make([]byte, total)
	pkt[0], pkt[1] = 0xFF, 0xFF
	pkt[2] = id
	pkt[3] = byte(len(params) + 2)
	pkt[4] = errByte
	copy(pkt[5:], params)
	pkt[total-1] = checksum(pkt[2 : total-1])

	if b.corrupt {
		pkt[total-1] ^= 0xFF
		b.corrupt = false
	}
	if b.truncate > 0 {
		pkt = pkt[:max(0, total-b.truncate)]
		b.truncate = 0
	}
	if len(b.noise) > 0 {
		b.rx.Write(b.noise)
		b.noise = nil
	}
	b.rx.Write(pkt)
}

func checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}

	return ^sum
}
