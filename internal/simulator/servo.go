package simulator

import "sync"

// register addresses the simulator gives behaviour to
const (
	regModel       = 3
	regID          = 5
	regBaud        = 6
	regMaxAngle    = 11
	regMode        = 33
	regTorque      = 40
	regGoalPos     = 42
	regPresentPos  = 56
	regVoltage     = 62
	regTemperature = 63
)

// Servo is one simulated device with a 256 byte register file.
// Multi-byte registers are little-endian.
type Servo struct {
	mu      sync.Mutex
	regs    [256]byte
	pending []byte // REG_WRITE payload, address first

	// ErrorByte is returned in every status packet.
	ErrorByte byte
	// Mute makes the servo ignore every request.
	Mute bool
	// FollowGoal copies a goal position written in position mode to the
	// present position register, as if the move completed instantly.
	FollowGoal bool

	// OnRead, when set, runs before a READ or SYNC_READ is served. It may
	// update registers with Set/SetWord but must not call Bus methods.
	OnRead func(s *Servo, addr uint8, n uint8)
	// OnWrite, when set, runs after a write has been applied.
	OnWrite func(s *Servo, addr uint8, data []byte)
}

func newServo(id uint8, model uint16) *Servo {
	s := &Servo{FollowGoal: true}
	s.regs[regModel] = byte(model)
	s.regs[regModel+1] = byte(model >> 8)
	s.regs[regID] = id
	s.regs[regMaxAngle] = 0xFF
	s.regs[regMaxAngle+1] = 0x0F
	s.regs[regTorque] = 1
	s.regs[regVoltage] = 120
	s.regs[regTemperature] = 30

	return s
}

// ID returns the servo's current id register.
func (s *Servo) ID() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.regs[regID]
}

// Set stores bytes starting at addr.
func (s *Servo) Set(addr uint8, data ...byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.regs[addr:], data)
}

// SetWord stores a little-endian word at addr.
func (s *Servo) SetWord(addr uint8, v uint16) {
	s.Set(addr, byte(v), byte(v>>8))
}

// Get returns n bytes starting at addr.
func (s *Servo) Get(addr uint8, n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]byte, n)
	copy(out, s.regs[int(addr):])

	return out
}

// Byte returns the register at addr.
func (s *Servo) Byte(addr uint8) byte {
	return s.Get(addr, 1)[0]
}

// Word returns the little-endian word at addr.
func (s *Servo) Word(addr uint8) uint16 {
	b := s.Get(addr, 2)

	return uint16(b[0]) | uint16(b[1])<<8
}

func (s *Servo) read(addr uint8, n uint8) []byte {
	if s.OnRead != nil {
		s.OnRead(s, addr, n)
	}

	return s.Get(addr, int(n))
}

func (s *Servo) write(addr uint8, data []byte) {
	s.mu.Lock()
	copy(s.regs[addr:], data)
	end := int(addr) + len(data)
	if s.FollowGoal && s.regs[regMode] == 0 && int(addr) <= regGoalPos && end >= regGoalPos+2 {
		s.regs[regPresentPos] = s.regs[regGoalPos]
		s.regs[regPresentPos+1] = s.regs[regGoalPos+1]
	}
	s.mu.Unlock()

	if s.OnWrite != nil {
		s.OnWrite(s, addr, data)
	}
}

func (s *Servo) regWrite(addr uint8, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append([]byte{addr}, data...)
}

func (s *Servo) action() {
	s.mu.Lock()
	p := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(p) > 0 {
		s.write(p[0], p[1:])
	}
}
