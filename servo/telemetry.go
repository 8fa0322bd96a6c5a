package servo

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3/physic"

	"github.com/arloliu/go-sts/protocol"
)

// StatusFlags is the status register. A set bit reports a fault.
type StatusFlags uint8

const (
	StatusVoltage StatusFlags = 1 << iota
	StatusSensor
	StatusTemperature
	StatusCurrent
	StatusAngle
	StatusOverload
)

var statusNames = [...]string{"Voltage", "Sensor", "Temperature", "Current", "Angle", "Overload"}

// OK reports whether no fault bit is set.
func (s StatusFlags) OK() bool { return s&0x3F == 0 }

// Healthy maps each status name to true when its fault bit is clear.
func (s StatusFlags) Healthy() map[string]bool {
	out := make(map[string]bool, len(statusNames))
	for i, name := range statusNames {
		out[name] = s&(1<<i) == 0
	}

	return out
}

// Faults returns the names of the set fault bits.
func (s StatusFlags) Faults() []string {
	var out []string
	for i, name := range statusNames {
		if s&(1<<i) != 0 {
			out = append(out, name)
		}
	}

	return out
}

func (s StatusFlags) String() string {
	if s.OK() {
		return "ok"
	}

	return strings.Join(s.Faults(), "|")
}

// ReadStatus returns the status register.
func (c *Controller) ReadStatus(id uint8) (StatusFlags, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.read1("read status", id, RegStatus)

	return StatusFlags(v), err
}

// ReadVoltage returns the supply voltage.
func (c *Controller) ReadVoltage(id uint8) (physic.ElectricPotential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.read1("read voltage", id, RegPresentVoltage)
	if err != nil {
		return 0, err
	}

	return voltage(v), nil
}

// ReadTemperature returns the internal temperature.
func (c *Controller) ReadTemperature(id uint8) (physic.Temperature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.read1("read temperature", id, RegPresentTemperature)
	if err != nil {
		return 0, err
	}

	return temperature(v), nil
}

// ReadCurrent returns the motor current.
func (c *Controller) ReadCurrent(id uint8) (physic.ElectricCurrent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.read2("read current", id, RegPresentCurrent)
	if err != nil {
		return 0, err
	}

	return current(v), nil
}

// Telemetry is a snapshot of a servo's state.
type Telemetry struct {
	ID           uint8                    `json:"id"`
	Position     int                      `json:"position"`
	Speed        int                      `json:"speed"`
	Load         float64                  `json:"load_percent"`
	Voltage      physic.ElectricPotential `json:"-"`
	Temperature  physic.Temperature       `json:"-"`
	Current      physic.ElectricCurrent   `json:"-"`
	Status       StatusFlags              `json:"status"`
	Moving       bool                     `json:"moving"`
	Mode         Mode                     `json:"mode"`
	Correction   int                      `json:"correction"`
	Acceleration uint8                    `json:"acceleration"`
}

// Volts returns the supply voltage in volts.
func (t Telemetry) Volts() float64 { return float64(t.Voltage) / float64(physic.Volt) }

// Celsius returns the temperature in degrees Celsius.
func (t Telemetry) Celsius() float64 {
	return float64(t.Temperature-physic.ZeroCelsius) / float64(physic.Kelvin)
}

// MilliAmps returns the current in milliamperes.
func (t Telemetry) MilliAmps() float64 {
	return float64(t.Current) / float64(physic.MilliAmpere)
}

func (t Telemetry) String() string {
	return fmt.Sprintf("servo %d: pos=%d speed=%d load=%.1f%% %s %s %s status=%s moving=%t",
		t.ID, t.Position, t.Speed, t.Load, t.Voltage, t.Temperature, t.Current, t.Status, t.Moving)
}

const (
	// offset, mode ... acceleration
	configStart = RegOffset
	configLen   = RegAcceleration - RegOffset + 1
	// present position ... present current
	stateStart = RegPresentPosition
	stateLen   = RegPresentCurrent + 2 - RegPresentPosition
)

// ReadTelemetry reads a telemetry snapshot with two READ exchanges.
func (c *Controller) ReadTelemetry(id uint8) (Telemetry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := c.readBlock("read telemetry", id, configStart, configLen)
	if err != nil {
		return Telemetry{}, err
	}
	st, err := c.readBlock("read telemetry", id, stateStart, stateLen)
	if err != nil {
		return Telemetry{}, err
	}

	order := c.h.ByteOrder()
	at := func(b []byte, base, reg uint8) []byte { return b[reg-base:] }

	return Telemetry{
		ID:           id,
		Position:     int(order.Word(at(st, stateStart, RegPresentPosition))),
		Speed:        protocol.DecodeSignMagnitude(order.Word(at(st, stateStart, RegPresentSpeed)), speedSignBit),
		Load:         loadPercent(order.Word(at(st, stateStart, RegPresentLoad))),
		Voltage:      voltage(at(st, stateStart, RegPresentVoltage)[0]),
		Temperature:  temperature(at(st, stateStart, RegPresentTemperature)[0]),
		Current:      current(order.Word(at(st, stateStart, RegPresentCurrent))),
		Status:       StatusFlags(at(st, stateStart, RegStatus)[0]),
		Moving:       at(st, stateStart, RegMoving)[0] != 0,
		Mode:         Mode(at(cfg, configStart, RegMode)[0]),
		Correction:   decodeCorrection(order.Word(at(cfg, configStart, RegOffset))),
		Acceleration: at(cfg, configStart, RegAcceleration)[0],
	}, nil
}

// voltage converts the register value (units of 0.1 V).
func voltage(v uint8) physic.ElectricPotential {
	return physic.ElectricPotential(v) * 100 * physic.MilliVolt
}

func temperature(v uint8) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(v)*physic.Kelvin
}

// current converts the register value (units of 6.5 mA).
func current(v uint16) physic.ElectricCurrent {
	return physic.ElectricCurrent(v) * 6500 * physic.MicroAmpere
}
