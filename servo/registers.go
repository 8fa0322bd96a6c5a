package servo

// EEPROM registers.
const (
	RegModelNumber uint8 = 3 // 2 bytes
	RegID          uint8 = 5
	RegBaudRate    uint8 = 6
	RegMinAngle    uint8 = 9  // 2 bytes
	RegMaxAngle    uint8 = 11 // 2 bytes
	RegCWDead      uint8 = 26
	RegCCWDead     uint8 = 27
	RegOffset      uint8 = 31 // 2 bytes, sign bit 11
	RegMode        uint8 = 33
)

// SRAM registers.
const (
	RegTorqueEnable       uint8 = 40
	RegAcceleration       uint8 = 41
	RegGoalPosition       uint8 = 42 // 2 bytes
	RegGoalTime           uint8 = 44 // 2 bytes
	RegGoalSpeed          uint8 = 46 // 2 bytes, sign bit 15
	RegLock               uint8 = 55
	RegPresentPosition    uint8 = 56 // 2 bytes
	RegPresentSpeed       uint8 = 58 // 2 bytes, sign bit 15
	RegPresentLoad        uint8 = 60 // 2 bytes, sign bit 10
	RegPresentVoltage     uint8 = 62
	RegPresentTemperature uint8 = 63
	RegStatus             uint8 = 65
	RegMoving             uint8 = 66
	RegPresentCurrent     uint8 = 69 // 2 bytes
)

// Torque enable register values.
const (
	TorqueOff       uint8 = 0
	TorqueOn        uint8 = 1
	TorqueCalibrate uint8 = 128 // make the present position the new middle
)

const (
	MaxPosition   = 4095
	MaxSpeed      = 3400
	MaxCorrection = 2047

	DefaultSpeed        = 2400
	DefaultAcceleration = 50
)

// sign bits of sign-magnitude registers
const (
	speedSignBit      = 15
	correctionSignBit = 11
	loadSignBit       = 10
)

// Mode is the operating mode register value.
type Mode uint8

const (
	ModePosition Mode = 0
	ModeSpeed    Mode = 1 // continuous rotation at the goal speed
	ModePWM      Mode = 2
	ModeStep     Mode = 3
)

func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeSpeed:
		return "speed"
	case ModePWM:
		return "pwm"
	case ModeStep:
		return "step"
	default:
		return "unknown"
	}
}
