package protocol

// Instruction is an instruction code.
type Instruction uint8

// Instruction codes.
const (
	InstPing      Instruction = 0x01 // check presence
	InstRead      Instruction = 0x02 // read registers
	InstWrite     Instruction = 0x03 // write registers
	InstRegWrite  Instruction = 0x04 // buffer a write until Action
	InstAction    Instruction = 0x05 // apply buffered writes
	InstSyncRead  Instruction = 0x82 // read the same window of several servos
	InstSyncWrite Instruction = 0x83 // write the same window of several servos
)

// String returns the instruction mnemonic.
func (i Instruction) String() string {
	switch i {
	case InstPing:
		return "PING"
	case InstRead:
		return "READ"
	case InstWrite:
		return "WRITE"
	case InstRegWrite:
		return "REG_WRITE"
	case InstAction:
		return "ACTION"
	case InstSyncRead:
		return "SYNC_READ"
	case InstSyncWrite:
		return "SYNC_WRITE"
	default:
		return "UNKNOWN"
	}
}

const (
	// BroadcastID addresses every servo; broadcast requests are never answered.
	BroadcastID uint8 = 0xFE
	// MaxID is the highest address assignable to a servo.
	MaxID uint8 = 0xFD
	// MaxValidID is the highest id accepted in a received status packet.
	MaxValidID uint8 = 0xFD
)

const (
	// MaxPacketLen bounds both transmitted and received packets.
	MaxPacketLen = 250
	// MinStatusLen is the size of a status packet without parameters.
	MinStatusLen = 6

	headerByte = 0xFF
)

// byte offsets inside a packet
const (
	pktHeader0 = iota
	pktHeader1
	pktID
	pktLength
	pktInstruction
	pktParam0

	pktError = pktInstruction
)

// regModelNumber is the two byte model number register read by Ping.
const regModelNumber = 3
