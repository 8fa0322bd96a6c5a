package protocol

import "fmt"

// Checksum returns the one's complement of the low byte of the sum of b.
// b is the packet body from the id byte through the last parameter.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}

	return ^sum
}

// EncodeInstruction builds an instruction packet.
func EncodeInstruction(id uint8, instr Instruction, params []byte) ([]byte, error) {
	if id > BroadcastID {
		return nil, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	total := len(params) + MinStatusLen
	if total > MaxPacketLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketTooLong, total)
	}

	pkt := make([]byte, total)
	pkt[pktHeader0] = headerByte
	pkt[pktHeader1] = headerByte
	pkt[pktID] = id
	pkt[pktLength] = byte(len(params) + 2)
	pkt[pktInstruction] = byte(instr)
	copy(pkt[pktParam0:], params)
	pkt[total-1] = Checksum(pkt[pktID : total-1])

	return pkt, nil
}

// StatusPacket is a decoded reply.
type StatusPacket struct {
	ID     uint8
	Error  DeviceError
	Params []byte
}

// Encode serialises the status packet, which is how a servo would send it.
func (p *StatusPacket) Encode() ([]byte, error) {
	total := len(p.Params) + MinStatusLen
	if total > MaxPacketLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketTooLong, total)
	}

	pkt := make([]byte, total)
	pkt[pktHeader0] = headerByte
	pkt[pktHeader1] = headerByte
	pkt[pktID] = p.ID
	pkt[pktLength] = byte(len(p.Params) + 2)
	pkt[pktError] = byte(p.Error)
	copy(pkt[pktParam0:], p.Params)
	pkt[total-1] = Checksum(pkt[pktID : total-1])

	return pkt, nil
}

// DecodeStatus parses one complete status packet.
func DecodeStatus(raw []byte) (*StatusPacket, error) {
	if len(raw) < MinStatusLen {
		return nil, fmt.Errorf("%w: %d bytes is shorter than %d", ErrMalformed, len(raw), MinStatusLen)
	}
	if raw[pktHeader0] != headerByte || raw[pktHeader1] != headerByte {
		return nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	if want := int(raw[pktLength]) + 4; want != len(raw) {
		return nil, fmt.Errorf("%w: length field says %d bytes, got %d", ErrMalformed, want, len(raw))
	}
	last := len(raw) - 1
	if sum := Checksum(raw[pktID:last]); sum != raw[last] {
		return nil, fmt.Errorf("%w: want 0x%02X, got 0x%02X", ErrChecksum, sum, raw[last])
	}

	params := make([]byte, last-pktParam0)
	copy(params, raw[pktParam0:last])

	return &StatusPacket{
		ID:     raw[pktID],
		Error:  DeviceError(raw[pktError]),
		Params: params,
	}, nil
}

// validHeader reports whether a packet starting with FF FF could be a status
// packet. b must hold at least MinStatusLen-1 bytes.
func validHeader(b []byte) bool {
	return b[pktID] <= MaxValidID &&
		b[pktLength] >= 2 && b[pktLength] <= MaxPacketLen &&
		b[pktError] <= 0x7F
}

// syncIndex returns the offset of the first FF FF pair in b, or len(b)-1
// when there is none.
func syncIndex(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == headerByte && b[i+1] == headerByte {
			return i
		}
	}

	return len(b) - 1
}
