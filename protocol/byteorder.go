package protocol

// ByteOrder selects how multi-byte register values are laid out.
type ByteOrder uint8

// Supported byte orders.
const (
	LittleEndian ByteOrder = 0 // STS series
	BigEndian    ByteOrder = 1 // SCS series
)

// String returns the byte order name.
func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big-endian"
	}

	return "little-endian"
}

// MakeWord combines two consecutive register bytes a, b into a word.
func (o ByteOrder) MakeWord(a, b byte) uint16 {
	if o == BigEndian {
		return uint16(b) | uint16(a)<<8
	}

	return uint16(a) | uint16(b)<<8
}

// MakeDWord combines the low and high words of a 32-bit value.
func (ByteOrder) MakeDWord(lo, hi uint16) uint32 {
	return uint32(lo) | uint32(hi)<<16
}

// LoByte returns the byte of w stored first on the wire.
func (o ByteOrder) LoByte(w uint16) byte {
	if o == BigEndian {
		return byte(w >> 8)
	}

	return byte(w)
}

// HiByte returns the byte of w stored second on the wire.
func (o ByteOrder) HiByte(w uint16) byte {
	if o == BigEndian {
		return byte(w)
	}

	return byte(w >> 8)
}

// LoWord returns the low 16 bits of d.
func LoWord(d uint32) uint16 { return uint16(d) }

// HiWord returns the high 16 bits of d.
func HiWord(d uint32) uint16 { return uint16(d >> 16) }

// PutWord encodes w as two register bytes.
func (o ByteOrder) PutWord(w uint16) []byte {
	return []byte{o.LoByte(w), o.HiByte(w)}
}

// PutDWord encodes d as four register bytes.
func (o ByteOrder) PutDWord(d uint32) []byte {
	lo, hi := LoWord(d), HiWord(d)

	return []byte{o.LoByte(lo), o.HiByte(lo), o.LoByte(hi), o.HiByte(hi)}
}

// Word decodes the first two bytes of b, which must hold at least two bytes.
func (o ByteOrder) Word(b []byte) uint16 { return o.MakeWord(b[0], b[1]) }

// DWord decodes the first four bytes of b.
func (o ByteOrder) DWord(b []byte) uint32 {
	return o.MakeDWord(o.MakeWord(b[0], b[1]), o.MakeWord(b[2], b[3]))
}

// DecodeSignMagnitude interprets bit as the sign of v; the remaining bits are
// the magnitude.
func DecodeSignMagnitude(v uint16, bit uint) int {
	sign := uint16(1) << bit
	if v&sign != 0 {
		return -int(v &^ sign)
	}

	return int(v)
}

// EncodeSignMagnitude stores |v|, clamped to maxMagnitude, with the sign in bit.
func EncodeSignMagnitude(v int, bit uint, maxMagnitude int) uint16 {
	mag := v
	if mag < 0 {
		mag = -mag
	}
	mag = min(mag, maxMagnitude)

	out := uint16(mag)
	if v < 0 {
		out |= 1 << bit
	}

	return out
}
