package transport

import "fmt"

// BaudCode is the value stored in a servo's baud rate register.
type BaudCode uint8

const (
	Baud1M BaudCode = iota
	Baud500K
	Baud250K
	Baud128K
	Baud115200
	Baud76800
	Baud57600
	Baud38400
)

// MaxBaudCode is the highest valid BaudCode.
const MaxBaudCode = Baud38400

var baudRates = [...]int{1000000, 500000, 250000, 128000, 115200, 76800, 57600, 38400}

// Valid reports whether c names a supported rate.
func (c BaudCode) Valid() bool { return c <= MaxBaudCode }

// Rate returns the bit rate of c, or 0 when c is invalid.
func (c BaudCode) Rate() int {
	if !c.Valid() {
		return 0
	}

	return baudRates[c]
}

func (c BaudCode) String() string {
	if !c.Valid() {
		return fmt.Sprintf("BaudCode(%d)", uint8(c))
	}

	return fmt.Sprintf("%d", baudRates[c])
}

// BaudCodeOf returns the code for a bit rate.
func BaudCodeOf(rate int) (BaudCode, bool) {
	for i, r := range baudRates {
		if r == rate {
			return BaudCode(i), true
		}
	}

	return 0, false
}

// SupportedBaudRates returns the supported bit rates ordered by code.
func SupportedBaudRates() []int {
	rates := make([]int, len(baudRates))
	copy(rates, baudRates[:])

	return rates
}
