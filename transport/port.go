package transport

import (
	"time"

	"go.bug.st/serial"
)

// Port is the subset of a serial port a Transport needs.
//
// serial.Port from go.bug.st/serial satisfies it; tests substitute a
// simulated bus.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInputBuffer() error
	ResetOutputBuffer() error
	SetMode(mode *serial.Mode) error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// OpenFunc opens the named port with the given framing.
type OpenFunc func(name string, mode *serial.Mode) (Port, error)

// OpenSerial opens a real serial device.
func OpenSerial(name string, mode *serial.Mode) (Port, error) {
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// serialMode returns 8N1 framing at the given rate.
func serialMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}
