package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by CommResult.Err and the packet codec.
var (
	ErrPortBusy      = errors.New("protocol: port is in use")
	ErrTxFail        = errors.New("protocol: failed transmit instruction packet")
	ErrRxFail        = errors.New("protocol: failed get status packet from device")
	ErrTxError       = errors.New("protocol: incorrect instruction packet")
	ErrRxWaiting     = errors.New("protocol: now receiving status packet")
	ErrRxTimeout     = errors.New("protocol: there is no status packet")
	ErrRxCorrupt     = errors.New("protocol: incorrect status packet")
	ErrNotAvailable  = errors.New("protocol: not available")
	ErrPacketTooLong = errors.New("protocol: packet exceeds maximum length")
	ErrInvalidID     = errors.New("protocol: invalid servo id")
	ErrMalformed     = errors.New("protocol: malformed packet")
	ErrChecksum      = errors.New("protocol: checksum mismatch")
)

// CommResult is the outcome of a bus exchange.
type CommResult int

// Exchange outcomes.
const (
	CommSuccess      CommResult = 0
	CommPortBusy     CommResult = -1
	CommTxFail       CommResult = -2
	CommRxFail       CommResult = -3
	CommTxError      CommResult = -4
	CommRxWaiting    CommResult = -5
	CommRxTimeout    CommResult = -6
	CommRxCorrupt    CommResult = -7
	CommNotAvailable CommResult = -9
)

// Err returns the sentinel error for r, or nil for CommSuccess.
func (r CommResult) Err() error {
	switch r {
	case CommSuccess:
		return nil
	case CommPortBusy:
		return ErrPortBusy
	case CommTxFail:
		return ErrTxFail
	case CommRxFail:
		return ErrRxFail
	case CommTxError:
		return ErrTxError
	case CommRxWaiting:
		return ErrRxWaiting
	case CommRxTimeout:
		return ErrRxTimeout
	case CommRxCorrupt:
		return ErrRxCorrupt
	case CommNotAvailable:
		return ErrNotAvailable
	default:
		return fmt.Errorf("protocol: unknown result %d", int(r))
	}
}

// String returns a short description of r.
func (r CommResult) String() string {
	if r == CommSuccess {
		return "[TxRxResult] Communication success!"
	}
	err := r.Err()
	msg := strings.TrimPrefix(err.Error(), "protocol: ")

	return "[TxRxResult] " + strings.ToUpper(msg[:1]) + msg[1:] + "!"
}

// DeviceError is the error byte of a status packet.
type DeviceError uint8

// Error byte flags.
const (
	ErrBitVoltage  DeviceError = 0x01
	ErrBitAngle    DeviceError = 0x02
	ErrBitOverheat DeviceError = 0x04
	ErrBitOverEle  DeviceError = 0x08
	ErrBitOverload DeviceError = 0x20
)

var deviceErrorNames = []struct {
	bit  DeviceError
	text string
}{
	{ErrBitVoltage, "input voltage error"},
	{ErrBitAngle, "angle sensor error"},
	{ErrBitOverheat, "overheat error"},
	{ErrBitOverEle, "over-current error"},
	{ErrBitOverload, "overload error"},
}

// Has reports whether every bit of flag is set.
func (e DeviceError) Has(flag DeviceError) bool { return e&flag == flag }

// String lists the set flags, separated by commas.
func (e DeviceError) String() string {
	if e == 0 {
		return ""
	}

	parts := make([]string, 0, len(deviceErrorNames))
	for _, n := range deviceErrorNames {
		if e.Has(n.bit) {
			parts = append(parts, n.text)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("unknown error 0x%02X", uint8(e))
	}

	return "[ServoStatus] " + strings.Join(parts, ", ")
}

// Err returns a *DeviceFaultError for a non-zero error byte, nil otherwise.
func (e DeviceError) Err() error {
	if e == 0 {
		return nil
	}

	return &DeviceFaultError{Flags: e}
}

// DeviceFaultError reports a status packet with a non-zero error byte.
type DeviceFaultError struct {
	Flags DeviceError
}

// Error implements error.
func (e *DeviceFaultError) Error() string {
	return fmt.Sprintf("protocol: device fault 0x%02X: %s", uint8(e.Flags), e.Flags.String())
}
