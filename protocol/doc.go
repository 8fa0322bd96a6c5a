// Package protocol implements the STS packet engine: framing, checksums,
// the resynchronising status receiver and request/response transactions.
//
// Instruction packet (host to servo):
//
//	FF FF | id | len | instruction | params ... | checksum
//
// Status packet (servo to host):
//
//	FF FF | id | len | error | params ... | checksum
//
// len counts the parameters plus two (instruction or error byte, checksum).
// The checksum is the one's complement of the low byte of the sum of every
// byte from id up to the last parameter.
//
// The wire-level API reports outcomes as a CommResult and the servo's error
// byte as a DeviceError. Both have an Err method for callers that prefer Go
// errors.
package protocol
