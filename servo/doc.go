// Package servo is the high level controller for STS serial bus servos.
//
// A Controller wraps a protocol.Handler and exposes register level
// accessors (position, speed, load, voltage, temperature, current, status),
// motion commands with optional blocking until the move should have
// finished, EEPROM maintenance (id and baud rate changes) and the tare
// procedure that finds the mechanical end stops of a servo and centres its
// position range between them.
//
// Every Controller method holds the controller lock for its full duration, so
// multi-packet operations such as MoveTo never interleave with other callers.
// Methods that can block for a long time take a context.Context.
package servo
