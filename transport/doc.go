// Package transport implements the byte-level side of an STS servo bus.
//
// A Transport owns one serial port and provides non-blocking reads, writes,
// buffer flushing, a per-exchange receive deadline sized from the baud rate,
// and the bus guard that keeps request/response exchanges from interleaving.
//
// The bus is half-duplex and multi-drop: every exchange is one request followed
// by at most one reply. Before transmitting, a caller takes the guard with
// TryAcquire and releases the returned Lease once the reply has been consumed
// (or the exchange failed). The guard never blocks; a held guard means the bus
// is busy and the caller must fail the exchange.
//
// The I/O and timeout methods of Transport are intended to be used by the
// lease holder only. TryAcquire, IsOpen and Close are safe for concurrent use.
package transport
