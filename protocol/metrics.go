package protocol

import (
	"sync/atomic"
)

// HandlerMetrics contains atomic counters for a packet handler.
type HandlerMetrics struct {
	// TxPacketCount indicates the number of instruction packets written.
	TxPacketCount atomic.Uint64
	// RxPacketCount indicates the number of valid status packets received.
	RxPacketCount atomic.Uint64
	// RxTimeoutCount indicates the number of exchanges with no reply.
	RxTimeoutCount atomic.Uint64
	// RxCorruptCount indicates the number of truncated or bad-checksum replies.
	RxCorruptCount atomic.Uint64
	// DiscardedByteCount indicates the number of bytes dropped while resynchronising.
	DiscardedByteCount atomic.Uint64
	// PortBusyCount indicates the number of exchanges refused because the bus was held.
	PortBusyCount atomic.Uint64
}

func (m *HandlerMetrics) incTxPacketCount() {
	m.TxPacketCount.Add(1)
}

func (m *HandlerMetrics) incRxPacketCount() {
	m.RxPacketCount.Add(1)
}

func (m *HandlerMetrics) incRxTimeoutCount() {
	m.RxTimeoutCount.Add(1)
}

func (m *HandlerMetrics) incRxCorruptCount() {
	m.RxCorruptCount.Add(1)
}

func (m *HandlerMetrics) addDiscardedByteCount(n int) {
	m.DiscardedByteCount.Add(uint64(n))
}

func (m *HandlerMetrics) incPortBusyCount() {
	m.PortBusyCount.Add(1)
}
