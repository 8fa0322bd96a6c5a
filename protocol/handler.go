package protocol

import (
	"github.com/arloliu/go-sts/logger"
	"github.com/arloliu/go-sts/transport"
)

// Handler runs request/response exchanges over a Transport.
//
// Every exchange takes the transport's bus guard for its full duration, so a
// Handler may be shared by goroutines; a concurrent exchange fails with
// CommPortBusy instead of waiting.
type Handler struct {
	tr      *transport.Transport
	order   ByteOrder
	logger  logger.Logger
	metrics HandlerMetrics
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithByteOrder sets the register byte order. The default is LittleEndian.
func WithByteOrder(o ByteOrder) HandlerOption {
	return func(h *Handler) { h.order = o }
}

// WithLogger sets the handler logger. The transport's logger is used by default.
func WithLogger(l logger.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler creates a packet handler on tr.
func NewHandler(tr *transport.Transport, opts ...HandlerOption) *Handler {
	h := &Handler{
		tr:     tr,
		order:  LittleEndian,
		logger: tr.Config().GetLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Transport returns the underlying transport.
func (h *Handler) Transport() *transport.Transport { return h.tr }

// ByteOrder returns the register byte order.
func (h *Handler) ByteOrder() ByteOrder { return h.order }

// Metrics returns the handler counters.
func (h *Handler) Metrics() *HandlerMetrics { return &h.metrics }

// TxPacket sends an instruction packet without waiting for a reply.
func (h *Handler) TxPacket(id uint8, instr Instruction, params []byte) CommResult {
	pkt, err := EncodeInstruction(id, instr, params)
	if err != nil {
		h.logger.Warn("protocol: rejected instruction", "id", id, "instruction", instr, "error", err)
		return CommTxError
	}

	lease, ok := h.acquire()
	if !ok {
		return CommPortBusy
	}
	defer lease.Release()

	return h.transmit(pkt)
}

// TxRxPacket sends an instruction packet and waits for the reply of the
// addressed servo. Broadcast requests return as soon as they are written.
//
// The returned packet is the complete status packet including header and
// checksum.
func (h *Handler) TxRxPacket(id uint8, instr Instruction, params []byte) ([]byte, CommResult, DeviceError) {
	pkt, err := EncodeInstruction(id, instr, params)
	if err != nil {
		h.logger.Warn("protocol: rejected instruction", "id", id, "instruction", instr, "error", err)
		return nil, CommTxError, 0
	}

	lease, ok := h.acquire()
	if !ok {
		return nil, CommPortBusy, 0
	}
	defer lease.Release()

	if res := h.transmit(pkt); res != CommSuccess {
		return nil, res, 0
	}
	if id == BroadcastID {
		return nil, CommSuccess, 0
	}

	if instr == InstRead && len(params) > 1 {
		h.tr.BeginTimeout(int(params[1]) + MinStatusLen)
	} else {
		h.tr.BeginTimeout(MinStatusLen)
	}

	for {
		rx, res := h.rxPacket()
		if res != CommSuccess {
			h.logger.Debug("protocol: exchange failed", "id", id, "instruction", instr, "result", int(res))
			return rx, res, 0
		}
		if rx[pktID] == id {
			return rx, CommSuccess, DeviceError(rx[pktError])
		}
		h.logger.Debug("protocol: reply from another servo", "want", id, "got", rx[pktID])
	}
}

func (h *Handler) acquire() (*transport.Lease, bool) {
	lease, ok := h.tr.TryAcquire()
	if !ok {
		h.metrics.incPortBusyCount()
		return nil, false
	}

	return lease, true
}

// transmit writes pkt. The caller holds the bus guard.
func (h *Handler) transmit(pkt []byte) CommResult {
	if len(pkt) > MaxPacketLen {
		return CommTxError
	}

	h.tr.Flush()
	if n := h.tr.Write(pkt); n != len(pkt) {
		h.logger.Warn("protocol: short write", "written", n, "total", len(pkt))
		return CommTxFail
	}
	h.metrics.incTxPacketCount()
	h.logger.Debug("protocol: tx", "packet", pkt)

	return CommSuccess
}

// rxPacket reads one status packet, skipping noise until a plausible header
// is found. The caller holds the bus guard and has started the deadline.
func (h *Handler) rxPacket() ([]byte, CommResult) {
	var buf []byte
	waitLen := MinStatusLen

	for {
		got := 0
		if need := waitLen - len(buf); need > 0 {
			chunk := h.tr.Read(need)
			got = len(chunk)
			buf = append(buf, chunk...)
		}

		if len(buf) >= waitLen {
			idx := syncIndex(buf)
			if idx > 0 {
				h.metrics.addDiscardedByteCount(idx)
				buf = buf[idx:]
				continue
			}

			if !validHeader(buf) {
				h.metrics.addDiscardedByteCount(1)
				buf = buf[1:]
				continue
			}

			if want := int(buf[pktLength]) + 4; want != waitLen {
				waitLen = want
				continue
			}

			pkt := make([]byte, waitLen)
			copy(pkt, buf[:waitLen])
			if Checksum(pkt[pktID:waitLen-1]) != pkt[waitLen-1] {
				h.metrics.incRxCorruptCount()
				h.logger.Warn("protocol: status checksum mismatch", "packet", pkt)
				return pkt, CommRxCorrupt
			}
			h.metrics.incRxPacketCount()
			h.logger.Debug("protocol: rx", "packet", pkt)

			return pkt, CommSuccess
		}

		if h.tr.IsTimedOut() {
			if len(buf) == 0 {
				h.metrics.incRxTimeoutCount()
				return nil, CommRxTimeout
			}
			h.metrics.incRxCorruptCount()
			h.logger.Warn("protocol: truncated status packet", "received", len(buf), "want", waitLen)

			return buf, CommRxCorrupt
		}
		if got == 0 {
			h.tr.Idle()
		}
	}
}
