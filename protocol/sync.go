package protocol

// SyncWriteTxOnly broadcasts one SYNC_WRITE packet. params is the
// concatenation of (id, data...) groups, each data block dataLen bytes.
// Servos do not acknowledge sync writes.
func (h *Handler) SyncWriteTxOnly(start uint8, dataLen uint8, params []byte) CommResult {
	_, res, _ := h.TxRxPacket(BroadcastID, InstSyncWrite, withHeader(start, dataLen, params))

	return res
}

// SyncReadTxRx broadcasts one SYNC_READ packet for ids and collects the raw
// replies. Every addressed servo answers with a status packet of dataLen
// parameters, in id order; the concatenated bytes are returned unparsed.
//
// The result is CommSuccess only when (6+dataLen)*len(ids) bytes arrived
// before the deadline.
func (h *Handler) SyncReadTxRx(start uint8, dataLen uint8, ids []byte) ([]byte, CommResult) {
	if len(ids) == 0 {
		return nil, CommNotAvailable
	}

	pkt, err := EncodeInstruction(BroadcastID, InstSyncRead, withHeader(start, dataLen, ids))
	if err != nil {
		h.logger.Warn("protocol: rejected sync read", "ids", len(ids), "error", err)
		return nil, CommTxError
	}

	lease, ok := h.acquire()
	if !ok {
		return nil, CommPortBusy
	}
	defer lease.Release()

	if res := h.transmit(pkt); res != CommSuccess {
		return nil, res
	}

	waitLen := (MinStatusLen + int(dataLen)) * len(ids)
	h.tr.BeginTimeout(waitLen)

	raw := make([]byte, 0, waitLen)
	for len(raw) < waitLen {
		chunk := h.tr.Read(waitLen - len(raw))
		raw = append(raw, chunk...)
		if len(raw) >= waitLen {
			break
		}
		if h.tr.IsTimedOut() {
			if len(raw) == 0 {
				h.metrics.incRxTimeoutCount()
				return raw, CommRxTimeout
			}
			h.metrics.incRxCorruptCount()
			h.logger.Warn("protocol: sync read truncated", "received", len(raw), "want", waitLen)

			return raw, CommRxCorrupt
		}
		if len(chunk) == 0 {
			h.tr.Idle()
		}
	}
	h.logger.Debug("protocol: sync read rx", "bytes", len(raw))

	return raw, CommSuccess
}

func withHeader(start uint8, dataLen uint8, body []byte) []byte {
	params := make([]byte, 0, len(body)+2)
	params = append(params, start, dataLen)

	return append(params, body...)
}
