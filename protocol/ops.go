package protocol

// Ping checks that servo id answers and returns its model number.
func (h *Handler) Ping(id uint8) (uint16, CommResult, DeviceError) {
	if id >= BroadcastID {
		return 0, CommNotAvailable, 0
	}

	_, res, devErr := h.TxRxPacket(id, InstPing, nil)
	if res != CommSuccess {
		return 0, res, devErr
	}

	return h.Read2ByteTxRx(id, regModelNumber)
}

// Action triggers the writes buffered with RegWriteTxRx. Use BroadcastID to
// trigger every servo at once.
func (h *Handler) Action(id uint8) CommResult {
	_, res, _ := h.TxRxPacket(id, InstAction, nil)

	return res
}

// RegWriteTxOnly buffers a register write that takes effect on Action.
func (h *Handler) RegWriteTxOnly(id uint8, addr uint8, data []byte) CommResult {
	return h.TxPacket(id, InstRegWrite, withAddress(addr, data))
}

// RegWriteTxRx buffers a register write and waits for the acknowledgement.
func (h *Handler) RegWriteTxRx(id uint8, addr uint8, data []byte) (CommResult, DeviceError) {
	_, res, devErr := h.TxRxPacket(id, InstRegWrite, withAddress(addr, data))

	return res, devErr
}

// ReadTxRx reads length bytes starting at addr.
func (h *Handler) ReadTxRx(id uint8, addr uint8, length uint8) ([]byte, CommResult, DeviceError) {
	if id >= BroadcastID {
		return nil, CommNotAvailable, 0
	}

	rx, res, devErr := h.TxRxPacket(id, InstRead, []byte{addr, length})
	if res != CommSuccess {
		return nil, res, devErr
	}
	if len(rx) < MinStatusLen+int(length) {
		h.logger.Warn("protocol: short read reply", "id", id, "addr", addr, "want", length, "packet", rx)
		return nil, CommRxCorrupt, devErr
	}

	data := make([]byte, length)
	copy(data, rx[pktParam0:pktParam0+int(length)])

	return data, CommSuccess, devErr
}

// Read1ByteTxRx reads the one byte register at addr.
func (h *Handler) Read1ByteTxRx(id uint8, addr uint8) (uint8, CommResult, DeviceError) {
	data, res, devErr := h.ReadTxRx(id, addr, 1)
	if res != CommSuccess {
		return 0, res, devErr
	}

	return data[0], res, devErr
}

// Read2ByteTxRx reads the two byte register at addr in the handler byte order.
func (h *Handler) Read2ByteTxRx(id uint8, addr uint8) (uint16, CommResult, DeviceError) {
	data, res, devErr := h.ReadTxRx(id, addr, 2)
	if res != CommSuccess {
		return 0, res, devErr
	}

	return h.order.Word(data), res, devErr
}

// Read4ByteTxRx reads the four byte register at addr in the handler byte order.
func (h *Handler) Read4ByteTxRx(id uint8, addr uint8) (uint32, CommResult, DeviceError) {
	data, res, devErr := h.ReadTxRx(id, addr, 4)
	if res != CommSuccess {
		return 0, res, devErr
	}

	return h.order.DWord(data), res, devErr
}

// WriteTxOnly writes data starting at addr without waiting for a reply.
func (h *Handler) WriteTxOnly(id uint8, addr uint8, data []byte) CommResult {
	return h.TxPacket(id, InstWrite, withAddress(addr, data))
}

// WriteTxRx writes data starting at addr and waits for the acknowledgement.
// Writes to BroadcastID return without a reply.
func (h *Handler) WriteTxRx(id uint8, addr uint8, data []byte) (CommResult, DeviceError) {
	_, res, devErr := h.TxRxPacket(id, InstWrite, withAddress(addr, data))

	return res, devErr
}

// Write1ByteTxOnly writes one byte at addr without waiting for a reply.
func (h *Handler) Write1ByteTxOnly(id uint8, addr uint8, v uint8) CommResult {
	return h.WriteTxOnly(id, addr, []byte{v})
}

// Write1ByteTxRx writes one byte at addr and waits for the acknowledgement.
func (h *Handler) Write1ByteTxRx(id uint8, addr uint8, v uint8) (CommResult, DeviceError) {
	return h.WriteTxRx(id, addr, []byte{v})
}

// Write2ByteTxOnly writes a word at addr without waiting for a reply.
func (h *Handler) Write2ByteTxOnly(id uint8, addr uint8, v uint16) CommResult {
	return h.WriteTxOnly(id, addr, h.order.PutWord(v))
}

// Write2ByteTxRx writes a word at addr and waits for the acknowledgement.
func (h *Handler) Write2ByteTxRx(id uint8, addr uint8, v uint16) (CommResult, DeviceError) {
	return h.WriteTxRx(id, addr, h.order.PutWord(v))
}

// Write4ByteTxOnly writes a double word at addr without waiting for a reply.
func (h *Handler) Write4ByteTxOnly(id uint8, addr uint8, v uint32) CommResult {
	return h.WriteTxOnly(id, addr, h.order.PutDWord(v))
}

// Write4ByteTxRx writes a double word at addr and waits for the acknowledgement.
func (h *Handler) Write4ByteTxRx(id uint8, addr uint8, v uint32) (CommResult, DeviceError) {
	return h.WriteTxRx(id, addr, h.order.PutDWord(v))
}

func withAddress(addr uint8, data []byte) []byte {
	params := make([]byte, 0, len(data)+1)
	params = append(params, addr)

	return append(params, data...)
}
