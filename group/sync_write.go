package group

import (
	"slices"

	"github.com/arloliu/go-sts/protocol"
)

// SyncWriter is the packet engine primitive used by SyncWrite.
type SyncWriter interface {
	SyncWriteTxOnly(start uint8, dataLen uint8, params []byte) protocol.CommResult
}

var _ SyncWriter = (*protocol.Handler)(nil)

// SyncWrite writes the same register window of several servos with one
// broadcast packet. Servos do not acknowledge the write.
type SyncWrite struct {
	h       SyncWriter
	start   uint8
	dataLen uint8

	ids   []uint8 // ascending
	data  map[uint8][]byte
	param []byte
	dirty bool
}

// NewSyncWrite creates a session writing dataLen bytes at start.
func NewSyncWrite(h SyncWriter, start uint8, dataLen uint8) *SyncWrite {
	return &SyncWrite{
		h:       h,
		start:   start,
		dataLen: dataLen,
		data:    make(map[uint8][]byte),
	}
}

// StartAddress returns the first register of the window.
func (g *SyncWrite) StartAddress() uint8 { return g.start }

// DataLength returns the per-servo payload length.
func (g *SyncWrite) DataLength() uint8 { return g.dataLen }

// Len returns the number of servos in the session.
func (g *SyncWrite) Len() int { return len(g.ids) }

// IDs returns the servo ids in wire order.
func (g *SyncWrite) IDs() []uint8 { return slices.Clone(g.ids) }

// AddParam adds a servo with its payload. It returns false, leaving the
// session unchanged, when id is already present, id is not a unicast address,
// or data is longer than the window.
func (g *SyncWrite) AddParam(id uint8, data []byte) bool {
	if id > protocol.MaxID || len(data) > int(g.dataLen) {
		return false
	}
	pos, found := slices.BinarySearch(g.ids, id)
	if found {
		return false
	}

	g.ids = slices.Insert(g.ids, pos, id)
	g.data[id] = slices.Clone(data)
	g.dirty = true

	return true
}

// RemoveParam drops a servo. Unknown ids are ignored.
func (g *SyncWrite) RemoveParam(id uint8) {
	pos, found := slices.BinarySearch(g.ids, id)
	if !found {
		return
	}

	g.ids = slices.Delete(g.ids, pos, pos+1)
	delete(g.data, id)
	g.dirty = true
}

// ChangeParam replaces the payload of a servo already in the session.
func (g *SyncWrite) ChangeParam(id uint8, data []byte) bool {
	if _, ok := g.data[id]; !ok || len(data) > int(g.dataLen) {
		return false
	}

	g.data[id] = slices.Clone(data)
	g.dirty = true

	return true
}

// ClearParam empties the session.
func (g *SyncWrite) ClearParam() {
	g.ids = g.ids[:0]
	clear(g.data)
	g.param = nil
	g.dirty = false
}

// TxPacket sends the batch. An empty session returns CommNotAvailable.
func (g *SyncWrite) TxPacket() protocol.CommResult {
	if len(g.ids) == 0 {
		return protocol.CommNotAvailable
	}
	if g.dirty || g.param == nil {
		g.makeParam()
	}

	return g.h.SyncWriteTxOnly(g.start, g.dataLen, g.param)
}

// makeParam serialises (id, data...) groups, zero padding short payloads.
func (g *SyncWrite) makeParam() {
	stride := int(g.dataLen) + 1
	param := make([]byte, len(g.ids)*stride)
	for i, id := range g.ids {
		off := i * stride
		param[off] = id
		copy(param[off+1:off+stride], g.data[id])
	}

	g.param = param
	g.dirty = false
}
