package group

import (
	"slices"

	"github.com/arloliu/go-sts/protocol"
)

// SyncReader is the packet engine primitive used by SyncRead.
type SyncReader interface {
	SyncReadTxRx(start uint8, dataLen uint8, ids []byte) ([]byte, protocol.CommResult)
	ByteOrder() protocol.ByteOrder
}

var _ SyncReader = (*protocol.Handler)(nil)

type fragment struct {
	err  protocol.DeviceError
	data []byte
}

// SyncRead reads the same register window of several servos with one
// broadcast request. Each servo answers with its own status packet.
type SyncRead struct {
	h       SyncReader
	start   uint8
	dataLen uint8

	ids        []uint8 // ascending
	frags      map[uint8]fragment
	lastResult bool
}

// NewSyncRead creates a session reading dataLen bytes at start.
func NewSyncRead(h SyncReader, start uint8, dataLen uint8) *SyncRead {
	return &SyncRead{
		h:       h,
		start:   start,
		dataLen: dataLen,
		frags:   make(map[uint8]fragment),
	}
}

// StartAddress returns the first register of the window.
func (g *SyncRead) StartAddress() uint8 { return g.start }

// DataLength returns the per-servo window length.
func (g *SyncRead) DataLength() uint8 { return g.dataLen }

// Len returns the number of servos in the session.
func (g *SyncRead) Len() int { return len(g.ids) }

// IDs returns the servo ids in wire order.
func (g *SyncRead) IDs() []uint8 { return slices.Clone(g.ids) }

// AddParam adds a servo. It returns false for duplicates and non-unicast ids.
func (g *SyncRead) AddParam(id uint8) bool {
	if id > protocol.MaxID {
		return false
	}
	pos, found := slices.BinarySearch(g.ids, id)
	if found {
		return false
	}
	g.ids = slices.Insert(g.ids, pos, id)

	return true
}

// RemoveParam drops a servo and any data received for it.
func (g *SyncRead) RemoveParam(id uint8) {
	pos, found := slices.BinarySearch(g.ids, id)
	if !found {
		return
	}
	g.ids = slices.Delete(g.ids, pos, pos+1)
	delete(g.frags, id)
}

// ClearParam empties the session.
func (g *SyncRead) ClearParam() {
	g.ids = g.ids[:0]
	clear(g.frags)
	g.lastResult = false
}

// LastResult reports whether the last TxRxPacket received a valid fragment
// from every servo.
func (g *SyncRead) LastResult() bool { return g.lastResult }

// TxRxPacket runs the batch read. Fragments that arrived intact are stored
// even when other servos did not answer; check IsAvailable per servo.
func (g *SyncRead) TxRxPacket() protocol.CommResult {
	g.lastResult = false
	clear(g.frags)
	if len(g.ids) == 0 {
		return protocol.CommNotAvailable
	}

	raw, res := g.h.SyncReadTxRx(g.start, g.dataLen, g.ids)

	complete := true
	for _, id := range g.ids {
		frag, ok := g.locate(raw, id)
		if !ok {
			complete = false
			continue
		}
		g.frags[id] = frag
	}

	if res != protocol.CommSuccess {
		return res
	}
	if !complete {
		return protocol.CommRxCorrupt
	}
	g.lastResult = true

	return protocol.CommSuccess
}

// locate finds the status packet of id in raw and verifies its checksum.
func (g *SyncRead) locate(raw []byte, id uint8) (fragment, bool) {
	n := int(g.dataLen)
	pktLen := n + protocol.MinStatusLen

	for i := 0; i+pktLen <= len(raw); i++ {
		if raw[i] != 0xFF || raw[i+1] != 0xFF || raw[i+2] != id {
			continue
		}
		if int(raw[i+3]) != n+2 {
			continue
		}

		body := raw[i+2 : i+pktLen-1]
		if protocol.Checksum(body) != raw[i+pktLen-1] {
			return fragment{}, false
		}

		return fragment{
			err:  protocol.DeviceError(raw[i+4]),
			data: slices.Clone(raw[i+5 : i+5+n]),
		}, true
	}

	return fragment{}, false
}

// IsAvailable reports whether length bytes at addr were received for id, and
// returns the servo's error byte.
func (g *SyncRead) IsAvailable(id uint8, addr uint8, length uint8) (bool, protocol.DeviceError) {
	frag, ok := g.frags[id]
	if !ok {
		return false, 0
	}
	if addr < g.start || int(addr)+int(length) > int(g.start)+int(g.dataLen) {
		return false, 0
	}
	if len(frag.data) < int(length) {
		return false, 0
	}

	return true, frag.err
}

// GetData returns a 1, 2 or 4 byte value at addr received for id, or 0 when
// the value is not available.
func (g *SyncRead) GetData(id uint8, addr uint8, length uint8) uint32 {
	if ok, _ := g.IsAvailable(id, addr, length); !ok {
		return 0
	}

	frag := g.frags[id]
	off := int(addr - g.start)
	order := g.h.ByteOrder()

	switch length {
	case 1:
		return uint32(frag.data[off])
	case 2:
		return uint32(order.Word(frag.data[off:]))
	case 4:
		return order.DWord(frag.data[off:])
	default:
		return 0
	}
}
