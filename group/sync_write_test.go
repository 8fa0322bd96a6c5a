package group

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-sts/protocol"
)

func TestSyncWrite_AddParam(t *testing.T) {
	g := NewSyncWrite(&recordingWriter{}, addrGoalPosition, 2)

	tests := []struct {
		name string
		id   uint8
		data []byte
		want bool
	}{
		{name: "first", id: 3, data: []byte{1, 2}, want: true},
		{name: "duplicate", id: 3, data: []byte{3, 4}, want: false},
		{name: "short payload", id: 1, data: []byte{9}, want: true},
		{name: "oversize payload", id: 2, data: []byte{1, 2, 3}, want: false},
		{name: "broadcast id", id: protocol.BroadcastID, data: []byte{1, 2}, want: false},
		{name: "max id", id: protocol.MaxID, data: []byte{1, 2}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.AddParam(tt.id, tt.data))
		})
	}

	assert.Equal(t, []uint8{1, 3, protocol.MaxID}, g.IDs())
	assert.Equal(t, uint8(addrGoalPosition), g.StartAddress())
	assert.Equal(t, uint8(2), g.DataLength())
}

func TestSyncWrite_TxPacketOrderAndPadding(t *testing.T) {
	w := &recordingWriter{}
	g := NewSyncWrite(w, addrGoalPosition, 2)

	require.True(t, g.AddParam(3, []byte{0x30, 0x00}))
	require.True(t, g.AddParam(1, []byte{0x10}))
	require.True(t, g.AddParam(2, []byte{0x20, 0x02}))

	require.Equal(t, protocol.CommSuccess, g.TxPacket())
	require.Len(t, w.calls, 1)
	assert.Equal(t, []byte{
		addrGoalPosition, 2,
		1, 0x10, 0x00,
		2, 0x20, 0x02,
		3, 0x30, 0x00,
	}, w.calls[0])
}

func TestSyncWrite_RejectedAddLeavesSessionUnchanged(t *testing.T) {
	w := &recordingWriter{}
	g := NewSyncWrite(w, addrGoalPosition, 2)
	require.True(t, g.AddParam(1, []byte{1, 1}))
	require.Equal(t, protocol.CommSuccess, g.TxPacket())

	assert.False(t, g.AddParam(1, []byte{2, 2}))
	assert.False(t, g.AddParam(2, []byte{2, 2, 2}))
	assert.False(t, g.ChangeParam(1, []byte{2, 2, 2}))
	assert.False(t, g.ChangeParam(9, []byte{2, 2}))

	require.Equal(t, protocol.CommSuccess, g.TxPacket())
	require.Len(t, w.calls, 2)
	assert.Equal(t, w.calls[0], w.calls[1])
	assert.Equal(t, 1, g.Len())
}

func TestSyncWrite_ChangeAndRemove(t *testing.T) {
	w := &recordingWriter{}
	g := NewSyncWrite(w, addrGoalPosition, 2)
	require.True(t, g.AddParam(1, []byte{1, 1}))
	require.True(t, g.AddParam(2, []byte{2, 2}))

	require.True(t, g.ChangeParam(2, []byte{7, 7}))
	g.RemoveParam(1)
	g.RemoveParam(42)

	require.Equal(t, protocol.CommSuccess, g.TxPacket())
	assert.Equal(t, []byte{addrGoalPosition, 2, 2, 7, 7}, w.calls[0])

	g.ClearParam()
	assert.Zero(t, g.Len())
	assert.Equal(t, protocol.CommNotAvailable, g.TxPacket())
	assert.Len(t, w.calls, 1)
}

func TestSyncWrite_CallerBufferIsCopied(t *testing.T) {
	w := &recordingWriter{}
	g := NewSyncWrite(w, addrGoalPosition, 2)

	buf := []byte{1, 2}
	require.True(t, g.AddParam(1, buf))
	buf[0] = 0xEE

	require.Equal(t, protocol.CommSuccess, g.TxPacket())
	assert.Equal(t, []byte{addrGoalPosition, 2, 1, 1, 2}, w.calls[0])
}

func TestSyncWrite_OnBus(t *testing.T) {
	h, bus := newTestHandler(t)
	s1 := bus.AddServo(1, 777)
	s2 := bus.AddServo(2, 777)

	order := h.ByteOrder()
	g := NewSyncWrite(h, addrGoalPosition, 2)
	require.True(t, g.AddParam(1, order.PutWord(1000)))
	require.True(t, g.AddParam(2, order.PutWord(3000)))
	require.True(t, g.AddParam(5, order.PutWord(2000)), "absent servos are not detected")

	require.Equal(t, protocol.CommSuccess, g.TxPacket())
	assert.Equal(t, uint16(1000), s1.Word(addrGoalPosition))
	assert.Equal(t, uint16(3000), s2.Word(addrGoalPosition))

	reqs := bus.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, protocol.BroadcastID, reqs[0].ID)
	assert.Len(t, reqs[0].Params, 2+3*3)
}
