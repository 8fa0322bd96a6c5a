package group

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-sts/internal/simulator"
	"github.com/arloliu/go-sts/logger"
	"github.com/arloliu/go-sts/protocol"
	"github.com/arloliu/go-sts/transport"
)

const (
	addrGoalPosition    = 42
	addrPresentPosition = 56
)

func newTestHandler(t *testing.T) (*protocol.Handler, *simulator.Bus) {
	t.Helper()

	bus := simulator.NewBus()
	cfg, err := transport.NewConfig("sim",
		transport.WithPort(bus),
		transport.WithLatency(20*time.Millisecond),
		transport.WithPollInterval(50*time.Microsecond),
		transport.WithLogger(logger.Discard()),
	)
	require.NoError(t, err)

	tr := transport.New(cfg)
	require.NoError(t, tr.Open())
	t.Cleanup(func() { _ = tr.Close() })

	return protocol.NewHandler(tr), bus
}

// recordingWriter captures sync write payloads.
type recordingWriter struct {
	calls [][]byte
}

func (w *recordingWriter) SyncWriteTxOnly(start uint8, dataLen uint8, params []byte) protocol.CommResult {
	w.calls = append(w.calls, append([]byte{start, dataLen}, params...))
	return protocol.CommSuccess
}
