package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-sts/internal/simulator"
	"github.com/arloliu/go-sts/logger"
	"github.com/arloliu/go-sts/transport"
)

const testModel = 0x0101

// newTestHandler returns a handler wired to a simulated bus with a short
// latency allowance so timeouts resolve quickly.
func newTestHandler(t *testing.T, opts ...HandlerOption) (*Handler, *simulator.Bus) {
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

	return NewHandler(tr, opts...), bus
}

func mustStatus(t *testing.T, id uint8, devErr DeviceError, params ...byte) []byte {
	t.Helper()

	p := &StatusPacket{ID: id, Error: devErr, Params: params}
	raw, err := p.Encode()
	require.NoError(t, err)

	return raw
}
