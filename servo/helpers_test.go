package servo

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-sts/internal/simulator"
	"github.com/arloliu/go-sts/logger"
	"github.com/arloliu/go-sts/transport"
)

const testModel = 777

func fastTareOptions() TareOptions {
	return TareOptions{
		SettleDelay:  time.Millisecond,
		PollInterval: time.Millisecond,
		StopSamples:  5,
		Speed:        250,
		Acceleration: 100,
	}
}

func newTestController(t *testing.T, opts ...Option) (*Controller, *simulator.Bus) {
	t.Helper()

	bus := simulator.NewBus()
	cfg, err := transport.NewConfig("sim",
		transport.WithPort(bus),
		transport.WithLatency(10*time.Millisecond),
		transport.WithPollInterval(50*time.Microsecond),
		transport.WithLogger(logger.Discard()),
	)
	require.NoError(t, err)

	base := []Option{WithTareOptions(fastTareOptions())}
	c, err := Open(cfg, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, bus
}

// endStops makes a simulated servo behave like a joint with mechanical end
// stops: a rotate command drives it towards the stop in the commanded
// direction, the moving flag stays set for travelReads samples, then the
// servo rests at the stop.
type endStops struct {
	mu          sync.Mutex
	min, max    uint16
	travelReads int
	remaining   int
	target      uint16
}

func attachEndStops(s *simulator.Servo, minPos, maxPos uint16, travelReads int) *endStops {
	e := &endStops{min: minPos, max: maxPos, travelReads: travelReads}

	s.OnWrite = func(s *simulator.Servo, addr uint8, data []byte) {
		if addr != RegGoalSpeed || s.Byte(RegMode) != uint8(ModeSpeed) || len(data) < 2 {
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()

		if data[1]&0x80 != 0 {
			e.target = e.min
		} else {
			e.target = e.max
		}
		e.remaining = e.travelReads
		s.Set(RegMoving, 1)
	}

	s.OnRead = func(s *simulator.Servo, addr uint8, _ uint8) {
		if addr != RegMoving {
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()

		if e.remaining > 0 {
			e.remaining--
			return
		}
		s.Set(RegMoving, 0)
		s.SetWord(RegPresentPosition, e.target)
	}

	return e
}

// stopSample is one reading of the moving flag and the present position.
type stopSample struct {
	moving bool
	pos    uint16
}

// scriptedStops replays a fixed sequence of samples after each rotate
// command, one per read of the moving flag. The last sample repeats once the
// script runs out. Negative rotations play toMin, positive ones toMax.
type scriptedStops struct {
	mu           sync.Mutex
	toMin, toMax []stopSample
	script       []stopSample
}

func attachScriptedStops(s *simulator.Servo, toMin, toMax []stopSample) *scriptedStops {
	e := &scriptedStops{toMin: toMin, toMax: toMax}

	s.OnWrite = func(s *simulator.Servo, addr uint8, data []byte) {
		if addr != RegGoalSpeed || s.Byte(RegMode) != uint8(ModeSpeed) || len(data) < 2 {
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()

		if data[1]&0x80 != 0 {
			e.script = e.toMin
		} else {
			e.script = e.toMax
		}
	}

	s.OnRead = func(s *simulator.Servo, addr uint8, _ uint8) {
		if addr != RegMoving {
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()

		if len(e.script) == 0 {
			return
		}
		sample := e.script[0]
		if len(e.script) > 1 {
			e.script = e.script[1:]
		}

		var moving byte
		if sample.moving {
			moving = 1
		}
		s.Set(RegMoving, moving)
		s.SetWord(RegPresentPosition, sample.pos)
	}

	return e
}
