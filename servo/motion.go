package servo

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/arloliu/go-sts/group"
	"github.com/arloliu/go-sts/protocol"
)

// MoveOptions is the motion profile of a position move. Zero Speed and
// Acceleration select DefaultSpeed and DefaultAcceleration.
type MoveOptions struct {
	Speed        int   // steps/s, clamped to MaxSpeed
	Acceleration uint8 // units of 100 steps/s²
	// Wait blocks MoveTo until the move should have finished.
	Wait bool
}

func (o MoveOptions) withDefaults() MoveOptions {
	if o.Speed == 0 {
		o.Speed = DefaultSpeed
	}
	if o.Acceleration == 0 {
		o.Acceleration = DefaultAcceleration
	}
	o.Speed = min(o.Speed, MaxSpeed)

	return o
}

// EstimateMoveDuration returns how long a move of distance steps takes with
// the given cruise speed (steps/s) and acceleration register value (units of
// 100 steps/s²).
//
// The profile is trapezoidal: accelerate to speed, cruise, and the distance
// covered while accelerating is acc_distance = a·t²/2 with t = speed/a. When
// the move is too short to reach cruise speed the time is sqrt(2·distance/a).
func EstimateMoveDuration(distance int, speed int, acc uint8) time.Duration {
	if distance < 0 {
		distance = -distance
	}
	if distance == 0 || speed <= 0 {
		return 0
	}

	d := float64(distance)
	v := float64(speed)
	if acc == 0 {
		return seconds(d / v)
	}

	a := float64(acc) * 100
	tAcc := v / a
	dAcc := 0.5 * a * tAcc * tAcc
	if dAcc >= d {
		return seconds(math.Sqrt(2 * d / a))
	}

	return seconds(tAcc + (d-dAcc)/v)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// MoveTo moves servo id to pos in position mode.
//
// With opts.Wait set, MoveTo returns after the estimated travel time. The wait
// does not hold the controller lock and ends early when ctx is done. When the
// present position cannot be read the move is still commanded but MoveTo does
// not wait.
func (c *Controller) MoveTo(ctx context.Context, id uint8, pos int, opts MoveOptions) error {
	if pos < 0 || pos > MaxPosition {
		return ErrInvalidPosition
	}
	if opts.Speed < 0 {
		return ErrInvalidSpeed
	}
	opts = opts.withDefaults()

	c.mu.Lock()
	wait, err := c.moveTo(id, pos, opts)
	c.mu.Unlock()
	if err != nil || !opts.Wait {
		return err
	}

	c.logger.Debug("servo: waiting for move", "id", id, "goal", pos, "wait", wait)

	return c.sleep(ctx, wait)
}

// moveTo commands the move and returns the estimated travel time, zero when
// the start position is unknown.
func (c *Controller) moveTo(id uint8, pos int, opts MoveOptions) (time.Duration, error) {
	if err := c.setMode(id, ModePosition); err != nil {
		return 0, err
	}
	if err := c.write1("set acceleration", id, RegAcceleration, opts.Acceleration); err != nil {
		return 0, err
	}
	if err := c.setSpeed(id, opts.Speed); err != nil {
		return 0, err
	}

	cur, curErr := c.readPosition(id)
	if curErr != nil {
		c.logger.Warn("servo: present position unavailable", "id", id, "error", curErr)
	}

	if err := c.writePosition(id, pos); err != nil {
		return 0, err
	}
	if curErr != nil {
		return 0, nil
	}

	return EstimateMoveDuration(pos-cur, opts.Speed, opts.Acceleration), nil
}

// Rotate switches servo id to speed mode and spins it at speed steps/s;
// negative speeds turn the other way. The magnitude is clamped to MaxSpeed.
func (c *Controller) Rotate(id uint8, speed int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rotate(id, speed)
}

func (c *Controller) rotate(id uint8, speed int) error {
	if err := c.setMode(id, ModeSpeed); err != nil {
		return err
	}
	v := protocol.EncodeSignMagnitude(speed, speedSignBit, MaxSpeed)

	return c.write2("rotate", id, RegGoalSpeed, v)
}

// Move is one entry of a SyncMove batch.
type Move struct {
	ID           uint8
	Position     int
	Speed        int   // zero selects DefaultSpeed
	Acceleration uint8 // zero selects DefaultAcceleration
}

// acceleration, goal position, goal time, goal speed
const (
	moveWindowStart = RegAcceleration
	moveWindowLen   = RegGoalSpeed + 2 - RegAcceleration
)

// SyncMove starts several position moves with one broadcast packet. Servos
// must already be in position mode. The write is not acknowledged.
func (c *Controller) SyncMove(moves []Move) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	order := c.h.ByteOrder()
	g := group.NewSyncWrite(c.h, moveWindowStart, moveWindowLen)
	for _, m := range moves {
		if m.Position < 0 || m.Position > MaxPosition {
			return fmt.Errorf("servo %d: %w", m.ID, ErrInvalidPosition)
		}
		opts := MoveOptions{Speed: m.Speed, Acceleration: m.Acceleration}.withDefaults()

		data := make([]byte, 0, moveWindowLen)
		data = append(data, opts.Acceleration)
		data = append(data, order.PutWord(uint16(m.Position))...)
		data = append(data, 0, 0) // goal time unused
		data = append(data, order.PutWord(uint16(opts.Speed))...)
		if !g.AddParam(m.ID, data) {
			return fmt.Errorf("servo %d: sync move: %w", m.ID, ErrInvalidID)
		}
	}

	if res := g.TxPacket(); res != protocol.CommSuccess {
		return fmt.Errorf("servo: sync move: %w", res.Err())
	}

	return nil
}

// SyncReadPositions reads the present position of several servos with one
// exchange. Positions of servos that answered are returned even when the
// error is non-nil.
func (c *Controller) SyncReadPositions(ids []uint8) (map[uint8]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := group.NewSyncRead(c.h, RegPresentPosition, 2)
	for _, id := range ids {
		if !g.AddParam(id) {
			return nil, fmt.Errorf("servo %d: sync read: %w", id, ErrInvalidID)
		}
	}

	res := g.TxRxPacket()
	out := make(map[uint8]int, len(ids))
	for _, id := range g.IDs() {
		ok, devErr := g.IsAvailable(id, RegPresentPosition, 2)
		if !ok || devErr != 0 {
			continue
		}
		out[id] = int(g.GetData(id, RegPresentPosition, 2))
	}

	if res != protocol.CommSuccess {
		return out, fmt.Errorf("servo: sync read positions: %w", res.Err())
	}
	if len(out) != g.Len() {
		return out, fmt.Errorf("servo: sync read positions: %d of %d valid: %w", len(out), g.Len(), ErrPartialRead)
	}

	return out, nil
}
