package servo

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// TareState is a step of the tare procedure.
type TareState int

const (
	TareIdle TareState = iota
	TareZeroing
	TareRotatingToMin
	TareDetectingMin
	TareRotatingToMax
	TareDetectingMax
	TareApplyingCorrection
	TareCentered
	TareFailed
)

func (s TareState) String() string {
	switch s {
	case TareIdle:
		return "idle"
	case TareZeroing:
		return "zeroing"
	case TareRotatingToMin:
		return "rotating-to-min"
	case TareDetectingMin:
		return "detecting-min"
	case TareRotatingToMax:
		return "rotating-to-max"
	case TareDetectingMax:
		return "detecting-max"
	case TareApplyingCorrection:
		return "applying-correction"
	case TareCentered:
		return "centered"
	case TareFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TareOptions controls the timing of the tare procedure. Zero fields take
// the value from DefaultTareOptions.
type TareOptions struct {
	// SettleDelay is the pause after each command that starts a motion.
	SettleDelay time.Duration
	// PollInterval is the pause between moving-flag samples.
	PollInterval time.Duration
	// StopSamples is how many consecutive stopped samples mark an end stop.
	// Values below 5 are raised to 5.
	StopSamples int
	// Speed is the search speed in steps/s.
	Speed int
	// Acceleration is the search acceleration register value.
	Acceleration uint8
	// OnState, when set, is called on every state change.
	OnState func(id uint8, state TareState)
}

// DefaultTareOptions returns the standard tare timing.
func DefaultTareOptions() TareOptions {
	return TareOptions{
		SettleDelay:  500 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
		StopSamples:  5,
		Speed:        250,
		Acceleration: 100,
	}
}

// Calibration is the outcome of a successful tare.
type Calibration struct {
	ID uint8
	// RawMin and RawMax are the end stops measured before correction.
	RawMin int
	RawMax int
	// Correction is the offset written to the servo.
	Correction int
	// Min and Max are the corrected range; Min is always 0.
	Min int
	Max int
	At  time.Time
}

// Middle returns the corrected centre position.
func (c Calibration) Middle() int { return c.Max / 2 }

// TareRange computes half the travel between two end stops and the offset
// that maps min to position 0. The range wraps through 0 when min >= max.
func TareRange(minPos, maxPos int) (half int, correction int) {
	if minPos >= maxPos {
		half = (MaxPosition - minPos + maxPos) / 2
	} else {
		half = (maxPos - minPos) / 2
	}

	if minPos > MaxPosition/2 {
		correction = minPos - MaxPosition - 1
	} else {
		correction = minPos
	}

	return half, correction
}

// Tare finds the mechanical end stops of servo id by driving into each of
// them, writes a position offset so the lower stop reads 0, and moves the
// servo to the middle of its range.
//
// Any failed exchange aborts the procedure and leaves the servo in position
// mode with torque disabled.
func (c *Controller) Tare(ctx context.Context, id uint8) (Calibration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	run := &tareRun{c: c, ctx: ctx, id: id, opts: c.tareOptions()}
	cal, err := run.exec()
	if err != nil {
		run.enter(TareFailed)
		c.logger.Error("servo: tare failed", "id", id, "error", err)

		return Calibration{}, err
	}

	c.calibrations.Store(id, cal)
	c.logger.Info("servo: tare finished", "id", id, "min", cal.RawMin, "max", cal.RawMax, "correction", cal.Correction)

	return cal, nil
}

// Calibration returns the last successful tare of servo id.
func (c *Controller) Calibration(id uint8) (Calibration, bool) {
	return c.calibrations.Load(id)
}

// Calibrations returns every stored calibration.
func (c *Controller) Calibrations() map[uint8]Calibration {
	out := make(map[uint8]Calibration, c.calibrations.Size())
	c.calibrations.Range(func(id uint8, cal Calibration) bool {
		out[id] = cal
		return true
	})

	return out
}

func (c *Controller) tareOptions() TareOptions {
	opts := c.tare
	def := DefaultTareOptions()
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = def.SettleDelay
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.StopSamples < def.StopSamples {
		opts.StopSamples = def.StopSamples
	}
	if opts.Speed <= 0 {
		opts.Speed = def.Speed
	}
	if opts.Acceleration == 0 {
		opts.Acceleration = def.Acceleration
	}

	return opts
}

type tareRun struct {
	c    *Controller
	ctx  context.Context
	id   uint8
	opts TareOptions
}

func (r *tareRun) enter(s TareState) {
	r.c.logger.Debug("servo: tare state", "id", r.id, "state", s.String())
	if r.opts.OnState != nil {
		r.opts.OnState(r.id, s)
	}
}

func (r *tareRun) exec() (Calibration, error) {
	c, id := r.c, r.id

	r.enter(TareZeroing)
	if err := c.correctPosition(id, 0); err != nil {
		return Calibration{}, r.abort(err)
	}
	if err := c.sleep(r.ctx, r.opts.SettleDelay); err != nil {
		return Calibration{}, r.abort(err)
	}

	r.enter(TareRotatingToMin)
	minPos, err := r.findStop(-r.opts.Speed, TareDetectingMin)
	if err != nil {
		return Calibration{}, err
	}

	r.enter(TareRotatingToMax)
	maxPos, err := r.findStop(r.opts.Speed, TareDetectingMax)
	if err != nil {
		return Calibration{}, err
	}

	r.enter(TareApplyingCorrection)
	half, corr := TareRange(minPos, maxPos)
	if err := c.correctPosition(id, corr); err != nil {
		return Calibration{}, r.abort(err)
	}
	if err := c.sleep(r.ctx, r.opts.SettleDelay); err != nil {
		return Calibration{}, r.abort(err)
	}
	if _, err := c.moveTo(id, half, MoveOptions{}.withDefaults()); err != nil {
		return Calibration{}, r.abort(err)
	}

	r.enter(TareCentered)

	return Calibration{
		ID:         id,
		RawMin:     minPos,
		RawMax:     maxPos,
		Correction: corr,
		Min:        0,
		Max:        half * 2,
		At:         c.clock.Now(),
	}, nil
}

// findStop rotates at speed until the servo stalls and returns where it stopped.
func (r *tareRun) findStop(speed int, detecting TareState) (int, error) {
	c, id := r.c, r.id

	if err := c.write1("set acceleration", id, RegAcceleration, r.opts.Acceleration); err != nil {
		return 0, r.abort(err)
	}
	if err := c.rotate(id, speed); err != nil {
		return 0, r.abort(err)
	}
	if err := c.sleep(r.ctx, r.opts.SettleDelay); err != nil {
		return 0, r.abort(err)
	}

	r.enter(detecting)

	return r.blockPosition()
}

// blockPosition polls the moving flag until StopSamples consecutive samples
// report a stopped servo. Every stopped sample reads the position and parks
// the servo (position mode, torque off).
func (r *tareRun) blockPosition() (int, error) {
	c, id := r.c, r.id

	matches := 0
	for {
		moving, err := c.isMoving(id)
		if err != nil {
			return 0, r.abort(err)
		}

		if moving {
			matches = 0
		} else {
			pos, err := c.readPosition(id)
			if err != nil {
				return 0, r.abort(err)
			}
			if pos > MaxPosition {
				return 0, r.abort(fmt.Errorf("servo %d: tare: present position %d: %w", id, pos, ErrInvalidPosition))
			}
			if perr := r.park(); perr != nil {
				c.logger.Warn("servo: park after stop failed", "id", id, "error", perr)
			}

			matches++
			if matches >= r.opts.StopSamples {
				return pos, nil
			}
		}

		if err := c.sleep(r.ctx, r.opts.PollInterval); err != nil {
			return 0, r.abort(err)
		}
	}
}

func (r *tareRun) park() error {
	return multierr.Combine(
		r.c.setMode(r.id, ModePosition),
		r.c.stop(r.id),
	)
}

// abort parks the servo and returns cause combined with any cleanup failure.
func (r *tareRun) abort(cause error) error {
	return multierr.Append(cause, r.park())
}
