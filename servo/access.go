package servo

import (
	"context"

	"github.com/arloliu/go-sts/protocol"
)

// Ping checks that servo id answers with a non-zero model number and no
// error flags, and returns the model number.
func (c *Controller) Ping(id uint8) (uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ping(id)
}

func (c *Controller) ping(id uint8) (uint16, error) {
	model, res, devErr := c.h.Ping(id)
	if err := opError("ping", id, res, devErr); err != nil {
		return 0, err
	}
	if model == 0 {
		return 0, ErrNoModel
	}

	return model, nil
}

// List pings every unicast id and returns those that answered, ascending.
// A cancelled ctx stops the scan and returns the ids found so far.
func (c *Controller) List(ctx context.Context) ([]uint8, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	found := make([]uint8, 0, 8)
	for id := 0; id <= int(protocol.MaxID); id++ {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		if _, err := c.ping(uint8(id)); err == nil {
			found = append(found, uint8(id))
		}
	}
	c.logger.Debug("servo: bus scan finished", "found", found)

	return found, nil
}

// ReadPosition returns the present position register as read, normally in
// [0, MaxPosition].
func (c *Controller) ReadPosition(id uint8) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.readPosition(id)
}

func (c *Controller) readPosition(id uint8) (int, error) {
	v, err := c.read2("read position", id, RegPresentPosition)
	if err != nil {
		return 0, err
	}

	return int(v), nil
}

// ReadSpeed returns the present speed in steps/s; negative values are
// counter-clockwise.
func (c *Controller) ReadSpeed(id uint8) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.read2("read speed", id, RegPresentSpeed)
	if err != nil {
		return 0, err
	}

	return protocol.DecodeSignMagnitude(v, speedSignBit), nil
}

// ReadLoad returns the present load in percent of maximum torque.
func (c *Controller) ReadLoad(id uint8) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.read2("read load", id, RegPresentLoad)
	if err != nil {
		return 0, err
	}

	return loadPercent(v), nil
}

// ReadAcceleration returns the acceleration register (units of 100 steps/s²).
func (c *Controller) ReadAcceleration(id uint8) (uint8, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.read1("read acceleration", id, RegAcceleration)
}

// ReadMode returns the operating mode.
func (c *Controller) ReadMode(id uint8) (Mode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.read1("read mode", id, RegMode)

	return Mode(v), err
}

// ReadCorrection returns the position offset in steps.
func (c *Controller) ReadCorrection(id uint8) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.read2("read correction", id, RegOffset)
	if err != nil {
		return 0, err
	}

	return decodeCorrection(v), nil
}

// IsMoving reports whether the servo is moving.
func (c *Controller) IsMoving(id uint8) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.isMoving(id)
}

func (c *Controller) isMoving(id uint8) (bool, error) {
	v, err := c.read1("read moving", id, RegMoving)

	return v != 0, err
}

// SetAcceleration writes the acceleration register.
func (c *Controller) SetAcceleration(id uint8, acc uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.write1("set acceleration", id, RegAcceleration, acc)
}

// SetSpeed writes the goal speed used by position moves, clamped to MaxSpeed.
func (c *Controller) SetSpeed(id uint8, speed int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setSpeed(id, speed)
}

func (c *Controller) setSpeed(id uint8, speed int) error {
	v := uint16(min(max(speed, 0), MaxSpeed))

	return c.write2("set speed", id, RegGoalSpeed, v)
}

// SetMode writes the operating mode.
func (c *Controller) SetMode(id uint8, mode Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setMode(id, mode)
}

func (c *Controller) setMode(id uint8, mode Mode) error {
	return c.write1("set mode", id, RegMode, uint8(mode))
}

// Stop disables torque.
func (c *Controller) Stop(id uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stop(id)
}

func (c *Controller) stop(id uint8) error {
	return c.write1("stop", id, RegTorqueEnable, TorqueOff)
}

// Start enables torque.
func (c *Controller) Start(id uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.write1("start", id, RegTorqueEnable, TorqueOn)
}

// DefineMiddle makes the present position the middle of the range (2048).
func (c *Controller) DefineMiddle(id uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.write1("define middle", id, RegTorqueEnable, TorqueCalibrate)
}

// CorrectPosition writes the position offset. The magnitude is clamped to
// MaxCorrection.
func (c *Controller) CorrectPosition(id uint8, correction int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.correctPosition(id, correction)
}

func (c *Controller) correctPosition(id uint8, correction int) error {
	v := protocol.EncodeSignMagnitude(correction, correctionSignBit, MaxCorrection)

	return c.write2("correct position", id, RegOffset, v)
}

// WritePosition writes the goal position without changing mode or profile.
func (c *Controller) WritePosition(id uint8, pos int) error {
	if pos < 0 || pos > MaxPosition {
		return ErrInvalidPosition
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.writePosition(id, pos)
}

func (c *Controller) writePosition(id uint8, pos int) error {
	return c.write2("write position", id, RegGoalPosition, uint16(pos))
}

func decodeCorrection(v uint16) int {
	return protocol.DecodeSignMagnitude(v&0x0FFF, correctionSignBit)
}

func loadPercent(v uint16) float64 {
	return float64(protocol.DecodeSignMagnitude(v&0x07FF, loadSignBit)) * 0.1
}
