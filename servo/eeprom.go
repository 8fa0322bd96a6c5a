package servo

import (
	"fmt"

	"github.com/arloliu/go-sts/protocol"
	"github.com/arloliu/go-sts/transport"
)

// LockEEPROM write-protects the EEPROM registers of servo id.
func (c *Controller) LockEEPROM(id uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setLock(id, true)
}

// UnlockEEPROM allows writes to the EEPROM registers of servo id.
func (c *Controller) UnlockEEPROM(id uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setLock(id, false)
}

func (c *Controller) setLock(id uint8, locked bool) error {
	var v uint8
	op := "unlock eeprom"
	if locked {
		v, op = 1, "lock eeprom"
	}

	return opError(op, id, c.h.Write1ByteTxOnly(id, RegLock, v), 0)
}

// ChangeID assigns newID to servo id. The servo stops answering to id.
func (c *Controller) ChangeID(id uint8, newID uint8) error {
	if newID > protocol.MaxID {
		return ErrInvalidID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeEEPROM("change id", id, RegID, newID); err != nil {
		return err
	}
	if cal, ok := c.calibrations.LoadAndDelete(id); ok {
		cal.ID = newID
		c.calibrations.Store(newID, cal)
	}
	c.logger.Info("servo: id changed", "id", id, "new_id", newID)

	return nil
}

// ChangeBaudRate sets the bit rate of servo id. The servo switches rate
// immediately; reopen the transport at code.Rate() to keep talking to it.
func (c *Controller) ChangeBaudRate(id uint8, code transport.BaudCode) error {
	if !code.Valid() {
		return ErrInvalidBaudCode
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeEEPROM("change baud rate", id, RegBaudRate, uint8(code)); err != nil {
		return err
	}
	c.logger.Info("servo: baud rate changed", "id", id, "baud", code.Rate())

	return nil
}

// writeEEPROM pings the servo, unlocks the EEPROM, writes one register
// without waiting for a reply and locks the EEPROM again. The lock is sent to
// the new id when the id register itself was written.
func (c *Controller) writeEEPROM(op string, id uint8, reg uint8, v uint8) error {
	if _, err := c.ping(id); err != nil {
		return fmt.Errorf("servo %d: %s: servo not found: %w", id, op, err)
	}
	if err := c.setLock(id, false); err != nil {
		return err
	}
	if err := opError(op, id, c.h.Write1ByteTxOnly(id, reg, v), 0); err != nil {
		return err
	}

	target := id
	if reg == RegID {
		target = v
	}
	if err := c.setLock(target, true); err != nil {
		c.logger.Warn("servo: eeprom relock failed", "id", target, "error", err)
	}

	return nil
}
