// Package hsio implements the high-speed-output timer unit: four SWT
// compare channels that fire against TIMER1.
package hsio

import "github.com/retrodiag/ice196/statecodec"

// NumChannels is the number of SWT compare channels.
const NumChannels = 4

// HSIO holds the HSI mode register and the four SWT channels. An SWT
// channel is "armed" while its command latch is non-zero; firing clears
// the latch, so firing is idempotent.
type HSIO struct {
	mode uint8

	swtTime    [NumChannels]uint16
	swtCommand [NumChannels]uint8
}

// Mode returns the current HSI_MODE value.
func (h *HSIO) Mode() uint8 { return h.mode }

// SetMode writes HSI_MODE.
func (h *HSIO) SetMode(v uint8) { h.mode = v }

// Time returns the compare value for channel which.
func (h *HSIO) Time(which int) uint16 { return h.swtTime[which] }

// SetTime writes the compare value for channel which.
func (h *HSIO) SetTime(which int, v uint16) { h.swtTime[which] = v }

// SetCommand arms (or disarms, with 0) channel which.
func (h *HSIO) SetCommand(which int, cmd uint8) { h.swtCommand[which] = cmd }

// Command returns the current command latch for channel which.
func (h *HSIO) Command(which int) uint8 { return h.swtCommand[which] }

// CheckSWT reports whether channel which fires on the TIMER1 transition
// from oldValue to newValue, handling 16-bit wrap-around. A firing
// channel's command latch is cleared so a subsequent call is a no-op
// (idempotent).
func (h *HSIO) CheckSWT(which int, oldValue, newValue uint16) bool {
	if h.swtCommand[which] == 0 {
		return false
	}
	t := h.swtTime[which]

	var crossed bool
	if newValue > oldValue {
		crossed = t > oldValue && t <= newValue
	} else if newValue < oldValue {
		// the counter wrapped between oldValue and newValue
		crossed = t > oldValue || t <= newValue
	}
	if crossed {
		h.swtCommand[which] = 0
		return true
	}
	return false
}

// Poll checks all four channels for the given TIMER1 transition and
// returns a bitmask of the channels that fired.
func (h *HSIO) Poll(oldValue, newValue uint16) uint8 {
	var fired uint8
	for i := 0; i < NumChannels; i++ {
		if h.CheckSWT(i, oldValue, newValue) {
			fired |= 1 << uint(i)
		}
	}
	return fired
}

// RWState saves or restores the HSIO unit's state.
func (h *HSIO) RWState(c *statecodec.Codec) error {
	if err := c.RWUint8(&h.mode); err != nil {
		return err
	}
	for i := 0; i < NumChannels; i++ {
		if err := c.RWUint16(&h.swtTime[i]); err != nil {
			return err
		}
		if err := c.RWUint8(&h.swtCommand[i]); err != nil {
			return err
		}
	}
	return nil
}
