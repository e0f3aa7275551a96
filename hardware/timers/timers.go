// Package timers implements TIMER1 and TIMER2. TIMER1 is a pure
// function of the CPU's cycle counter; TIMER2 is a free-running counter
// incremented once per instruction by a signed factor.
package timers

import "github.com/retrodiag/ice196/statecodec"

// Timers holds the state needed to derive TIMER1/TIMER2 readings.
type Timers struct {
	// Timer1Offset is added to cycles/8 to produce TIMER1.
	Timer1Offset uint16

	// timer2 is stored at 8x the external value, to permit per-state-time
	// increments without losing precision.
	timer2 uint32

	// Timer2IncFactor is the per-instruction increment applied to timer2,
	// one of {1, -1, 8, -8}.
	Timer2IncFactor int32
}

// ReadTimer1 returns the current TIMER1 value given the CPU's absolute
// state-time counter.
func (t *Timers) ReadTimer1(cycles uint64) uint16 {
	return uint16(cycles/8) + t.Timer1Offset
}

// WriteTimer1Lo writes the low byte of TIMER1, adjusting Timer1Offset so
// that a subsequent read returns the newly composed 16-bit value.
func (t *Timers) WriteTimer1Lo(cycles uint64, lo uint8) {
	cur := t.ReadTimer1(cycles)
	newVal := (cur &^ 0x00FF) | uint16(lo)
	t.Timer1Offset = newVal - uint16(cycles/8)
}

// WriteTimer1Hi writes the high byte of TIMER1.
func (t *Timers) WriteTimer1Hi(cycles uint64, hi uint8) {
	cur := t.ReadTimer1(cycles)
	newVal := (cur & 0x00FF) | uint16(hi)<<8
	t.Timer1Offset = newVal - uint16(cycles/8)
}

// Tick advances TIMER2 by Timer2IncFactor for every state time in
// passedCycles, called once per instruction with that instruction's cycle
// cost.
func (t *Timers) Tick(passedCycles uint64) {
	t.timer2 = uint32(int64(t.timer2) + int64(t.Timer2IncFactor)*int64(passedCycles))
}

// ReadTimer2 returns the external (non-scaled) TIMER2 value.
func (t *Timers) ReadTimer2() uint16 {
	return uint16(t.timer2 / 8)
}

// WriteTimer2Lo writes the low byte of the external TIMER2 value.
func (t *Timers) WriteTimer2Lo(lo uint8) {
	cur := t.ReadTimer2()
	newVal := (cur &^ 0x00FF) | uint16(lo)
	t.timer2 = uint32(newVal) * 8
}

// WriteTimer2Hi writes the high byte of the external TIMER2 value.
func (t *Timers) WriteTimer2Hi(hi uint8) {
	cur := t.ReadTimer2()
	newVal := (cur & 0x00FF) | uint16(hi)<<8
	t.timer2 = uint32(newVal) * 8
}

// RWState saves or restores timer state.
func (t *Timers) RWState(c *statecodec.Codec) error {
	if err := c.RWUint16(&t.Timer1Offset); err != nil {
		return err
	}
	if err := c.RWUint32(&t.timer2); err != nil {
		return err
	}
	var f uint32
	if c.Writing {
		f = uint32(t.Timer2IncFactor)
	}
	if err := c.RWUint32(&f); err != nil {
		return err
	}
	if !c.Writing {
		t.Timer2IncFactor = int32(f)
	}
	return nil
}
