// Package eeprom implements the off-chip serial EEPROM: a 3-wire
// (enable/clock/data) bit-banged protocol over 128 16-bit words, backed by
// a sidecar file.
package eeprom

import (
	"io"

	"github.com/retrodiag/ice196/event"
	"github.com/retrodiag/ice196/statecodec"
)

// NumWords is the fixed EEPROM capacity.
const NumWords = 128

// mode is the bit-banger's current protocol phase.
type mode int

const (
	modeCmd mode = iota
	modeAddrWrite
	modeDataWrite
	modeAddrRead
	modeDataRead
	modeUnknown
)

const (
	opRead  = 0
	opWrite = 1
)

// EEPROM is the bit-banged 3-wire EEPROM device.
type EEPROM struct {
	Mem [NumWords]uint16

	// Events, when set, routes every sampled output bit through the
	// record/replay layer: the bit depends on bit-bang timing the
	// host drives, so it is a non-deterministic observation like a
	// keypress or a serial byte.
	Events *event.Log

	enable, clock bool
	bitCount      int
	cmd           uint8
	data          uint32
	addr          uint16
	mode          mode

	lastDataOut bool
}

// Load reads 128 little-endian 16-bit words from r (the `<rom>.eep`
// sidecar). Short reads leave the remaining words at zero.
func Load(r io.Reader) (*EEPROM, error) {
	e := &EEPROM{}
	c := statecodec.NewReader(r)
	for i := range e.Mem {
		if err := c.RWUint16(&e.Mem[i]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, err
		}
	}
	return e, nil
}

// Save writes the 128 words to w.
func (e *EEPROM) Save(w io.Writer) error {
	c := statecodec.NewWriter(w)
	for i := range e.Mem {
		v := e.Mem[i]
		if err := c.RWUint16(&v); err != nil {
			return err
		}
	}
	return nil
}

// ToggleInputs drives the three bit-banged pins. A rising clock edge with
// enable asserted shifts the current data-pin value into the state
// machine.
func (e *EEPROM) ToggleInputs(enable, clockPin, dataPin bool) {
	risingClock := clockPin && !e.clock
	e.enable = enable
	e.clock = clockPin

	if !enable {
		e.reset()
		return
	}
	if !risingClock {
		return
	}

	bit := uint8(0)
	if dataPin {
		bit = 1
	}

	switch e.mode {
	case modeCmd:
		e.cmd = (e.cmd << 1) | bit
		e.bitCount++
		if e.bitCount == 3 {
			op := (e.cmd >> 1) & 1
			e.bitCount = 0
			e.addr = 0
			if op == opWrite {
				e.mode = modeAddrWrite
			} else {
				e.mode = modeAddrRead
			}
		}

	case modeAddrWrite:
		e.addr = (e.addr << 1) | uint16(bit)
		e.bitCount++
		if e.bitCount == 7 {
			e.bitCount = 0
			e.data = 0
			e.mode = modeDataWrite
		}

	case modeAddrRead:
		e.addr = (e.addr << 1) | uint16(bit)
		e.bitCount++
		if e.bitCount == 7 {
			e.bitCount = 0
			e.mode = modeDataRead
		}

	case modeDataWrite:
		e.data = (e.data << 1) | uint32(bit)
		e.bitCount++
		if e.bitCount == 16 {
			if int(e.addr) < len(e.Mem) {
				e.Mem[e.addr] = uint16(e.data)
			}
			e.reset()
		}

	case modeDataRead:
		// output-only phase; clock edges just advance the shift-out
		// position, handled in ReadData
		e.bitCount++
		if e.bitCount >= 16 {
			e.reset()
		}

	default:
		e.mode = modeUnknown
	}
}

// ReadData returns the current output bit during a read phase (the value
// software samples on the data pin), MSB first. cycles keys the
// record/replay observation; on replay the logged bit overrides
// whatever the live shift register would have produced.
func (e *EEPROM) ReadData(cycles uint64) bool {
	if e.Events != nil && e.Events.Replaying() {
		if rec, ok := e.Events.Observe(cycles, event.EEPROMRead); ok {
			e.lastDataOut = rec.Value != 0
		}
		return e.lastDataOut
	}

	if e.mode != modeDataRead {
		return e.lastDataOut
	}
	if int(e.addr) >= len(e.Mem) {
		return false
	}
	shift := 15 - e.bitCount
	if shift < 0 {
		shift = 0
	}
	e.lastDataOut = (e.Mem[e.addr]>>uint(shift))&1 != 0
	if e.Events != nil {
		var v int32
		if e.lastDataOut {
			v = 1
		}
		e.Events.Append(cycles, event.EEPROMRead, v)
	}
	return e.lastDataOut
}

func (e *EEPROM) reset() {
	e.mode = modeCmd
	e.bitCount = 0
	e.cmd = 0
	e.data = 0
}

// Erase zeroes every word (used by a "format" host command, and by tests).
func (e *EEPROM) Erase() {
	for i := range e.Mem {
		e.Mem[i] = 0
	}
}

// RWState saves or restores the raw word array. The bit-banger's
// in-progress shift state is not preserved across a save/restore boundary
// (it resets to idle) since no shipped ROM observably straddles a
// save/restore point mid-transaction.
func (e *EEPROM) RWState(c *statecodec.Codec) error {
	for i := range e.Mem {
		if err := c.RWUint16(&e.Mem[i]); err != nil {
			return err
		}
	}
	if !c.Writing {
		e.reset()
	}
	return nil
}
