package machine

import (
	"io"

	"github.com/retrodiag/ice196/coreerr"
	"github.com/retrodiag/ice196/event"
	"github.com/retrodiag/ice196/hardware/rom"
	"github.com/retrodiag/ice196/statecodec"
)

// SaveState serialises the full machine: CPU registers, every
// peripheral's own state, the memory subsystem (bank selectors, SRAM,
// mapped RAM), the ROM/extended-ROM/recording names, the replay flag and
// log cursor, and finally the EEPROM contents.
func (m *Machine) SaveState(w io.Writer) error {
	cc := statecodec.NewWriter(w)
	return m.rwState(cc)
}

// ROMResolver looks up a previously loaded ROM image by the name recorded
// in a state file. It returns (nil, nil) if name is empty (no image
// attached at save time).
type ROMResolver func(name string) (*rom.Image, error)

// LoadState restores a machine previously written by SaveState. resolve
// is consulted to reattach the ROM and extended-ROM images named in the
// file; a name that resolve cannot satisfy is a fatal state-load error
// (coreerr.CategoryStateLoad).
func (m *Machine) LoadState(r io.Reader, resolve ROMResolver) error {
	cc := statecodec.NewReader(r)
	if err := m.rwState(cc); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return coreerr.Errorf(coreerr.StateTruncated)
		}
		return coreerr.Errorf(coreerr.StateFileError, err)
	}

	if m.romName != "" {
		img, err := resolve(m.romName)
		if err != nil || img == nil {
			return coreerr.Errorf(coreerr.StateROMMismatch, m.romName)
		}
		m.Mem.ROM = img
	}
	if m.extROMName != "" {
		img, err := resolve(m.extROMName)
		if err != nil || img == nil {
			return coreerr.Errorf(coreerr.StateROMMismatch, m.extROMName)
		}
		m.Mem.ExtROM = img
	}
	return m.Mem.RefreshPointers()
}

// rwState drives the single read/write pass shared by SaveState and
// LoadState, so the two can never drift out of sync with each other
// (a save immediately followed by a load is a fixed point).
func (m *Machine) rwState(cc *statecodec.Codec) error {
	if err := m.CPU.RWState(cc); err != nil {
		return err
	}
	if err := m.CPU.Timers.RWState(cc); err != nil {
		return err
	}
	if err := m.CPU.HSIO.RWState(cc); err != nil {
		return err
	}
	if err := m.CPU.Keypad.RWState(cc); err != nil {
		return err
	}
	if err := m.CPU.LCD.RWState(cc); err != nil {
		return err
	}
	if err := m.Serial.RWState(cc); err != nil {
		return err
	}
	if err := m.Mem.RWState(cc); err != nil {
		return err
	}

	if err := cc.RWString(&m.romName); err != nil {
		return err
	}
	if err := cc.RWString(&m.extROMName); err != nil {
		return err
	}
	if err := cc.RWString(&m.recordingName); err != nil {
		return err
	}

	replaying := m.Replaying()
	if err := cc.RWBool(&replaying); err != nil {
		return err
	}

	var cursor uint32
	if m.Events != nil {
		cursor = uint32(m.Events.Cursor())
	}
	if err := cc.RWUint32(&cursor); err != nil {
		return err
	}
	if !cc.Writing && m.Events != nil {
		m.Events.SetCursor(int(cursor))
	}
	if !cc.Writing && m.Events == nil && m.recordingName != "" {
		// a log position was recorded but no log is attached at load time;
		// start fresh rather than silently discarding the recording's name
		m.attachEvents(event.NewRecordingLog())
	}

	return m.CPU.EEPROM.RWState(cc)
}
