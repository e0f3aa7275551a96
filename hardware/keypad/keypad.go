// Package keypad implements the 4-row by 7-column scan-key matrix
// (the AddrKeypadRow/AddrKeypadData latches).
package keypad

import "github.com/retrodiag/ice196/statecodec"

// NumRows and NumCols describe the physical matrix.
const (
	NumRows = 4
	NumCols = 7
)

// Keypad holds the per-row key state. A bit is 0 while its key is held
// down and 1 while released (active-low, matching the host wiring).
type Keypad struct {
	rows [NumRows]uint8
	row  uint8
}

// New creates a keypad with every key released.
func New() *Keypad {
	k := &Keypad{}
	for i := range k.rows {
		k.rows[i] = 0x7F
	}
	return k
}

// SetRowSelect writes AddrKeypadRow: selects which row GetLine reads.
func (k *Keypad) SetRowSelect(v uint8) {
	k.row = v % NumRows
}

// RowSelect returns the currently selected row.
func (k *Keypad) RowSelect() uint8 { return k.row }

// GetLine reads AddrKeypadData: the 7-bit state of the currently selected
// row.
func (k *Keypad) GetLine() uint8 {
	return k.rows[k.row]
}

// KeyDown presses the key at (row, col).
func (k *Keypad) KeyDown(row, col int) {
	k.rows[row%NumRows] &^= 1 << uint(col%NumCols)
}

// KeyUp releases the key at (row, col).
func (k *Keypad) KeyUp(row, col int) {
	k.rows[row%NumRows] |= 1 << uint(col%NumCols)
}

// RWState saves or restores the matrix state.
func (k *Keypad) RWState(c *statecodec.Codec) error {
	for i := range k.rows {
		if err := c.RWUint8(&k.rows[i]); err != nil {
			return err
		}
	}
	return c.RWUint8(&k.row)
}
