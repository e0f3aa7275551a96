package eeprom_test

import (
	"testing"

	"github.com/retrodiag/ice196/hardware/eeprom"
)

func clockBits(e *eeprom.EEPROM, bits []int) {
	for _, b := range bits {
		e.ToggleInputs(true, false, b != 0)
		e.ToggleInputs(true, true, b != 0)
	}
}

func TestWriteThenReadWord(t *testing.T) {
	e := &eeprom.EEPROM{}

	// start(1) + opcode(write=1,0 -> using op bit pattern "10") + addr(7
	// bits, address 5) + data (16 bits, 0xBEEF)
	cmdBits := []int{1, 1, 0}
	addrBits := []int{0, 0, 0, 0, 1, 0, 1} // 5
	dataBits := []int{1, 0, 1, 1, 1, 1, 1, 0, 1, 1, 1, 0, 1, 1, 1, 1}

	clockBits(e, cmdBits)
	clockBits(e, addrBits)
	clockBits(e, dataBits)

	if e.Mem[5] != 0xBEEF {
		t.Fatalf("got %#04x, want 0xbeef", e.Mem[5])
	}
}

func TestReadWordBitstream(t *testing.T) {
	e := &eeprom.EEPROM{}
	e.Mem[3] = 0xABCD

	cmdBits := []int{1, 0, 0} // opcode read
	addrBits := []int{0, 0, 0, 0, 0, 1, 1}
	clockBits(e, cmdBits)
	clockBits(e, addrBits)

	var got uint16
	for i := 0; i < 16; i++ {
		bit := e.ReadData(uint64(i))
		got <<= 1
		if bit {
			got |= 1
		}
		e.ToggleInputs(true, false, false)
		e.ToggleInputs(true, true, false)
	}
	if got != 0xABCD {
		t.Fatalf("got %#04x, want 0xabcd", got)
	}
}

func TestDisableResetsStateMachine(t *testing.T) {
	e := &eeprom.EEPROM{}
	clockBits(e, []int{1, 1, 0})
	e.ToggleInputs(false, false, false)
	// after disable, a fresh command sequence should start cleanly
	clockBits(e, []int{1, 0, 0})
	addrBits := []int{0, 0, 0, 0, 0, 0, 1}
	clockBits(e, addrBits)
	if e.ReadData(0) != ((e.Mem[1]>>15)&1 != 0) {
		t.Fatalf("expected read phase to reflect mem[1] MSB")
	}
}
