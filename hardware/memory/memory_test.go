package memory_test

import (
	"testing"

	"github.com/retrodiag/ice196/coreerr"
	"github.com/retrodiag/ice196/hardware/memory"
	"github.com/retrodiag/ice196/hardware/rom"
)

func newMemory(t *testing.T) *memory.Memory {
	t.Helper()
	m := &memory.Memory{}
	m.ROM = rom.Load("test.rom", make([]byte, 0x400000))
	if err := m.RefreshPointers(); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestSRAMReadWrite(t *testing.T) {
	m := newMemory(t)
	if err := m.WriteByte(0x50, 0x42); err != nil {
		t.Fatal(err)
	}
	v, err := m.ReadByte(0x50, false)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x42 {
		t.Fatalf("got %#x, want 0x42", v)
	}
}

func TestZeroPageAlwaysZero(t *testing.T) {
	m := newMemory(t)
	if err := m.WriteByte(0, 0xff); err != nil {
		t.Fatal(err)
	}
	v, _ := m.ReadByte(0, false)
	if v != 0 {
		t.Fatalf("addr 0 must always read zero, got %#x", v)
	}
	v, _ = m.ReadByte(1, false)
	if v != 0 {
		t.Fatalf("addr 1 must always read zero, got %#x", v)
	}
}

// TestBankedReadWriteRoundTrip is invariant (B): for a fixed bank
// selector, read_byte(addr) equals the last value written to that
// (bank, addr).
func TestBankedReadWriteRoundTrip(t *testing.T) {
	m := newMemory(t)
	m.DataHi, m.DataLo = 0, 1
	if err := m.RefreshPointers(); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteByte(0xC010, 0x99); err != nil {
		t.Fatal(err)
	}
	v, err := m.ReadByte(0xC010, false)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x99 {
		t.Fatalf("got %#x, want 0x99", v)
	}

	// switching the bank away and back must not disturb the stored value
	m.DataHi, m.DataLo = 0, 2
	if err := m.RefreshPointers(); err != nil {
		t.Fatal(err)
	}
	m.DataHi, m.DataLo = 0, 1
	if err := m.RefreshPointers(); err != nil {
		t.Fatal(err)
	}
	v, err = m.ReadByte(0xC010, false)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x99 {
		t.Fatalf("value did not survive bank switch round-trip: got %#x", v)
	}
}

func TestWordAndLongLittleEndian(t *testing.T) {
	m := newMemory(t)
	if err := m.WriteWord(0x60, 0x1234); err != nil {
		t.Fatal(err)
	}
	lo, _ := m.ReadByte(0x60, false)
	hi, _ := m.ReadByte(0x61, false)
	if lo != 0x34 || hi != 0x12 {
		t.Fatalf("not little-endian: lo=%#x hi=%#x", lo, hi)
	}
	v, err := m.ReadWord(0x60, false)
	if err != nil || v != 0x1234 {
		t.Fatalf("got %#x err=%v", v, err)
	}

	if err := m.WriteLong(0x70, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	lv, err := m.ReadLong(0x70, false)
	if err != nil || lv != 0xdeadbeef {
		t.Fatalf("got %#x err=%v", lv, err)
	}
}

// TestUnmappedGapAccessIsFatal: the reserved gaps between the SFR blocks
// and SRAM are not silently tolerated - reads and writes there surface
// the out-of-whitelist error.
func TestUnmappedGapAccessIsFatal(t *testing.T) {
	m := newMemory(t)
	for _, addr := range []uint16{0x0100, 0x01ff, 0x0300, 0x1fff} {
		if _, err := m.ReadByte(addr, false); !coreerr.Is(err, coreerr.SFRRangeError) {
			t.Fatalf("read %#04x: err = %v, want out-of-range error", addr, err)
		}
		if err := m.WriteByte(addr, 0x42); !coreerr.Is(err, coreerr.SFRRangeError) {
			t.Fatalf("write %#04x: err = %v, want out-of-range error", addr, err)
		}
	}
}
