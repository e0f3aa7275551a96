package cpu_test

import (
	"testing"

	"github.com/retrodiag/ice196/hardware/cpu"
	"github.com/retrodiag/ice196/hardware/hsio"
	"github.com/retrodiag/ice196/hardware/ioreg"
	"github.com/retrodiag/ice196/hardware/memory"
	"github.com/retrodiag/ice196/hardware/rom"
	"github.com/retrodiag/ice196/hardware/timers"
)

func newCPU(t *testing.T) *cpu.CPU {
	t.Helper()
	m := &memory.Memory{}
	m.ROM = rom.Load("test.rom", make([]byte, 0x400000))
	io := ioreg.NewFile()
	m.SetIO(io)
	if err := m.RefreshPointers(); err != nil {
		t.Fatal(err)
	}
	return cpu.New(m, io)
}

func load(t *testing.T, c *cpu.CPU, addr uint16, bytes ...uint8) {
	t.Helper()
	for i, b := range bytes {
		if err := c.Mem.WriteByte(addr+uint16(i), b); err != nil {
			t.Fatal(err)
		}
	}
}

// TestAddWordFlags: 0x64 0x52 0x50
// adds the word at 0x52 into the word at 0x50, written back to 0x50.
// With 0x50 preloaded 0x7fff and 0x52 preloaded 0x0001 the sum crosses
// the positive/negative boundary, giving a signed overflow without an
// unsigned carry.
func TestAddWordFlags(t *testing.T) {
	c := newCPU(t)
	if err := c.Mem.WriteWord(0x50, 0x7fff); err != nil {
		t.Fatal(err)
	}
	if err := c.Mem.WriteWord(0x52, 0x0001); err != nil {
		t.Fatal(err)
	}
	load(t, c, 0x2200, 0x64, 0x52, 0x50)
	c.PC = 0x2200

	if err := c.Step(); err != nil {
		t.Fatal(err)
	}

	sum, err := c.Mem.ReadWord(0x50, false)
	if err != nil {
		t.Fatal(err)
	}
	if sum != 0x8000 {
		t.Fatalf("sum = %#04x, want 0x8000", sum)
	}
	if c.PSW.Has(cpu.FlagZ) {
		t.Error("Z should be clear")
	}
	if !c.PSW.Has(cpu.FlagN) {
		t.Error("N should be set")
	}
	if c.PSW.Has(cpu.FlagC) {
		t.Error("C should be clear")
	}
	if !c.PSW.Has(cpu.FlagV) {
		t.Error("V should be set")
	}
	if !c.PSW.Has(cpu.FlagVT) {
		t.Error("VT should be set")
	}
}

// TestShrWordFlags: 0x08 0x01 0x50 shifts the word at 0x50 right by one
// bit. Preloaded with 0x8003, the staging formula gives a carry-out of 1
// and a written result of 0x4001. ST tracks whether any 1 bit was
// shifted past the carry position, and 0x8003 has none below bit 0 once
// the carry bit itself is excluded, so ST stays clear here.
func TestShrWordFlags(t *testing.T) {
	c := newCPU(t)
	if err := c.Mem.WriteWord(0x50, 0x8003); err != nil {
		t.Fatal(err)
	}
	load(t, c, 0x2200, 0x08, 0x01, 0x50)
	c.PC = 0x2200

	if err := c.Step(); err != nil {
		t.Fatal(err)
	}

	res, err := c.Mem.ReadWord(0x50, false)
	if err != nil {
		t.Fatal(err)
	}
	if res != 0x4001 {
		t.Fatalf("res = %#04x, want 0x4001", res)
	}
	if !c.PSW.Has(cpu.FlagC) {
		t.Error("C should be set")
	}
	if c.PSW.Has(cpu.FlagZ) {
		t.Error("Z should be clear")
	}
	if c.PSW.Has(cpu.FlagN) {
		t.Error("N should be clear")
	}
	if c.PSW.Has(cpu.FlagST) {
		t.Error("ST should be clear per the literal staging formula")
	}
}

// TestSjmpSelfLoopResets: a
// short jump whose target is its own opcode address is an endless loop
// by construction, and must reset the machine rather than spin.
func TestSjmpSelfLoopResets(t *testing.T) {
	c := newCPU(t)
	// 0x27 0xfe encodes an 11-bit raw value of 0x7fe (opcode low bits 7,
	// fetched byte 0xfe), which sign-extends to rel = -2, so
	// pc+rel == pc-2 == the opcode's own address.
	load(t, c, 0x2200, 0x27, 0xfe)
	c.PC = 0x2200

	err := c.Step()
	if err == nil {
		t.Fatal("expected an endless-loop error")
	}
	if c.PC != 0 {
		t.Fatalf("PC = %#04x after reset, want 0", c.PC)
	}
	if c.PSW != 0 {
		t.Fatalf("PSW = %#02x after reset, want 0", uint8(c.PSW))
	}
}

// TestIllegalOpcodeResets checks that a decode failure resets the
// machine and is reported to the caller, matching the fatal-by-default
// decode-error policy.
func TestIllegalOpcodeResets(t *testing.T) {
	c := newCPU(t)
	load(t, c, 0x2200, 0xc2) // unimplemented store-stack sub-opcode
	c.PC = 0x2200

	if err := c.Step(); err == nil {
		t.Fatal("expected an unimplemented-opcode error")
	}
	if c.PC != 0 {
		t.Fatalf("PC = %#04x after reset, want 0", c.PC)
	}
}

// TestDivuByZeroSubstitutesOne checks the documented zero-divisor
// substitution rather than a divide-by-zero fault.
func TestDivuByZeroSubstitutesOne(t *testing.T) {
	c := newCPU(t)
	if err := c.Mem.WriteLong(0x50, 7); err != nil {
		t.Fatal(err)
	}
	load(t, c, 0x2200, 0x8c, 0x00, 0x50) // divu 0, 0x50
	c.PC = 0x2200

	if err := c.Step(); err != nil {
		t.Fatal(err)
	}
	q, err := c.Mem.ReadWord(0x50, false)
	if err != nil {
		t.Fatal(err)
	}
	if q != 7 {
		t.Fatalf("quotient = %d, want 7 (divisor substituted with 1)", q)
	}
}

// TestSWTInterruptLoadsVectorWord: an armed SWT channel crossing its
// compare value pushes the return address and loads PC from the 16-bit
// word stored at 0x200A, not from the vector location itself.
func TestSWTInterruptLoadsVectorWord(t *testing.T) {
	c := newCPU(t)
	c.Timers = &timers.Timers{}
	c.HSIO = &hsio.HSIO{}

	if err := c.Mem.WriteWord(0x200a, 0x4321); err != nil {
		t.Fatal(err)
	}
	if err := c.Mem.WriteWord(0x18, 0x2100); err != nil {
		t.Fatal(err)
	}

	c.IntMask = 0x20
	c.PSW.Set(cpu.FlagINTE)
	c.HSIO.SetTime(0, 1)
	c.HSIO.SetCommand(0, 0x01)

	c.PC = 0x2200
	load(t, c, 0x2200, 0x00, 0x02, 0x00, 0x02, 0x00, 0x02, 0x00, 0x02)

	for i := 0; i < 8 && c.PC != 0x4321; i++ {
		if err := c.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if c.PC != 0x4321 {
		t.Fatalf("pc = %#04x, want the handler address 0x4321 stored at the vector", c.PC)
	}
	sp, err := c.Mem.ReadWord(0x18, false)
	if err != nil {
		t.Fatal(err)
	}
	if sp != 0x20fe {
		t.Fatalf("sp = %#04x, want 0x20fe after the return address was pushed", sp)
	}
}
