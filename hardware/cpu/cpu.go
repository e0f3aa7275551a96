package cpu

import (
	"github.com/retrodiag/ice196/coreerr"
	"github.com/retrodiag/ice196/event"
	"github.com/retrodiag/ice196/hardware/eeprom"
	"github.com/retrodiag/ice196/hardware/hsio"
	"github.com/retrodiag/ice196/hardware/ioreg"
	"github.com/retrodiag/ice196/hardware/keypad"
	"github.com/retrodiag/ice196/hardware/lcd"
	"github.com/retrodiag/ice196/hardware/memory"
	"github.com/retrodiag/ice196/hardware/timers"
	"github.com/retrodiag/ice196/statecodec"
)

// spAddr is the fixed SRAM location of the stack pointer word.
const spAddr = 0x18

// CPU is the 8xC196 register file plus the peripherals it drives
// directly (the wiring needed for interrupt polling and bank-selector
// writes).
type CPU struct {
	PC, Opc           uint16
	PSW               PSW
	IntMask, IntMask1 uint8
	PTSSel, PTSSrv    uint16
	ADCommand         uint8
	ADResult          uint16

	Cycles uint64

	Mem    *memory.Memory
	IO     *ioreg.File
	Timers *timers.Timers
	HSIO   *hsio.HSIO
	Keypad *keypad.Keypad
	LCD    *lcd.Controller
	EEPROM *eeprom.EEPROM
	Events *event.Log

	// Stopped is true while a host command (save/load/reset prompt) is
	// pending.
	Stopped bool

	// resetting guards against Reset() being invoked re-entrantly from
	// inside illegal-opcode handling while a caller is also mid-Step.
	resetting bool
}

// New wires a CPU to its memory and peripherals. Callers are expected to
// have already called Mem.SetIO and Mem.RefreshPointers.
func New(mem *memory.Memory, io *ioreg.File) *CPU {
	return &CPU{Mem: mem, IO: io}
}

// Reset clears the register file to its power-on state, taken after an
// illegal opcode, a self-referential jump, or an explicit host reset
// command. Peripheral and memory state are left untouched; only the
// interpreter's own registers reinitialise.
func (c *CPU) Reset() {
	c.PC = 0
	c.Opc = 0
	c.PSW = 0
	c.IntMask = 0
	c.IntMask1 = 0
	c.PTSSel = 0
	c.PTSSrv = 0
	c.Stopped = false
}

func (c *CPU) fetch() (uint8, error) {
	v, err := c.Mem.ReadByte(c.PC, true)
	if err != nil {
		return 0, err
	}
	c.PC++
	return v, nil
}

func (c *CPU) fetch16() (uint16, error) {
	lo, err := c.fetch()
	if err != nil {
		return 0, err
	}
	hi, err := c.fetch()
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

func (c *CPU) readWord(addr uint16) (uint16, error)  { return c.Mem.ReadWord(addr, false) }
func (c *CPU) readLong(addr uint16) (uint32, error)  { return c.Mem.ReadLong(addr, false) }
func (c *CPU) writeWord(addr uint16, v uint16) error { return c.Mem.WriteWord(addr, v) }
func (c *CPU) writeLong(addr uint16, v uint32) error { return c.Mem.WriteLong(addr, v) }

func (c *CPU) readByte(addr uint16) (uint8, error)  { return c.Mem.ReadByte(addr, false) }
func (c *CPU) writeByte(addr uint16, v uint8) error { return c.Mem.WriteByte(addr, v) }

func (c *CPU) push16(word uint16) error {
	sp, err := c.readWord(spAddr)
	if err != nil {
		return err
	}
	sp -= 2
	if err := c.writeWord(spAddr, sp); err != nil {
		return err
	}
	return c.writeWord(sp, word)
}

func (c *CPU) pop16() (uint16, error) {
	sp, err := c.readWord(spAddr)
	if err != nil {
		return 0, err
	}
	val, err := c.readWord(sp)
	if err != nil {
		return 0, err
	}
	if err := c.writeWord(spAddr, sp+2); err != nil {
		return 0, err
	}
	return val, nil
}

// cycle adds a flat cycle cost. Callers fold in the SFR access penalty
// (+3 or +2 cycles when an operand addresses SFR space 0x200..).
func (c *CPU) cycle(n int) { c.Cycles += uint64(n) }

func (c *CPU) cycleRM3(n int, addr uint16) {
	c.Cycles += uint64(n)
	if addr >= 0x200 {
		c.Cycles += 3
	}
}

func (c *CPU) cycleShift(n, shift int) {
	if shift == 0 {
		shift = 1
	}
	c.Cycles += uint64(n + shift)
}

// Step decodes and executes exactly one instruction, advancing Cycles and
// PC. A decode error (illegal/reserved opcode) resets the machine and is
// returned so the caller can log it; the propagation policy is that this
// is the only case where a Step does not fully commit an instruction's
// effects.
func (c *CPU) Step() error {
	c.Opc = c.PC
	opcode, err := c.fetch()
	if err != nil {
		return err
	}

	before := c.Cycles
	err = c.dispatch(opcode)
	if err != nil {
		if coreerr.Is(err, coreerr.IllegalOpcode) || coreerr.Is(err, coreerr.UnimplementedOpcode) {
			c.Reset()
		}
		return err
	}

	return c.pollInterrupt(before)
}

// pollInterrupt implements the once-per-instruction SWT check: if the
// PTS/SFR-level mask bit is set and PSW.INTE is set, each HSIO channel is
// tested against the TIMER1 transition this instruction caused; a hit
// sets the corresponding IOS1 bit, pushes PC, and loads PC from the
// word stored at the interrupt vector.
func (c *CPU) pollInterrupt(before uint64) error {
	if c.Timers == nil || c.HSIO == nil {
		return nil
	}
	oldT1 := c.Timers.ReadTimer1(before)
	c.Timers.Tick(c.Cycles - before)
	newT1 := c.Timers.ReadTimer1(c.Cycles)

	const swtMask = 0x20 // INT_MASK bit 5: software-timer interrupts
	if c.IntMask&swtMask == 0 || !c.PSW.Has(FlagINTE) {
		return nil
	}
	fired := c.HSIO.Poll(oldT1, newT1)
	if fired == 0 {
		return nil
	}

	if c.IO != nil {
		ios1, _ := c.IO.ReadSFR(ioreg.AddrIOS1)
		_ = c.IO.WriteSFR(ioreg.AddrIOS1, ios1|fired)
	}
	if err := c.push16(c.PC); err != nil {
		return err
	}
	v, err := c.Mem.ReadWord(irqVector, true)
	if err != nil {
		return err
	}
	c.PC = v
	return nil
}

// irqVector is the address holding the SWT interrupt entry point; the
// handler address is the 16-bit word stored there, not the vector
// location itself.
const irqVector = 0x200a

func (c *CPU) dispatch(opcode uint8) error {
	switch {
	case opcode <= 0x0f:
		return c.opUnaryWord(opcode)
	case opcode >= 0x11 && opcode <= 0x19:
		return c.opUnaryByte(opcode)
	case opcode >= 0x20 && opcode <= 0x27:
		return c.opSjmp(opcode)
	case opcode >= 0x28 && opcode <= 0x2f:
		return c.opScall(opcode)
	case opcode >= 0x30 && opcode <= 0x37:
		return c.opJbc(opcode)
	case opcode >= 0x38 && opcode <= 0x3f:
		return c.opJbs(opcode)
	case opcode >= 0x40 && opcode <= 0x4f:
		return c.opWord3(opcode)
	case opcode >= 0x50 && opcode <= 0x5f:
		return c.opByte3(opcode)
	case opcode >= 0x60 && opcode <= 0x6f:
		return c.opWord2(opcode)
	case opcode >= 0x70 && opcode <= 0x7f:
		return c.opByte2(opcode)
	case opcode >= 0x80 && opcode <= 0x8f:
		return c.opWord2b(opcode)
	case opcode >= 0x90 && opcode <= 0x9f:
		return c.opByte2b(opcode)
	case opcode >= 0xc0 && opcode <= 0xcc:
		return c.opStoreStack(opcode)
	case opcode >= 0xd0 && opcode <= 0xdf:
		return c.opCondJump(opcode)
	case opcode >= 0xe0 && opcode <= 0xef:
		return c.opLoopJump(opcode)
	case opcode >= 0xf0 && opcode <= 0xfc:
		return c.opMisc(opcode)
	case opcode == 0xfe:
		return c.opPrefixed()
	default:
		return coreerr.Errorf(coreerr.IllegalOpcode, opcode, c.Opc)
	}
}

// HandleFatal classifies err by its curated category and resets the
// machine when that category is fatal. The illegal/unimplemented-opcode
// case already resets inline inside Step; this is the decision point for
// every other error Step can return (a bad bank mapping, say), which the
// caller surfaces here after the fact.
func (c *CPU) HandleFatal(err error) (reset bool) {
	if err == nil {
		return false
	}
	if cat, ok := coreerr.CategoryOf(err); ok && cat.Fatal() {
		c.Reset()
		return true
	}
	return false
}

// RWState saves or restores the CPU register file. Peripheral and memory
// state are saved separately by their owning components, in the fixed
// save-file order (see the machine package's state handling).
func (c *CPU) RWState(cc *statecodec.Codec) error {
	for _, v := range []*uint16{&c.PC, &c.Opc} {
		if err := cc.RWUint16(v); err != nil {
			return err
		}
	}
	psw := uint8(c.PSW)
	if err := cc.RWUint8(&psw); err != nil {
		return err
	}
	if !cc.Writing {
		c.PSW = PSW(psw)
	}
	for _, v := range []*uint8{&c.IntMask, &c.IntMask1, &c.ADCommand} {
		if err := cc.RWUint8(v); err != nil {
			return err
		}
	}
	for _, v := range []*uint16{&c.PTSSel, &c.PTSSrv, &c.ADResult} {
		if err := cc.RWUint16(v); err != nil {
			return err
		}
	}
	if err := cc.RWUint64(&c.Cycles); err != nil {
		return err
	}
	return cc.RWBool(&c.Stopped)
}
