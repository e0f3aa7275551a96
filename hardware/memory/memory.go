// Package memory ties the internal SRAM, the ROM/extended-ROM images, the
// mapped RAM, and the bank-mapping table together into the single
// read_byte/write_byte surface the interpreter uses.
package memory

import (
	"github.com/retrodiag/ice196/coreerr"
	"github.com/retrodiag/ice196/hardware/bank"
	"github.com/retrodiag/ice196/hardware/memorymap"
	"github.com/retrodiag/ice196/hardware/rom"
	"github.com/retrodiag/ice196/statecodec"
)

// IODispatcher routes accesses in the 0x0000-0x0017 and 0x0200-0x02FF
// windows to the I/O register file. Memory holds no SFR state of
// its own.
type IODispatcher interface {
	ReadSFR(addr uint16) (uint8, error)
	WriteSFR(addr uint16, v uint8) error
}

// cachedPtr mirrors the original's code_ptr/data_ptr: a resolved physical
// base for virtual address 0xC000, so that any address >= 0xC000 can be
// resolved by simple addition without walking the bank table again.
type cachedPtr struct {
	store bank.Store
	base  uint32
}

func (p cachedPtr) resolve(addr uint16) bank.Phys {
	return bank.Phys{Store: p.store, Offset: p.base + (uint32(addr) - memorymap.BankWindowBase)}
}

// Memory is the emulated machine's full address space.
type Memory struct {
	SRAM      [memorymap.SRAMSize]byte
	MappedRAM [memorymap.MappedRAMSize]byte

	ROM    *rom.Image
	ExtROM *rom.Image

	io IODispatcher

	// cached bank selectors and their resolved base pointers, recomputed
	// on every write to the bank/window registers and on every state-load
	CodeHi, CodeLo, DataHi, DataLo uint8
	codePtr, dataPtr               cachedPtr

	// optional watchpoint range; when non-zero a trace is emitted on every
	// access in range. Debug-build behaviour only, not contractual.
	WatchLo, WatchHi uint16
	WatchHit         func(addr uint16, write bool, value uint8)
}

// SetIO attaches the I/O register dispatcher. Must be called before any
// SFR-region access.
func (m *Memory) SetIO(io IODispatcher) {
	m.io = io
}

// RefreshPointers recomputes the cached code/data bank pointers. Must be
// called after any write to the bank selector SFRs (0x270-0x273) and
// after every state-load.
func (m *Memory) RefreshPointers() error {
	cp, err := bank.Resolve(m.CodeHi, m.CodeLo, memorymap.BankWindowBase, m.ExtROM != nil)
	if err != nil {
		return err
	}
	m.codePtr = cachedPtr{store: cp.Store, base: cp.Offset}

	dp, err := bank.Resolve(m.DataHi, m.DataLo, memorymap.BankWindowBase, m.ExtROM != nil)
	if err != nil {
		return err
	}
	m.dataPtr = cachedPtr{store: dp.Store, base: dp.Offset}
	return nil
}

func (m *Memory) backingRead(p bank.Phys) uint8 {
	switch p.Store {
	case bank.StoreMappedRAM:
		return m.MappedRAM[p.Offset%uint32(len(m.MappedRAM))]
	case bank.StoreExtROM:
		if m.ExtROM == nil || int(p.Offset) >= len(m.ExtROM.Data) {
			return 0xff
		}
		return m.ExtROM.Data[p.Offset]
	default:
		if m.ROM == nil || int(p.Offset) >= len(m.ROM.Data) {
			return 0xff
		}
		return m.ROM.Data[p.Offset]
	}
}

// backingWrite writes to the resolved physical backing store. Writes to
// ROM-backed banks are deliberately tolerant: shipped ROMs
// self-modify decrypted regions, so the write targets the ROM's (mutable,
// in-memory) backing array rather than being rejected.
func (m *Memory) backingWrite(p bank.Phys, v uint8) {
	switch p.Store {
	case bank.StoreMappedRAM:
		m.MappedRAM[p.Offset%uint32(len(m.MappedRAM))] = v
	case bank.StoreExtROM:
		if m.ExtROM != nil && int(p.Offset) < len(m.ExtROM.Data) {
			m.ExtROM.Data[p.Offset] = v
		}
	default:
		if m.ROM != nil && int(p.Offset) < len(m.ROM.Data) {
			m.ROM.Data[p.Offset] = v
		}
	}
}

func (m *Memory) watch(addr uint16, write bool, value uint8) {
	if m.WatchHit == nil || m.WatchLo == 0 {
		return
	}
	if addr >= m.WatchLo && addr <= m.WatchHi {
		m.WatchHit(addr, write, value)
	}
}

// ReadByte reads one byte from the virtual address space.
func (m *Memory) ReadByte(addr uint16, fetch bool) (uint8, error) {
	switch memorymap.Classify(addr) {
	case memorymap.RegionZero:
		return 0, nil
	case memorymap.RegionSFR:
		if m.io == nil {
			return 0, coreerr.Errorf(coreerr.SFRRangeError, addr)
		}
		return m.io.ReadSFR(addr)
	case memorymap.RegionSRAM:
		v := m.SRAM[addr]
		m.watch(addr, false, v)
		return v, nil
	case memorymap.RegionUnmapped:
		return 0, coreerr.Errorf(coreerr.SFRRangeError, addr)
	default: // RegionBanked
		var ptr cachedPtr
		if fetch {
			ptr = m.codePtr
		} else {
			ptr = m.dataPtr
		}
		v := m.backingRead(ptr.resolve(addr))
		m.watch(addr, false, v)
		return v, nil
	}
}

// WriteByte writes one byte to the virtual address space.
func (m *Memory) WriteByte(addr uint16, v uint8) error {
	switch memorymap.Classify(addr) {
	case memorymap.RegionZero:
		return nil
	case memorymap.RegionSFR:
		if m.io == nil {
			return coreerr.Errorf(coreerr.SFRRangeError, addr)
		}
		return m.io.WriteSFR(addr, v)
	case memorymap.RegionSRAM:
		m.watch(addr, true, v)
		m.SRAM[addr] = v
		return nil
	case memorymap.RegionUnmapped:
		return coreerr.Errorf(coreerr.SFRRangeError, addr)
	default: // RegionBanked - data pointer, writes are never fetches
		m.watch(addr, true, v)
		m.backingWrite(m.dataPtr.resolve(addr), v)
		return nil
	}
}

// ReadWord reads a little-endian 16-bit pair.
func (m *Memory) ReadWord(addr uint16, fetch bool) (uint16, error) {
	lo, err := m.ReadByte(addr, fetch)
	if err != nil {
		return 0, err
	}
	hi, err := m.ReadByte(addr+1, fetch)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

// WriteWord writes a little-endian 16-bit pair.
func (m *Memory) WriteWord(addr uint16, v uint16) error {
	if err := m.WriteByte(addr, uint8(v)); err != nil {
		return err
	}
	return m.WriteByte(addr+1, uint8(v>>8))
}

// ReadLong reads a little-endian 32-bit quad.
func (m *Memory) ReadLong(addr uint16, fetch bool) (uint32, error) {
	lo, err := m.ReadWord(addr, fetch)
	if err != nil {
		return 0, err
	}
	hi, err := m.ReadWord(addr+2, fetch)
	if err != nil {
		return 0, err
	}
	return uint32(lo) | uint32(hi)<<16, nil
}

// WriteLong writes a little-endian 32-bit quad.
func (m *Memory) WriteLong(addr uint16, v uint32) error {
	if err := m.WriteWord(addr, uint16(v)); err != nil {
		return err
	}
	return m.WriteWord(addr+2, uint16(v>>16))
}

// VirtToPhys translates a virtual address: identity below 0xC000, the
// bank table above.
func (m *Memory) VirtToPhys(addr uint16, fetch bool) (uint32, error) {
	if addr < memorymap.BankWindowBase {
		return uint32(addr), nil
	}
	var hi, lo uint8
	if fetch {
		hi, lo = m.CodeHi, m.CodeLo
	} else {
		hi, lo = m.DataHi, m.DataLo
	}
	p, err := bank.Resolve(hi, lo, addr, m.ExtROM != nil)
	if err != nil {
		return 0, err
	}
	return uint32(p.Store)<<28 | p.Offset, nil
}

// RWState saves or restores SRAM, mapped RAM, and the bank selectors
// through c, in a fixed order (ROM/EEPROM names and
// bytes are handled by their owning components, not here).
func (m *Memory) RWState(c *statecodec.Codec) error {
	for _, v := range []*uint8{&m.CodeHi, &m.CodeLo, &m.DataHi, &m.DataLo} {
		if err := c.RWUint8(v); err != nil {
			return err
		}
	}
	if err := c.RWBuf(m.SRAM[:]); err != nil {
		return err
	}
	if err := c.RWBuf(m.MappedRAM[:]); err != nil {
		return err
	}
	if !c.Writing {
		return m.RefreshPointers()
	}
	return nil
}
