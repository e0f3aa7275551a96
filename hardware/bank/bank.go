// Package bank implements the virtual-to-physical address translation
// table for the >= 0xC000 banked window. It is pure: given a bank
// selector pair and an address it returns where to look, never holding a
// reference to the backing stores itself, so that it can be exhaustively
// tested against the mapping table without constructing a full
// Cpu.
package bank

import (
	"github.com/retrodiag/ice196/coreerr"
	"github.com/retrodiag/ice196/hardware/memorymap"
)

// Store identifies which backing array a resolved physical address lives
// in.
type Store int

const (
	StoreROM Store = iota
	StoreExtROM
	StoreMappedRAM
)

// Phys is a resolved physical address: which store, and the byte offset
// within it.
type Phys struct {
	Store  Store
	Offset uint32
}

// Resolve implements the bank mapping table. addr must be >= 0xC000. hi/lo
// are the cached (code_hi, code_lo) or (data_hi, data_lo) bank selectors,
// depending on whether the access is a fetch. extROMPresent reflects
// whether a secondary ROM image was loaded.
func Resolve(hi, lo uint8, addr uint16, extROMPresent bool) (Phys, error) {
	off := uint32(addr) - memorymap.BankWindowBase

	switch {
	case hi == 0:
		return Phys{Store: StoreROM, Offset: uint32(lo)*memorymap.BankWindowSize + off}, nil

	case hi >= 1 && hi <= 6:
		return Phys{Store: StoreROM, Offset: uint32(hi)*0x400000 + uint32(lo)*memorymap.BankWindowSize + off}, nil

	case hi == 9:
		return Phys{Store: StoreROM, Offset: memorymap.BankWindowBase + uint32(lo-6)*memorymap.BankWindowSize + off}, nil

	case hi == 8 && lo <= 0x1F:
		return Phys{Store: StoreMappedRAM, Offset: uint32(lo)*memorymap.BankWindowSize + off}, nil

	case hi == 7 || hi == 0x1E || hi == 0x1F:
		return Phys{Store: StoreMappedRAM, Offset: uint32(lo%0x20)*memorymap.BankWindowSize + off}, nil

	case hi == 0x10:
		if extROMPresent {
			return Phys{Store: StoreExtROM, Offset: uint32(lo)*memorymap.BankWindowSize + off}, nil
		}
		return Phys{Store: StoreROM, Offset: uint32(lo)*memorymap.BankWindowSize + off}, nil

	default:
		return Phys{}, coreerr.Errorf(coreerr.UnmappedBank, hi, lo)
	}
}
