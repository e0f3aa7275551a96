// Package ioreg implements the windowed special-function-register file
// : per-register read/write handlers dispatch to peripherals, with
// some registers' handler selected by the current WSR value.
package ioreg

import (
	"github.com/retrodiag/ice196/coreerr"
)

// ReadFunc and WriteFunc back one SFR address (optionally, one SFR
// address within one WSR window).
type ReadFunc func() uint8
type WriteFunc func(v uint8)

type handler struct {
	read  ReadFunc
	write WriteFunc
}

// ValidWindows lists the only WSR/WSR1 values the 8xC196 recognises for a
// wsr-sensitive register: 0 selects the base layout, 1 and
// 15 select the two alternate banks.
var ValidWindows = [3]uint8{0, 1, 15}

// File is the windowed SFR dispatch table. It owns no peripheral state
// itself (beyond the WSR/WSR1 selectors), only the address -> handler
// mapping.
type File struct {
	plain    map[uint16]handler
	windowed map[uint16]map[uint8]handler

	WSR  uint8
	WSR1 uint8

	// BankWrite is invoked after every write to the 0x270-0x273 bank
	// selectors, letting the caller refresh its cached code/data pointers.
	BankWrite func()
}

// NewFile creates an empty dispatch table and wires the WSR/WSR1
// registers themselves.
func NewFile() *File {
	f := &File{
		plain:    make(map[uint16]handler),
		windowed: make(map[uint16]map[uint8]handler),
	}
	f.Register(AddrWSR, func() uint8 { return f.WSR }, func(v uint8) { f.WSR = v })
	f.Register(AddrWSR1, func() uint8 { return f.WSR1 }, func(v uint8) { f.WSR1 = v })
	return f
}

// Register installs a window-insensitive handler for addr.
func (f *File) Register(addr uint16, r ReadFunc, w WriteFunc) {
	f.plain[addr] = handler{read: r, write: w}
}

// RegisterWindowed installs a handler for addr that is only active when
// the current WSR equals window. window must be one of ValidWindows.
func (f *File) RegisterWindowed(addr uint16, window uint8, r ReadFunc, w WriteFunc) {
	m, ok := f.windowed[addr]
	if !ok {
		m = make(map[uint8]handler)
		f.windowed[addr] = m
	}
	m[window] = handler{read: r, write: w}
}

// RegisterBankSelector installs a handler for one of the four bank
// selector SFRs (0x270-0x273) that additionally invokes BankWrite after
// every write.
func (f *File) RegisterBankSelector(addr uint16, r ReadFunc, w WriteFunc) {
	f.Register(addr, r, func(v uint8) {
		w(v)
		if f.BankWrite != nil {
			f.BankWrite()
		}
	})
}

func (f *File) lookup(addr uint16) (handler, bool) {
	if h, ok := f.plain[addr]; ok {
		return h, true
	}
	if m, ok := f.windowed[addr]; ok {
		if h, ok := m[f.WSR]; ok {
			return h, true
		}
		// valid window with no handler for this register: reads as 0 and
		// writes are dropped (reserved WSR values are rejected before lookup)
		return handler{}, false
	}
	return handler{}, false
}

// ReadSFR implements memory.IODispatcher. Unregistered addresses in the
// whitelisted ranges return 0; addresses with a windowed handler
// but an unrecognised WSR value are fatal.
func (f *File) ReadSFR(addr uint16) (uint8, error) {
	if _, windowed := f.windowed[addr]; windowed {
		if !isValidWindow(f.WSR) {
			return 0, coreerr.Errorf(coreerr.ReservedWSR, f.WSR)
		}
	}
	h, ok := f.lookup(addr)
	if !ok {
		return 0, nil
	}
	if h.read == nil {
		return 0, nil
	}
	return h.read(), nil
}

// WriteSFR implements memory.IODispatcher.
func (f *File) WriteSFR(addr uint16, v uint8) error {
	if _, windowed := f.windowed[addr]; windowed {
		if !isValidWindow(f.WSR) {
			return coreerr.Errorf(coreerr.ReservedWSR, f.WSR)
		}
	}
	h, ok := f.lookup(addr)
	if !ok || h.write == nil {
		return nil
	}
	h.write(v)
	return nil
}

func isValidWindow(w uint8) bool {
	for _, v := range ValidWindows {
		if v == w {
			return true
		}
	}
	return false
}
