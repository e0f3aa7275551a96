package ioreg_test

import (
	"testing"

	"github.com/retrodiag/ice196/hardware/ioreg"
)

func TestPlainRegisterDispatch(t *testing.T) {
	f := ioreg.NewFile()
	var stored uint8
	f.Register(ioreg.AddrKeypadData, func() uint8 { return stored }, func(v uint8) { stored = v })

	if err := f.WriteSFR(ioreg.AddrKeypadData, 0x42); err != nil {
		t.Fatal(err)
	}
	v, err := f.ReadSFR(ioreg.AddrKeypadData)
	if err != nil || v != 0x42 {
		t.Fatalf("got %#x err=%v", v, err)
	}
}

func TestUnregisteredInRangeReadsZero(t *testing.T) {
	f := ioreg.NewFile()
	v, err := f.ReadSFR(ioreg.AddrBeeperLED)
	if err != nil || v != 0 {
		t.Fatalf("got %#x err=%v, want 0/nil", v, err)
	}
}

func TestWindowedRegisterDispatch(t *testing.T) {
	f := ioreg.NewFile()
	var w0, w1 uint8
	f.RegisterWindowed(ioreg.AddrSPCon, 0, func() uint8 { return w0 }, func(v uint8) { w0 = v })
	f.RegisterWindowed(ioreg.AddrSPCon, 1, func() uint8 { return w1 }, func(v uint8) { w1 = v })

	if err := f.WriteSFR(ioreg.AddrSPCon, 0x11); err != nil {
		t.Fatal(err)
	}
	if w0 != 0x11 {
		t.Fatalf("window 0 write did not land: %#x", w0)
	}

	f.WSR = 1
	if err := f.WriteSFR(ioreg.AddrSPCon, 0x22); err != nil {
		t.Fatal(err)
	}
	if w1 != 0x22 {
		t.Fatalf("window 1 write did not land: %#x", w1)
	}
	if w0 != 0x11 {
		t.Fatalf("window 0 should be untouched by window 1 write: %#x", w0)
	}
}

func TestWindowedRegisterRejectsReservedWSR(t *testing.T) {
	f := ioreg.NewFile()
	f.RegisterWindowed(ioreg.AddrSPCon, 0, func() uint8 { return 0 }, func(v uint8) {})
	f.WSR = 3
	if _, err := f.ReadSFR(ioreg.AddrSPCon); err == nil {
		t.Fatalf("expected fatal error for reserved wsr value")
	}
}

func TestBankSelectorTriggersRefresh(t *testing.T) {
	f := ioreg.NewFile()
	var hi uint8
	refreshed := false
	f.BankWrite = func() { refreshed = true }
	f.RegisterBankSelector(ioreg.AddrCodeHi, func() uint8 { return hi }, func(v uint8) { hi = v })

	if err := f.WriteSFR(ioreg.AddrCodeHi, 3); err != nil {
		t.Fatal(err)
	}
	if !refreshed {
		t.Fatalf("expected BankWrite to fire after bank selector write")
	}
	if hi != 3 {
		t.Fatalf("got %d, want 3", hi)
	}
}
