package bank_test

import (
	"testing"

	"github.com/retrodiag/ice196/hardware/bank"
)

func TestResolveROMBaseBank(t *testing.T) {
	p, err := bank.Resolve(0, 2, 0xC100, false)
	if err != nil {
		t.Fatal(err)
	}
	want := uint32(2*0x4000 + 0x100)
	if p.Store != bank.StoreROM || p.Offset != want {
		t.Fatalf("got %+v, want offset %#x in ROM", p, want)
	}
}

func TestResolveExtendedROMBank(t *testing.T) {
	p, err := bank.Resolve(3, 1, 0xC000, false)
	if err != nil {
		t.Fatal(err)
	}
	want := uint32(3*0x400000 + 1*0x4000)
	if p.Store != bank.StoreROM || p.Offset != want {
		t.Fatalf("got %+v, want offset %#x", p, want)
	}
}

func TestResolveHigh9Bank(t *testing.T) {
	p, err := bank.Resolve(9, 7, 0xC000, false)
	if err != nil {
		t.Fatal(err)
	}
	want := uint32(0xC000 + (7-6)*0x4000)
	if p.Offset != want {
		t.Fatalf("got %#x, want %#x", p.Offset, want)
	}
}

func TestResolveMappedRAM(t *testing.T) {
	p, err := bank.Resolve(8, 0x10, 0xC000, false)
	if err != nil {
		t.Fatal(err)
	}
	if p.Store != bank.StoreMappedRAM || p.Offset != 0x10*0x4000 {
		t.Fatalf("got %+v", p)
	}

	p, err = bank.Resolve(8, 0x20, 0xC000, false)
	if err == nil {
		t.Fatalf("data_lo > 0x1F with data_hi=8 must be fatal, got %+v", p)
	}
}

func TestResolveMirroredMappedRAM(t *testing.T) {
	p1, err := bank.Resolve(7, 0x21, 0xC000, false)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := bank.Resolve(0x1E, 0x01, 0xC000, false)
	if err != nil {
		t.Fatal(err)
	}
	if p1.Offset != p2.Offset {
		t.Fatalf("0x21 mod 0x20 should alias 0x01: %+v vs %+v", p1, p2)
	}
}

func TestResolveExtendedROMOrFallback(t *testing.T) {
	p, err := bank.Resolve(0x10, 2, 0xC000, true)
	if err != nil || p.Store != bank.StoreExtROM {
		t.Fatalf("expected ExtROM when present, got %+v err=%v", p, err)
	}
	p, err = bank.Resolve(0x10, 2, 0xC000, false)
	if err != nil || p.Store != bank.StoreROM {
		t.Fatalf("expected ROM fallback when absent, got %+v err=%v", p, err)
	}
}

func TestResolveUnmappedIsFatal(t *testing.T) {
	if _, err := bank.Resolve(0x0B, 0, 0xC000, false); err == nil {
		t.Fatalf("expected fatal error for unmapped data_hi")
	}
}
