package keypad_test

import (
	"bytes"
	"testing"

	"github.com/retrodiag/ice196/hardware/keypad"
	"github.com/retrodiag/ice196/statecodec"
)

func TestKeyDownUpActiveLow(t *testing.T) {
	k := keypad.New()
	k.SetRowSelect(2)
	if k.GetLine() != 0x7F {
		t.Fatalf("expected all keys released, got %#x", k.GetLine())
	}

	k.KeyDown(2, 3)
	if k.GetLine()&(1<<3) != 0 {
		t.Fatalf("expected bit 3 clear while held down")
	}

	k.KeyUp(2, 3)
	if k.GetLine() != 0x7F {
		t.Fatalf("expected all keys released after KeyUp, got %#x", k.GetLine())
	}
}

func TestRowSelectWraps(t *testing.T) {
	k := keypad.New()
	k.SetRowSelect(keypad.NumRows)
	if k.RowSelect() != 0 {
		t.Fatalf("expected row select to wrap to 0, got %d", k.RowSelect())
	}
}

func TestRWStateRoundTrip(t *testing.T) {
	k := keypad.New()
	k.KeyDown(1, 5)
	k.SetRowSelect(1)

	var buf bytes.Buffer
	if err := k.RWState(statecodec.NewWriter(&buf)); err != nil {
		t.Fatalf("write: %v", err)
	}

	k2 := keypad.New()
	if err := k2.RWState(statecodec.NewReader(&buf)); err != nil {
		t.Fatalf("read: %v", err)
	}
	if k2.GetLine() != k.GetLine() || k2.RowSelect() != k.RowSelect() {
		t.Fatalf("state mismatch after round trip")
	}
}
