package lcd_test

import (
	"bytes"
	"testing"

	"github.com/retrodiag/ice196/hardware/lcd"
	"github.com/retrodiag/ice196/statecodec"
)

func TestCursorSetThenMemWrite(t *testing.T) {
	c := lcd.New()
	c.WriteCommand(lcd.CmdCursorSet)
	c.WriteData(0x10)
	c.WriteData(0x00)

	c.WriteCommand(lcd.CmdMemWrite)
	c.WriteData(0xFF)

	fb := c.Framebuffer()
	// byte 0x10 of plane 1 covers row 0, pixels 128..135
	for x := 128; x < 136; x++ {
		if fb[x] != 1 {
			t.Fatalf("pixel %d: got 0, want 1", x)
		}
	}
}

func TestOverlayModeToggle(t *testing.T) {
	c := lcd.New()
	c.WriteCommand(lcd.CmdOverlay)
	c.WriteData(1)

	// Set pixel 0 in both bitplanes: XOR mixing cancels them out.
	c.WriteCommand(lcd.CmdCursorSet)
	c.WriteData(0x00)
	c.WriteData(0x00)
	c.WriteCommand(lcd.CmdMemWrite)
	c.WriteData(0xFF)
	c.WriteCommand(lcd.CmdCursorSet)
	c.WriteData(0x80)
	c.WriteData(0x25) // 0x2580 = 9600, byte 0 of plane 2
	c.WriteCommand(lcd.CmdMemWrite)
	c.WriteData(0xFF)
	if px := c.Framebuffer()[0]; px != 0 {
		t.Fatalf("pixel 0 = %d with both planes set in XOR mode, want 0", px)
	}

	c.WriteCommand(lcd.CmdDispOnOff)
	c.WriteData(1)
	if !c.DisplayOn() {
		t.Fatalf("expected display on")
	}
}

func TestRWStateRoundTrip(t *testing.T) {
	c := lcd.New()
	c.WriteCommand(lcd.CmdCursorSet)
	c.WriteData(0x05)
	c.WriteData(0x00)
	c.WriteCommand(lcd.CmdMemWrite)
	c.WriteData(0xAA)

	var buf bytes.Buffer
	w := statecodec.NewWriter(&buf)
	if err := c.RWState(w); err != nil {
		t.Fatalf("write state: %v", err)
	}

	c2 := lcd.New()
	r := statecodec.NewReader(&buf)
	if err := c2.RWState(r); err != nil {
		t.Fatalf("read state: %v", err)
	}

	if !bytes.Equal(c.Framebuffer(), c2.Framebuffer()) {
		t.Fatalf("framebuffers differ after round trip")
	}
}
