// Package lcd implements the on-chip graphics LCD controller: a
// command/data state machine over VRAM, with a 2-layer XOR overlay
// blitted to a framebuffer.
package lcd

import (
	"image"
	"image/color"

	"github.com/retrodiag/ice196/statecodec"
)

// Fixed device screen resolution. The pixel blitter itself belongs to
// the host toolkit; this package only maintains VRAM and produces the
// composited bitmap.
const (
	Width  = 320
	Height = 240
)

// vramSize covers two independent bitplanes (layer 1 and layer 2) at one
// bit per pixel, addressed as the controller's linear byte space.
const vramSize = (Width / 8) * Height * 2

type state int

const (
	stateIdle state = iota
	stateSystemSet
	stateMWrite
	stateMRead
	stateCSRW
	stateCSRR
	stateOverlay
	stateDispOnOff
)

// Command bytes recognised on the command port (a0=1), following the
// T6963-family command set.
const (
	CmdSystemSet = 0x40
	CmdCursorSet = 0x21
	CmdMemWrite  = 0xC0
	CmdMemRead   = 0xC2
	CmdOverlay   = 0x20
	CmdDispOnOff = 0x90
)

// Controller is the LCD command/data state machine plus its VRAM.
type Controller struct {
	vram [vramSize]byte

	st        state
	nextParam int
	cursor    uint16

	mixXOR    bool // layer mixing mode: false = OR, true = XOR
	displayOn bool
}

// New creates a controller with the display off and an empty VRAM.
func New() *Controller {
	return &Controller{}
}

// WriteCommand implements writes to the command port (a0=1).
func (c *Controller) WriteCommand(v uint8) {
	switch v {
	case CmdSystemSet:
		c.st = stateSystemSet
		c.nextParam = 0
	case CmdCursorSet:
		c.st = stateCSRW
		c.nextParam = 0
	case CmdMemWrite:
		c.st = stateMWrite
	case CmdMemRead:
		c.st = stateMRead
	case CmdOverlay:
		c.st = stateOverlay
		c.nextParam = 0
	case CmdDispOnOff:
		c.st = stateDispOnOff
	default:
		c.st = stateIdle
	}
}

// WriteData implements writes to the data port (a0=0); its effect depends
// on the controller's current command state.
func (c *Controller) WriteData(v uint8) {
	switch c.st {
	case stateCSRW:
		switch c.nextParam {
		case 0:
			c.cursor = (c.cursor &^ 0x00FF) | uint16(v)
		case 1:
			c.cursor = (c.cursor & 0x00FF) | uint16(v)<<8
			c.st = stateIdle
		}
		c.nextParam++

	case stateMWrite:
		if int(c.cursor) < len(c.vram) {
			c.vram[c.cursor] = v
		}
		c.cursor++

	case stateOverlay:
		c.mixXOR = v&1 != 0
		c.st = stateIdle

	case stateDispOnOff:
		c.displayOn = v&1 != 0
		c.st = stateIdle

	case stateSystemSet:
		// parameter bytes (display geometry etc.) are accepted but not
		// modelled further; the fixed resolution is assumed throughout
		c.nextParam++
		if c.nextParam >= 7 {
			c.st = stateIdle
		}

	default:
	}
}

// ReadStatus implements reads from the status/command port (a0=1). The
// controller reports always-ready (no busy cycle is modelled).
func (c *Controller) ReadStatus() uint8 {
	return 0x03
}

// ReadData implements reads from the data port (a0=0), used during
// CMD_MREAD.
func (c *Controller) ReadData() uint8 {
	if c.st != stateMRead {
		return 0
	}
	var v uint8
	if int(c.cursor) < len(c.vram) {
		v = c.vram[c.cursor]
	}
	c.cursor++
	return v
}

// Framebuffer composites the two VRAM bitplanes into a single
// byte-per-pixel (0 or 1) bitmap, XOR-mixing layer 2 over layer 1 when
// mixXOR is set, OR-mixing otherwise.
func (c *Controller) Framebuffer() []byte {
	out := make([]byte, Width*Height)
	plane := (Width / 8) * Height
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			byteIdx := y*(Width/8) + x/8
			bit := uint(7 - x%8)
			l1 := (c.vram[byteIdx] >> bit) & 1
			l2 := (c.vram[plane+byteIdx] >> bit) & 1
			var px byte
			if c.mixXOR {
				px = l1 ^ l2
			} else {
				px = l1 | l2
			}
			out[y*Width+x] = px
		}
	}
	return out
}

// Snapshot composites the current VRAM into a 1-bit image, amber-on-black
// to match the scanner's physical panel. VRAM is composited whether or
// not the display is on; an all-zero VRAM gives an all-black image.
func (c *Controller) Snapshot() image.Image {
	fb := c.Framebuffer()
	img := image.NewPaletted(image.Rect(0, 0, Width, Height), color.Palette{
		color.Black,
		color.RGBA{R: 0xff, G: 0xb0, B: 0x00, A: 0xff},
	})
	copy(img.Pix, fb)
	return img
}

// DisplayOn reports whether the display is currently enabled.
func (c *Controller) DisplayOn() bool { return c.displayOn }

// RWState saves or restores the controller's full state.
func (c *Controller) RWState(cc *statecodec.Codec) error {
	if err := cc.RWBuf(c.vram[:]); err != nil {
		return err
	}
	st := uint8(c.st)
	if err := cc.RWUint8(&st); err != nil {
		return err
	}
	if !cc.Writing {
		c.st = state(st)
	}
	np := uint32(c.nextParam)
	if err := cc.RWUint32(&np); err != nil {
		return err
	}
	if !cc.Writing {
		c.nextParam = int(np)
	}
	if err := cc.RWUint16(&c.cursor); err != nil {
		return err
	}
	if err := cc.RWBool(&c.mixXOR); err != nil {
		return err
	}
	return cc.RWBool(&c.displayOn)
}
