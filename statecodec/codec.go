// Package statecodec provides the uniform read/write primitives used by
// every component's save/restore logic. A single linear stream, written
// in a fixed component order, with
// little-endian integers and line-terminated strings - deliberately
// unfancy, so that every component's state method reads exactly as it
// writes.
package statecodec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Codec wraps a sequential io.Reader or io.Writer (it never seeks) and a
// direction (reading or writing). Every component's RWState method takes
// a *Codec and calls the RW* helpers in a fixed field order; the same call sequence is used
// whether Writing is true or false, which is what makes save/restore a
// fixed point.
type Codec struct {
	r       io.Reader
	w       io.Writer
	Writing bool
}

// NewWriter creates a Codec that serialises state into w.
func NewWriter(w io.Writer) *Codec {
	return &Codec{w: w, Writing: true}
}

// NewReader creates a Codec that deserialises state from r.
func NewReader(r io.Reader) *Codec {
	return &Codec{r: bufio.NewReader(r), Writing: false}
}

// RWUint8 reads or writes a single byte, depending on direction.
func (c *Codec) RWUint8(v *uint8) error {
	if c.Writing {
		_, err := c.w.Write([]byte{*v})
		return err
	}
	var buf [1]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		return err
	}
	*v = buf[0]
	return nil
}

// RWUint16 reads or writes a little-endian 16-bit word.
func (c *Codec) RWUint16(v *uint16) error {
	if c.Writing {
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], *v)
		_, err := c.w.Write(buf[:])
		return err
	}
	var buf [2]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		return err
	}
	*v = binary.LittleEndian.Uint16(buf[:])
	return nil
}

// RWUint32 reads or writes a little-endian 32-bit long.
func (c *Codec) RWUint32(v *uint32) error {
	if c.Writing {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], *v)
		_, err := c.w.Write(buf[:])
		return err
	}
	var buf [4]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		return err
	}
	*v = binary.LittleEndian.Uint32(buf[:])
	return nil
}

// RWUint64 reads or writes a little-endian 64-bit value (used for `cycles`
// and the event log's cycle stamps).
func (c *Codec) RWUint64(v *uint64) error {
	if c.Writing {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], *v)
		_, err := c.w.Write(buf[:])
		return err
	}
	var buf [8]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		return err
	}
	*v = binary.LittleEndian.Uint64(buf[:])
	return nil
}

// RWInt32 reads or writes a little-endian signed 32-bit value (the event
// record's kind/value fields).
func (c *Codec) RWInt32(v *int32) error {
	var u uint32
	if c.Writing {
		u = uint32(*v)
		return c.RWUint32(&u)
	}
	if err := c.RWUint32(&u); err != nil {
		return err
	}
	*v = int32(u)
	return nil
}

// RWBool reads or writes a boolean as a single byte.
func (c *Codec) RWBool(v *bool) error {
	var b uint8
	if c.Writing {
		if *v {
			b = 1
		}
		return c.RWUint8(&b)
	}
	if err := c.RWUint8(&b); err != nil {
		return err
	}
	*v = b != 0
	return nil
}

// RWBuf reads or writes a fixed-size raw byte buffer (SRAM, mapped RAM,
// VRAM).
func (c *Codec) RWBuf(buf []byte) error {
	if c.Writing {
		_, err := c.w.Write(buf)
		return err
	}
	_, err := io.ReadFull(c.r, buf)
	return err
}

// RWString reads or writes a nul-free, line-terminated string (ROM name,
// extended-ROM name, recording name). An empty string round-trips as
// a bare newline.
func (c *Codec) RWString(v *string) error {
	if c.Writing {
		_, err := fmt.Fprintf(c.w, "%s\n", *v)
		return err
	}
	br, ok := c.r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(c.r)
	}
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	*v = line
	return nil
}
