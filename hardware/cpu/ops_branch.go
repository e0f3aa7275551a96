package cpu

import "github.com/retrodiag/ice196/coreerr"

// opSjmp implements the 0x20-0x27 short relative jump: an 11-bit signed
// displacement is split across the low 3 opcode bits and a fetched byte,
// sign-extended via a shift-left-then-arithmetic-shift-right trick. A
// target equal to the jump's own opcode address is a hard fault - the
// CPU would spin forever - and resets the machine rather than looping.
func (c *CPU) opSjmp(opcode uint8) error {
	lo, err := c.fetch()
	if err != nil {
		return err
	}
	raw := uint16(lo) | uint16(opcode&0x7)<<8
	rel := int16(raw<<5) >> 5
	target := uint16(int32(c.PC) + int32(rel))
	if target == c.PC-2 {
		c.Reset()
		return coreerr.Errorf(coreerr.EndlessLoop, c.Opc)
	}
	c.PC = target
	c.cycle(7)
	return nil
}

// opScall is opSjmp's call counterpart: same displacement encoding, but
// the return address is pushed before the jump.
func (c *CPU) opScall(opcode uint8) error {
	lo, err := c.fetch()
	if err != nil {
		return err
	}
	raw := uint16(lo) | uint16(opcode&0x7)<<8
	rel := int16(raw<<5) >> 5
	ret := c.PC
	target := uint16(int32(c.PC) + int32(rel))
	if err := c.push16(ret); err != nil {
		return err
	}
	c.PC = target
	c.cycle(13)
	return nil
}

// opJbc jumps when the addressed bit is clear (0x30-0x37, bit index in
// the low 3 opcode bits).
func (c *CPU) opJbc(opcode uint8) error {
	bit := opcode & 0x7
	addr, err := c.fetch()
	if err != nil {
		return err
	}
	rel, err := c.fetch()
	if err != nil {
		return err
	}
	v, err := c.readByte(uint16(addr))
	if err != nil {
		return err
	}
	c.cycle(8)
	if v&(1<<bit) == 0 {
		c.PC = uint16(int32(c.PC) + int32(int8(rel)))
	}
	return nil
}

// opJbs jumps when the addressed bit is set (0x38-0x3f).
func (c *CPU) opJbs(opcode uint8) error {
	bit := opcode & 0x7
	addr, err := c.fetch()
	if err != nil {
		return err
	}
	rel, err := c.fetch()
	if err != nil {
		return err
	}
	v, err := c.readByte(uint16(addr))
	if err != nil {
		return err
	}
	c.cycle(8)
	if v&(1<<bit) != 0 {
		c.PC = uint16(int32(c.PC) + int32(int8(rel)))
	}
	return nil
}
