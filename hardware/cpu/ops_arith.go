package cpu

import "github.com/retrodiag/ice196/coreerr"

// opWord3 handles the 0x40-0x4f three-operand word class: AND/ADD/SUB/
// MULU, c8,b8,a8 and c8,b8,imm16 addressing only (indirect/indexed
// variants are outside what the shipped ROMs are known to exercise and
// are left unimplemented).
func (c *CPU) opWord3(opcode uint8) error {
	switch opcode {
	case 0x40, 0x41: // and c8, b8, a8/imm16
		a, err := c.fetchOperand16(opcode == 0x41)
		if err != nil {
			return err
		}
		baddr, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readWord(uint16(baddr))
		if err != nil {
			return err
		}
		res := a & b
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		if err := c.writeWord(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = logicalFlags16(c.PSW, res)
		c.cycle(5)
		return nil

	case 0x44, 0x45: // add c8, b8, a8/imm16
		a, err := c.fetchOperand16(opcode == 0x45)
		if err != nil {
			return err
		}
		baddr, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readWord(uint16(baddr))
		if err != nil {
			return err
		}
		res := b + a
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		if err := c.writeWord(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = addFlags16(c.PSW, b, a, res)
		c.cycle(5)
		return nil

	case 0x48: // sub c8, b8, a8
		a, err := c.readOperandDirect16()
		if err != nil {
			return err
		}
		baddr, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readWord(uint16(baddr))
		if err != nil {
			return err
		}
		res := b - a
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		if err := c.writeWord(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = subFlags16(c.PSW, b, a, res)
		c.cycle(5)
		return nil

	case 0x4c, 0x4d: // mulu c8, b8, a8/imm16
		a, err := c.fetchOperand16(opcode == 0x4d)
		if err != nil {
			return err
		}
		baddr, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readWord(uint16(baddr))
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		if err := c.writeLong(uint16(dest), uint32(b)*uint32(a)); err != nil {
			return err
		}
		c.cycle(14)
		return nil

	default:
		return coreerr.Errorf(coreerr.UnimplementedOpcode, opcode, c.Opc)
	}
}

// opByte3 is opWord3's byte-width twin (0x50-0x5f). Flags are computed
// from the two source operands and the result, as in the word forms.
func (c *CPU) opByte3(opcode uint8) error {
	switch opcode {
	case 0x50, 0x51: // andb c8, b8, a8/imm8
		a, err := c.fetchOperand8(opcode == 0x51)
		if err != nil {
			return err
		}
		baddr, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readByte(uint16(baddr))
		if err != nil {
			return err
		}
		res := a & b
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		if err := c.writeByte(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = logicalFlags8(c.PSW, res)
		c.cycle(5)
		return nil

	case 0x54, 0x55: // addb c8, b8, a8/imm8
		a, err := c.fetchOperand8(opcode == 0x55)
		if err != nil {
			return err
		}
		baddr, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readByte(uint16(baddr))
		if err != nil {
			return err
		}
		res := b + a
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		if err := c.writeByte(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = addFlags8(c.PSW, b, a, res)
		c.cycle(5)
		return nil

	case 0x58: // subb c8, b8, a8
		a, err := c.readOperandDirect8()
		if err != nil {
			return err
		}
		baddr, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readByte(uint16(baddr))
		if err != nil {
			return err
		}
		res := b - a
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		if err := c.writeByte(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = subFlags8(c.PSW, b, a, res)
		c.cycle(5)
		return nil

	case 0x5c, 0x5d: // mulub c8, b8, a8/imm8
		a, err := c.fetchOperand8(opcode == 0x5d)
		if err != nil {
			return err
		}
		baddr, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readByte(uint16(baddr))
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		if err := c.writeWord(uint16(dest), uint16(b)*uint16(a)); err != nil {
			return err
		}
		c.cycle(10)
		return nil

	default:
		return coreerr.Errorf(coreerr.UnimplementedOpcode, opcode, c.Opc)
	}
}

// opWord2 handles the 0x60-0x6f two-operand word class (AND/ADD/SUB/MULU
// with the accumulator as both a source and the destination).
func (c *CPU) opWord2(opcode uint8) error {
	switch opcode {
	case 0x60, 0x61: // and b8, a8/imm16
		a, err := c.fetchOperand16(opcode == 0x61)
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readWord(uint16(dest))
		if err != nil {
			return err
		}
		res := a & b
		if err := c.writeWord(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = logicalFlags16(c.PSW, res)
		c.cycle(4)
		return nil

	case 0x64, 0x65: // add b8, a8/imm16
		a, err := c.fetchOperand16(opcode == 0x65)
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readWord(uint16(dest))
		if err != nil {
			return err
		}
		res := b + a
		if err := c.writeWord(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = addFlags16(c.PSW, b, a, res)
		c.cycle(4)
		return nil

	case 0x68, 0x69: // sub b8, a8/imm16
		a, err := c.fetchOperand16(opcode == 0x69)
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readWord(uint16(dest))
		if err != nil {
			return err
		}
		res := b - a
		if err := c.writeWord(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = subFlags16(c.PSW, b, a, res)
		c.cycle(4)
		return nil

	case 0x6c, 0x6d: // mulu b8, a8/imm16
		a, err := c.fetchOperand16(opcode == 0x6d)
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readWord(uint16(dest))
		if err != nil {
			return err
		}
		if err := c.writeLong(uint16(dest), uint32(a)*uint32(b)); err != nil {
			return err
		}
		c.cycle(14)
		return nil

	default:
		return coreerr.Errorf(coreerr.UnimplementedOpcode, opcode, c.Opc)
	}
}

// opByte2 is opWord2's byte-width twin (0x70-0x7f).
func (c *CPU) opByte2(opcode uint8) error {
	switch opcode {
	case 0x70, 0x71: // andb b8, a8/imm8
		a, err := c.fetchOperand8(opcode == 0x71)
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readByte(uint16(dest))
		if err != nil {
			return err
		}
		res := a & b
		if err := c.writeByte(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = logicalFlags8(c.PSW, res)
		c.cycle(4)
		return nil

	case 0x74, 0x75: // addb b8, a8/imm8
		a, err := c.fetchOperand8(opcode == 0x75)
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readByte(uint16(dest))
		if err != nil {
			return err
		}
		res := b + a
		if err := c.writeByte(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = addFlags8(c.PSW, b, a, res)
		c.cycle(4)
		return nil

	case 0x78, 0x79: // subb b8, a8/imm8
		a, err := c.fetchOperand8(opcode == 0x79)
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readByte(uint16(dest))
		if err != nil {
			return err
		}
		res := b - a
		if err := c.writeByte(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = subFlags8(c.PSW, b, a, res)
		c.cycle(4)
		return nil

	case 0x7c, 0x7d: // mulub b8, a8/imm8
		a, err := c.fetchOperand8(opcode == 0x7d)
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readByte(uint16(dest))
		if err != nil {
			return err
		}
		if err := c.writeWord(uint16(dest), uint16(a)*uint16(b)); err != nil {
			return err
		}
		c.cycle(10)
		return nil

	default:
		return coreerr.Errorf(coreerr.UnimplementedOpcode, opcode, c.Opc)
	}
}

// opWord2b handles 0x80-0x8f: OR/XOR/CMP/DIVU.
func (c *CPU) opWord2b(opcode uint8) error {
	switch opcode {
	case 0x80, 0x81: // or b8, a8/imm16
		a, err := c.fetchOperand16(opcode == 0x81)
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readWord(uint16(dest))
		if err != nil {
			return err
		}
		res := a | b
		if err := c.writeWord(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = logicalFlags16(c.PSW, res)
		c.cycle(4)
		return nil

	case 0x84: // xor b8, a8
		a, err := c.readOperandDirect16()
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readWord(uint16(dest))
		if err != nil {
			return err
		}
		res := a ^ b
		if err := c.writeWord(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = logicalFlags16(c.PSW, res)
		c.cycle(4)
		return nil

	case 0x88, 0x89: // cmp b8, a8/imm16
		a, err := c.fetchOperand16(opcode == 0x89)
		if err != nil {
			return err
		}
		baddr, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readWord(uint16(baddr))
		if err != nil {
			return err
		}
		res := b - a
		c.PSW = subFlags16(c.PSW, b, a, res)
		c.cycle(4)
		return nil

	case 0x8c, 0x8d: // divu b8, a8/imm16
		divisor, err := c.fetchOperand16(opcode == 0x8d)
		if err != nil {
			return err
		}
		target, err := c.fetch()
		if err != nil {
			return err
		}
		dividend, err := c.readLong(uint16(target))
		if err != nil {
			return err
		}
		if divisor == 0 {
			divisor = 1
		}
		if err := c.writeWord(uint16(target), uint16(dividend/uint32(divisor))); err != nil {
			return err
		}
		if err := c.writeWord(uint16(target)+2, uint16(dividend%uint32(divisor))); err != nil {
			return err
		}
		c.PSW.Clear(FlagV)
		c.cycle(24)
		return nil

	default:
		return coreerr.Errorf(coreerr.UnimplementedOpcode, opcode, c.Opc)
	}
}

// opByte2b handles 0x90-0x9f: ORB/XORB/CMPB/DIVUB.
func (c *CPU) opByte2b(opcode uint8) error {
	switch opcode {
	case 0x90, 0x91: // orb b8, a8/imm8
		a, err := c.fetchOperand8(opcode == 0x91)
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readByte(uint16(dest))
		if err != nil {
			return err
		}
		res := a | b
		if err := c.writeByte(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = logicalFlags8(c.PSW, res)
		c.cycle(4)
		return nil

	case 0x94, 0x95: // xorb b8, a8/imm8
		a, err := c.fetchOperand8(opcode == 0x95)
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readByte(uint16(dest))
		if err != nil {
			return err
		}
		res := a ^ b
		if err := c.writeByte(uint16(dest), res); err != nil {
			return err
		}
		c.PSW = logicalFlags8(c.PSW, res)
		c.cycle(4)
		return nil

	case 0x98, 0x99: // cmpb b8, a8/imm8
		a, err := c.fetchOperand8(opcode == 0x99)
		if err != nil {
			return err
		}
		baddr, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readByte(uint16(baddr))
		if err != nil {
			return err
		}
		res := b - a
		c.PSW = subFlags8(c.PSW, b, a, res)
		c.cycle(4)
		return nil

	case 0x9d: // divub b8, imm8
		divisor, err := c.fetch()
		if err != nil {
			return err
		}
		target, err := c.fetch()
		if err != nil {
			return err
		}
		dividend, err := c.readWord(uint16(target))
		if err != nil {
			return err
		}
		if divisor == 0 {
			divisor = 1
		}
		if err := c.writeByte(uint16(target), uint8(dividend/uint16(divisor))); err != nil {
			return err
		}
		if err := c.writeByte(uint16(target)+1, uint8(dividend%uint16(divisor))); err != nil {
			return err
		}
		c.cycle(16)
		return nil

	default:
		return coreerr.Errorf(coreerr.UnimplementedOpcode, opcode, c.Opc)
	}
}

// fetchOperand16 reads a word operand: an address byte dereferenced
// through memory when immediate is false, or a little-endian immediate
// word when true.
func (c *CPU) fetchOperand16(immediate bool) (uint16, error) {
	if immediate {
		return c.fetch16()
	}
	return c.readOperandDirect16()
}

func (c *CPU) readOperandDirect16() (uint16, error) {
	addr, err := c.fetch()
	if err != nil {
		return 0, err
	}
	return c.readWord(uint16(addr))
}

func (c *CPU) fetchOperand8(immediate bool) (uint8, error) {
	if immediate {
		return c.fetch()
	}
	return c.readOperandDirect8()
}

func (c *CPU) readOperandDirect8() (uint8, error) {
	addr, err := c.fetch()
	if err != nil {
		return 0, err
	}
	return c.readByte(uint16(addr))
}
