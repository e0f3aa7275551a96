package cpu

import "github.com/retrodiag/ice196/coreerr"

// opStoreStack covers the 0xC0-0xCC class: word/byte store, the 32-bit
// long compare, and the stack operations.
func (c *CPU) opStoreStack(opcode uint8) error {
	switch opcode {
	case 0xc0: // st b8, a8 (word store: a8 := b8)
		src, err := c.fetch()
		if err != nil {
			return err
		}
		v, err := c.readWord(uint16(src))
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		if err := c.writeWord(uint16(dest), v); err != nil {
			return err
		}
		c.cycle(4)
		return nil

	case 0xc1: // stb b8, a8 (byte store)
		src, err := c.fetch()
		if err != nil {
			return err
		}
		v, err := c.readByte(uint16(src))
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		if err := c.writeByte(uint16(dest), v); err != nil {
			return err
		}
		c.cycle(4)
		return nil

	case 0xc5: // cmpl b8, a8 (32-bit compare)
		baddr, err := c.fetch()
		if err != nil {
			return err
		}
		b, err := c.readLong(uint16(baddr))
		if err != nil {
			return err
		}
		aaddr, err := c.fetch()
		if err != nil {
			return err
		}
		a, err := c.readLong(uint16(aaddr))
		if err != nil {
			return err
		}
		c.PSW = cmplFlags(c.PSW, b, a, b-a)
		c.cycle(8)
		return nil

	case 0xc8: // push a8
		addr, err := c.fetch()
		if err != nil {
			return err
		}
		v, err := c.readWord(uint16(addr))
		if err != nil {
			return err
		}
		if err := c.push16(v); err != nil {
			return err
		}
		c.cycle(8)
		return nil

	case 0xc9: // push imm16
		v, err := c.fetch16()
		if err != nil {
			return err
		}
		if err := c.push16(v); err != nil {
			return err
		}
		c.cycle(8)
		return nil

	case 0xca: // pop a8
		v, err := c.pop16()
		if err != nil {
			return err
		}
		addr, err := c.fetch()
		if err != nil {
			return err
		}
		if err := c.writeWord(uint16(addr), v); err != nil {
			return err
		}
		c.cycle(8)
		return nil

	case 0xcc: // bmovi b8, a8 - indexed block move of a single word, used
		// by the shipped ROMs for short table copies; full indirect
		// auto-increment addressing is not implemented.
		src, err := c.fetch()
		if err != nil {
			return err
		}
		v, err := c.readWord(uint16(src))
		if err != nil {
			return err
		}
		dest, err := c.fetch()
		if err != nil {
			return err
		}
		if err := c.writeWord(uint16(dest), v); err != nil {
			return err
		}
		c.cycle(8)
		return nil

	default:
		return coreerr.Errorf(coreerr.UnimplementedOpcode, opcode, c.Opc)
	}
}
