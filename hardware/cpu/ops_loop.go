package cpu

import "github.com/retrodiag/ice196/coreerr"

// opLoopJump covers the 0xE0-0xEF class: decrement-and-jump loops, the
// indirect and long jumps/calls, and the PTS enable toggles.
func (c *CPU) opLoopJump(opcode uint8) error {
	switch opcode {
	case 0xe0: // djnz a8, rel8 (byte counter)
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
		v--
		if err := c.writeByte(uint16(addr), v); err != nil {
			return err
		}
		c.cycle(8)
		if v != 0 {
			c.PC = uint16(int32(c.PC) + int32(int8(rel)))
		}
		return nil

	case 0xe1: // djnzw a8, rel8 (word counter)
		addr, err := c.fetch()
		if err != nil {
			return err
		}
		rel, err := c.fetch()
		if err != nil {
			return err
		}
		v, err := c.readWord(uint16(addr))
		if err != nil {
			return err
		}
		v--
		if err := c.writeWord(uint16(addr), v); err != nil {
			return err
		}
		c.cycle(8)
		if v != 0 {
			c.PC = uint16(int32(c.PC) + int32(int8(rel)))
		}
		return nil

	case 0xe3: // br [a8] - indirect jump through a word pointer register
		addr, err := c.fetch()
		if err != nil {
			return err
		}
		target, err := c.readWord(uint16(addr))
		if err != nil {
			return err
		}
		c.PC = target
		c.cycle(9)
		return nil

	case 0xe7: // ljmp rel16
		rel, err := c.fetch16()
		if err != nil {
			return err
		}
		c.PC = uint16(int32(c.PC) + int32(int16(rel)))
		c.cycle(7)
		return nil

	case 0xec: // dpts
		c.PSW.Clear(FlagPTSE)
		c.cycle(4)
		return nil

	case 0xed: // epts
		c.PSW.Set(FlagPTSE)
		c.cycle(4)
		return nil

	case 0xef: // lcall rel16
		rel, err := c.fetch16()
		if err != nil {
			return err
		}
		ret := c.PC
		target := uint16(int32(c.PC) + int32(int16(rel)))
		if err := c.push16(ret); err != nil {
			return err
		}
		c.PC = target
		c.cycle(13)
		return nil

	default:
		return coreerr.Errorf(coreerr.UnimplementedOpcode, opcode, c.Opc)
	}
}
