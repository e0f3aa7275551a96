package cpu

import "github.com/retrodiag/ice196/coreerr"

// opMisc covers the 0xF0-0xFC no-operand instructions: return, flag
// pushes/pops, the full register-bank save/restore, and the carry/
// interrupt/VT single-bit toggles.
func (c *CPU) opMisc(opcode uint8) error {
	switch opcode {
	case 0xf0: // ret
		target, err := c.pop16()
		if err != nil {
			return err
		}
		c.PC = target
		c.cycle(9)
		return nil

	case 0xf2: // pushf
		if err := c.push16(uint16(c.PSW)); err != nil {
			return err
		}
		c.cycle(6)
		return nil

	case 0xf3: // popf
		v, err := c.pop16()
		if err != nil {
			return err
		}
		c.PSW = PSW(v)
		c.cycle(6)
		return nil

	case 0xf5: // pusha - push the low register bank (0-0x1f)
		for addr := uint16(0x1e); ; addr -= 2 {
			v, err := c.readWord(addr)
			if err != nil {
				return err
			}
			if err := c.push16(v); err != nil {
				return err
			}
			if addr == 0 {
				break
			}
		}
		c.cycle(24)
		return nil

	case 0xf6: // popa
		for addr := uint16(0); addr <= 0x1e; addr += 2 {
			v, err := c.pop16()
			if err != nil {
				return err
			}
			if err := c.writeWord(addr, v); err != nil {
				return err
			}
		}
		c.cycle(24)
		return nil

	case 0xf8: // clrc
		c.PSW.Clear(FlagC)
		c.cycle(2)
		return nil

	case 0xf9: // setc
		c.PSW.Set(FlagC)
		c.cycle(2)
		return nil

	case 0xfa: // di
		c.PSW.Clear(FlagINTE)
		c.cycle(2)
		return nil

	case 0xfb: // ei
		c.PSW.Set(FlagINTE)
		c.cycle(2)
		return nil

	case 0xfc: // clrvt
		c.PSW.Clear(FlagVT)
		c.cycle(2)
		return nil

	default:
		return coreerr.Errorf(coreerr.UnimplementedOpcode, opcode, c.Opc)
	}
}
