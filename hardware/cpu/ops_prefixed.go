package cpu

import "github.com/retrodiag/ice196/coreerr"

// opPrefixed handles the 0xFE-prefixed signed multiply/divide forms. The
// sub-opcode byte reuses the unsigned DIVU encodings: 0x8c/0x8d (direct
// and immediate) divide signed operands, while 0x8f (indexed) stays
// unsigned; a zero divisor is substituted with 1, matching the unsigned
// form.
func (c *CPU) opPrefixed() error {
	sub, err := c.fetch()
	if err != nil {
		return err
	}

	switch sub {
	case 0x8c, 0x8d: // div b8, a8/imm16 (signed)
		divisor, err := c.fetchOperand16(sub == 0x8d)
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
		q := int32(int32(dividend)) / int32(int16(divisor))
		r := int32(int32(dividend)) % int32(int16(divisor))
		if err := c.writeWord(uint16(target), uint16(q)); err != nil {
			return err
		}
		if err := c.writeWord(uint16(target)+2, uint16(r)); err != nil {
			return err
		}
		c.PSW.Clear(FlagV)
		c.cycle(25)
		return nil

	case 0x8f: // divu b8, [a8] (indexed form, still unsigned)
		divisor, err := c.readOperandDirect16()
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
		c.cycle(25)
		return nil

	default:
		return coreerr.Errorf(coreerr.UnimplementedOpcode, sub, c.Opc)
	}
}
