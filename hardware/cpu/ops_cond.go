package cpu

// opCondJump implements the 0xD0-0xDF conditional relative jumps. Every
// member of this class takes a single signed rel8 displacement and
// tests a fixed combination of PSW bits; only the condition differs.
func (c *CPU) opCondJump(opcode uint8) error {
	rel, err := c.fetch()
	if err != nil {
		return err
	}

	taken := false
	switch opcode {
	case 0xd0: // jnst - sticky trap not set
		taken = !c.PSW.Has(FlagST)
	case 0xd1: // jnh - not higher: C=0 or Z=1
		taken = !c.PSW.Has(FlagC) || c.PSW.Has(FlagZ)
	case 0xd2: // jgt - greater than: Z=0 and N==V
		taken = !c.PSW.Has(FlagZ) && c.PSW.Has(FlagN) == c.PSW.Has(FlagV)
	case 0xd3: // jnc
		taken = !c.PSW.Has(FlagC)
	case 0xd4: // jge - N==V
		taken = c.PSW.Has(FlagN) == c.PSW.Has(FlagV)
	case 0xd5: // jne
		taken = !c.PSW.Has(FlagZ)
	case 0xd6: // jnvt
		taken = !c.PSW.Has(FlagVT)
	case 0xd7: // jnv
		taken = !c.PSW.Has(FlagV)
	case 0xd8: // jst
		taken = c.PSW.Has(FlagST)
	case 0xd9: // jh - higher: C=1 and Z=0
		taken = c.PSW.Has(FlagC) && !c.PSW.Has(FlagZ)
	case 0xda: // jle - Z=1 or N!=V
		taken = c.PSW.Has(FlagZ) || c.PSW.Has(FlagN) != c.PSW.Has(FlagV)
	case 0xdb: // jc
		taken = c.PSW.Has(FlagC)
	case 0xdc: // jlt - N!=V
		taken = c.PSW.Has(FlagN) != c.PSW.Has(FlagV)
	case 0xdd: // je
		taken = c.PSW.Has(FlagZ)
	case 0xde: // jvt
		taken = c.PSW.Has(FlagVT)
	case 0xdf: // jv
		taken = c.PSW.Has(FlagV)
	}

	if taken {
		c.PC = uint16(int32(c.PC) + int32(int8(rel)))
		c.cycle(7)
	} else {
		c.cycle(4)
	}
	return nil
}
