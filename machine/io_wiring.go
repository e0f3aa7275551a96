package machine

import (
	"github.com/retrodiag/ice196/hardware/ioreg"
)

// latches holds the handful of SFRs that are plain "read back whatever
// was last written" storage cells - the IOC/IOS/
// IOPORT latches that the core does not otherwise interpret, the
// comm-line selector, and the diag/beeper latches that do not drive any
// other peripheral directly.
type latches struct {
	ioc0, ioc1, ioc2, ioc3 uint8
	ios0, ios1, ios2       uint8
	ioport0, ioport1       uint8
	commLine               uint8
	beeperLED              uint8
	hsiTimeLo, hsiTimeHi   uint8
	hsoTimeLo, hsoTimeHi   uint8
	irqVectorPos           int
	diagPinsValue          uint8
	ioport2Value           uint8
}

// registerLatch installs a plain read-back-last-write cell at addr.
func registerLatch(io *ioreg.File, addr uint16, cell *uint8) {
	io.Register(addr, func() uint8 { return *cell }, func(v uint8) { *cell = v })
}

// registerLatchAllWindows installs the same cell at addr across every
// valid WSR window (0, 1, 15). The board's windowed scanner latches do
// not document distinct per-window contents, so all three windows share
// one cell.
func registerLatchAllWindows(io *ioreg.File, addr uint16, cell *uint8) {
	for _, w := range ioreg.ValidWindows {
		io.RegisterWindowed(addr, w, func() uint8 { return *cell }, func(v uint8) { *cell = v })
	}
}

// wireIO installs every recognised SFR handler, dispatching to
// the owning peripheral. It is called once from New, after every
// component has been constructed.
func (m *Machine) wireIO() {
	io := m.IO
	c := m.CPU

	io.BankWrite = func() {
		_ = m.Mem.RefreshPointers()
	}
	io.RegisterBankSelector(ioreg.AddrCodeLo, func() uint8 { return m.Mem.CodeLo }, func(v uint8) { m.Mem.CodeLo = v })
	io.RegisterBankSelector(ioreg.AddrCodeHi, func() uint8 { return m.Mem.CodeHi }, func(v uint8) { m.Mem.CodeHi = v })
	io.RegisterBankSelector(ioreg.AddrDataLo, func() uint8 { return m.Mem.DataLo }, func(v uint8) { m.Mem.DataLo = v })
	io.RegisterBankSelector(ioreg.AddrDataHi, func() uint8 { return m.Mem.DataHi }, func(v uint8) { m.Mem.DataHi = v })

	io.Register(ioreg.AddrIntMask, func() uint8 { return c.IntMask }, func(v uint8) { c.IntMask = v })
	io.Register(ioreg.AddrIntMask1, func() uint8 { return c.IntMask1 }, func(v uint8) { c.IntMask1 = v })

	// A/D: AD_COMMAND write kicks off a "conversion"; this core has no
	// analogue front end to model, so ADSource (a test
	// or host hook, nil by default) supplies the result. Absent a hook the
	// result stays at whatever it was last set to.
	io.Register(ioreg.AddrADCommand, func() uint8 { return c.ADCommand }, func(v uint8) {
		c.ADCommand = v
		if m.ADSource != nil {
			c.ADResult = m.ADSource(v)
		}
	})
	io.Register(ioreg.AddrADResultLo, func() uint8 { return uint8(c.ADResult) }, func(uint8) {})
	io.Register(ioreg.AddrADResultHi, func() uint8 { return uint8(c.ADResult >> 8) }, func(uint8) {})

	// HSI_MODE drives the HSIO unit's input-capture mode; HSI_TIME has no
	// input-capture model behind it (no shipped ROM in scope samples an
	// HSI channel), so it is a plain latch.
	io.Register(ioreg.AddrHSIMode, func() uint8 { return c.HSIO.Mode() }, func(v uint8) { c.HSIO.SetMode(v) })
	registerLatch(io, ioreg.AddrHSITimeLo, &m.latches.hsiTimeLo)
	registerLatch(io, ioreg.AddrHSITimeHi, &m.latches.hsiTimeHi)

	// HSO_TIME/HSO_COMMAND: writing HSO_COMMAND arms one of the four SWT
	// channels (selected by its low two bits) with whatever 16-bit
	// compare value was most recently staged in HSO_TIME.
	io.Register(ioreg.AddrHSOTimeLo, func() uint8 { return m.latches.hsoTimeLo }, func(v uint8) { m.latches.hsoTimeLo = v })
	io.Register(ioreg.AddrHSOTimeHi, func() uint8 { return m.latches.hsoTimeHi }, func(v uint8) { m.latches.hsoTimeHi = v })
	io.Register(ioreg.AddrHSOCmd, func() uint8 { return 0 }, func(cmd uint8) {
		channel := int(cmd & 0x03)
		compare := uint16(m.latches.hsoTimeLo) | uint16(m.latches.hsoTimeHi)<<8
		c.HSIO.SetTime(channel, compare)
		c.HSIO.SetCommand(channel, cmd)
	})

	// SBUF: RX on read, TX on write. Window-insensitive; AddrSBUF is in
	// the always-visible low block.
	io.Register(ioreg.AddrSBUF, func() uint8 { return m.Serial.ReadRX(c.Cycles) }, func(v uint8) { m.Serial.WriteTX(c.Cycles, v) })

	// TIMER1/TIMER2.
	io.Register(ioreg.AddrTimer1Lo, func() uint8 { return uint8(c.Timers.ReadTimer1(c.Cycles)) }, func(v uint8) { c.Timers.WriteTimer1Lo(c.Cycles, v) })
	io.Register(ioreg.AddrTimer1Hi, func() uint8 { return uint8(c.Timers.ReadTimer1(c.Cycles) >> 8) }, func(v uint8) { c.Timers.WriteTimer1Hi(c.Cycles, v) })
	io.Register(ioreg.AddrTimer2Lo, func() uint8 { return uint8(c.Timers.ReadTimer2()) }, func(v uint8) { c.Timers.WriteTimer2Lo(v) })
	io.Register(ioreg.AddrTimer2Hi, func() uint8 { return uint8(c.Timers.ReadTimer2() >> 8) }, func(v uint8) { c.Timers.WriteTimer2Hi(v) })

	// window-insensitive low-block IOC0/IOC1/IOPORT1 latches.
	registerLatch(io, ioreg.AddrIOC0, &m.latches.ioc0)
	registerLatch(io, ioreg.AddrIOC1, &m.latches.ioc1)
	io.Register(ioreg.AddrIOPort1, func() uint8 { return m.latches.ioport1 }, func(v uint8) {
		m.latches.ioport1 = v
		m.onIOPort1Write(v)
	})

	// scanner-board latches, window-insensitive.
	io.Register(ioreg.AddrKeypadData, func() uint8 { return c.Keypad.GetLine() }, func(uint8) {})
	io.Register(ioreg.AddrKeypadRow, func() uint8 { return c.Keypad.RowSelect() }, func(v uint8) { c.Keypad.SetRowSelect(v) })

	// LCD port: AddrLCDPort is the command/status side (a0=1), AddrLCDPortAlt
	// the data side (a0=0).
	io.Register(ioreg.AddrLCDPort, func() uint8 { return c.LCD.ReadStatus() }, func(v uint8) { c.LCD.WriteCommand(v) })
	io.Register(ioreg.AddrLCDPortAlt, func() uint8 { return c.LCD.ReadData() }, func(v uint8) { c.LCD.WriteData(v) })

	io.Register(ioreg.AddrIRQVector, func() uint8 {
		v := ioreg.InterruptVectorTable[m.latches.irqVectorPos%len(ioreg.InterruptVectorTable)]
		m.latches.irqVectorPos++
		return v
	}, func(uint8) { m.latches.irqVectorPos = 0 })

	io.Register(ioreg.AddrCommLine, func() uint8 { return m.latches.commLine }, func(v uint8) { m.latches.commLine = v })

	// AddrDiagPins: bit 0 is the fast-init TXD drive line, bit-banged for
	// the 5-baud slow-init wake-up; bit 1 is the Mitsubishi-style L
	// line, forwarded straight to the adapter's SetL.
	io.Register(ioreg.AddrDiagPins, func() uint8 { return m.latches.diagPins() }, func(v uint8) { m.onDiagPinsWrite(v) })

	registerLatch(io, ioreg.AddrBeeperLED, &m.latches.beeperLED)

	// windowed registers - SP_CON/SP_STAT/BAUD_RATE and the remaining
	// IOC/IOS/IOPORT/PTSSEL/PTSSRV latches.
	for _, w := range ioreg.ValidWindows {
		io.RegisterWindowed(ioreg.AddrSPCon, w, func() uint8 { return m.Serial.Control() }, func(v uint8) { m.Serial.SetControl(v) })
		io.RegisterWindowed(ioreg.AddrSPStat, w, func() uint8 { return m.Serial.Stat(c.Cycles) }, func(uint8) {})
		io.RegisterWindowed(ioreg.AddrBaudRateLo, w, func() uint8 { return 0 }, func(v uint8) { m.Serial.WriteBaudLo(v) })
		io.RegisterWindowed(ioreg.AddrBaudRateHi, w, func() uint8 { return 0 }, func(v uint8) { m.Serial.WriteBaudHi(v) })
	}
	registerLatchAllWindows(io, ioreg.AddrIOC2, &m.latches.ioc2)
	registerLatchAllWindows(io, ioreg.AddrIOC3, &m.latches.ioc3)
	registerLatchAllWindows(io, ioreg.AddrIOS0, &m.latches.ios0)
	registerLatchAllWindows(io, ioreg.AddrIOS1, &m.latches.ios1)
	registerLatchAllWindows(io, ioreg.AddrIOS2, &m.latches.ios2)
	registerLatchAllWindows(io, ioreg.AddrIOPort0, &m.latches.ioport0)

	for _, w := range ioreg.ValidWindows {
		io.RegisterWindowed(ioreg.AddrIOPort2, w, func() uint8 { return m.ioport2() }, func(v uint8) { m.onIOPort2Write(v) })
		io.RegisterWindowed(ioreg.AddrPTSSelLo, w, func() uint8 { return uint8(c.PTSSel) }, func(v uint8) { c.PTSSel = (c.PTSSel &^ 0xff) | uint16(v) })
		io.RegisterWindowed(ioreg.AddrPTSSelHi, w, func() uint8 { return uint8(c.PTSSel >> 8) }, func(v uint8) { c.PTSSel = (c.PTSSel & 0xff) | uint16(v)<<8 })
		io.RegisterWindowed(ioreg.AddrPTSSrvLo, w, func() uint8 { return uint8(c.PTSSrv) }, func(v uint8) { c.PTSSrv = (c.PTSSrv &^ 0xff) | uint16(v) })
		io.RegisterWindowed(ioreg.AddrPTSSrvHi, w, func() uint8 { return uint8(c.PTSSrv >> 8) }, func(v uint8) { c.PTSSrv = (c.PTSSrv & 0xff) | uint16(v)<<8 })
	}
}

// diagPins returns the last-written diag-pin byte; the physical lines are
// output-only from the interpreter's side, so a read just echoes it.
func (l *latches) diagPins() uint8 { return l.diagPinsValue }

// onDiagPinsWrite extracts the TXD bit-bang bit and the L-line bit from
// an AddrDiagPins write and forwards them to the serial bridge and the
// adapter.
func (m *Machine) onDiagPinsWrite(v uint8) {
	prev := m.latches.diagPinsValue
	m.latches.diagPinsValue = v
	if changed := prev ^ v; changed&0x01 != 0 {
		m.Serial.FeedSlowInitBit(v & 1)
	}
	if m.Serial.Adapter != nil {
		m.Serial.Adapter.SetL(v&0x02 != 0)
	}
}

// ioport2 reads back the last-written IOPORT2 latch with the EEPROM's
// sampled data-out bit folded into bit 3, the convention this core uses
// to route the 3-wire EEPROM protocol through a single I/O port.
func (m *Machine) ioport2() uint8 {
	v := m.latches.ioport2Value &^ 0x08
	if m.CPU.EEPROM.ReadData(m.CPU.Cycles) {
		v |= 0x08
	}
	return v
}

// onIOPort2Write decodes the EEPROM's enable/clock/data bits (0/1/2) from
// an IOPORT2 write and feeds the bit-banger.
func (m *Machine) onIOPort2Write(v uint8) {
	m.latches.ioport2Value = v
	m.CPU.EEPROM.ToggleInputs(v&0x01 != 0, v&0x02 != 0, v&0x04 != 0)
}

// onIOPort1Write is a hook point for a future board revision's use of
// IOPORT1; this core does not drive anything from it beyond the plain
// latch (see registerLatch above).
func (m *Machine) onIOPort1Write(uint8) {}
