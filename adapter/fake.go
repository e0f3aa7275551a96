package adapter

import "github.com/retrodiag/ice196/hardware/serial"

// Fake is the deterministic adapter used for tests and offline demos: it
// answers the standard ISO 9141-2 slow-init handshake (0x55, two keyword
// bytes, then the inverse of the second keyword) without touching any
// real transport.
type Fake struct {
	uart *serial.UART

	baudDivisor uint32
	can         bool
	lBit        bool
	bitbang     bool

	pendingInit bool
	awaitingAck bool
	target      uint8

	keywords [2]uint8
}

// NewFake creates a fake adapter bound to uart, with the keyword bytes
// the ISO 9141-2 script hands back after a slow-init.
func NewFake(uart *serial.UART, keyword1, keyword2 uint8) *Fake {
	return &Fake{uart: uart, keywords: [2]uint8{keyword1, keyword2}}
}

func (f *Fake) SetBaudDivisor(div uint32) { f.baudDivisor = div }

func (f *Fake) SendByte(b uint8) {
	// The scripted ECU only ever answers the handshake's final ack: the
	// inverted ECU address closes it out; any other byte is ignored.
	if f.awaitingAck && b == ^f.target {
		f.awaitingAck = false
	}
}

func (f *Fake) Poll() {
	if !f.pendingInit {
		return
	}
	f.pendingInit = false
	f.uart.DeliverRX(0x55)
	f.uart.DeliverRX(f.keywords[0])
	f.uart.DeliverRX(f.keywords[1])
	f.uart.DeliverRX(^f.keywords[1])
	f.awaitingAck = true
}

func (f *Fake) SendSlowInit(target uint8) {
	f.target = target
	f.pendingInit = true
}

func (f *Fake) SendSlowInitBit(bit uint8) bool { return false }

func (f *Fake) SlowInitImminent() {}

func (f *Fake) GetRXState() int { return RXUnknown }

func (f *Fake) SetRXBitbang(on bool) { f.bitbang = on }

func (f *Fake) SetCAN(on bool) { f.can = on }

func (f *Fake) SetL(bit bool) { f.lBit = bit }
