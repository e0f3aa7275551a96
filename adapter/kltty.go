package adapter

import (
	"sync"
	"time"

	"github.com/pkg/term"

	"github.com/retrodiag/ice196/hardware/serial"
	"github.com/retrodiag/ice196/logger"
)

// readTimeout bounds the KLUSB adapter-reader goroutine's blocking read so
// that it can observe the quit flag promptly on shutdown. KLTTY opens its
// tty without a read timeout.
const readTimeout = 100 * time.Millisecond

// KLTTY is the passthrough adapter over a platform tty: a K-line
// interface wired straight through a serial port, the simplest of the
// five concrete adapters.
type KLTTY struct {
	uart *serial.UART
	tty  *term.Term

	mu   sync.Mutex
	quit bool

	can  bool
	lBit bool
}

// OpenKLTTY opens device at the given baud and starts the adapter-reader
// goroutine feeding bytes into uart.
func OpenKLTTY(device string, baud int, uart *serial.UART) (*KLTTY, error) {
	t, err := term.Open(device, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, err
	}
	a := &KLTTY{uart: uart, tty: t}
	go a.readLoop()
	return a, nil
}

func (a *KLTTY) readLoop() {
	buf := make([]byte, 1)
	for {
		a.mu.Lock()
		quit := a.quit
		a.mu.Unlock()
		if quit {
			return
		}
		n, err := a.tty.Read(buf)
		if err != nil {
			continue
		}
		if n > 0 {
			a.uart.DeliverRX(buf[0])
		}
	}
}

func (a *KLTTY) SetBaudDivisor(div uint32) {
	speed := 500000 / int(div+1)
	if speed <= 0 {
		speed = 9600
	}
	if err := a.tty.SetSpeed(speed); err != nil {
		logger.Logf("kl-tty", "set speed %d: %s", speed, err)
	}
}

func (a *KLTTY) SendByte(b uint8) {
	if _, err := a.tty.Write([]byte{b}); err != nil {
		logger.Logf("kl-tty", "write: %s", err)
	}
}

func (a *KLTTY) Poll() {}

func (a *KLTTY) SendSlowInit(target uint8) {
	// A bare tty cannot toggle line levels directly; the 5-baud wake-up is
	// realised as an ordinary write of the target byte at the tty's current
	// speed, not at 5 baud.
	a.SendByte(target)
}

func (a *KLTTY) SendSlowInitBit(bit uint8) bool { return false }

func (a *KLTTY) SlowInitImminent() {}

func (a *KLTTY) GetRXState() int { return RXUnknown }

func (a *KLTTY) SetRXBitbang(on bool) {}

func (a *KLTTY) SetCAN(on bool) { a.can = on }

func (a *KLTTY) SetL(bit bool) { a.lBit = bit }

// Close stops the reader goroutine and releases the tty.
func (a *KLTTY) Close() error {
	a.mu.Lock()
	a.quit = true
	a.mu.Unlock()
	return a.tty.Close()
}
