package adapter

import (
	"sync"
	"time"
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
	goserial "github.com/daedaluz/goserial"

	"github.com/retrodiag/ice196/hardware/serial"
	"github.com/retrodiag/ice196/logger"
)

// Linux TIOCMGET, the modem-status ioctl used to sample the raw line
// level for GetRXState when the chip's UART framing can't be trusted
// during a slow-init handshake.
const tiocmget = uintptr(0x5415)

// modemLineRI mirrors TIOCM_RI, repurposed by some KL-USB chips to
// report the current K-line level during bit-bang mode.
const modemLineRI = 0x080

// KLUSB is the USB-chip adapter: a goserial port for the ordinary byte
// path, plus direct break-line control for chips that support a real
// hardware 5-baud wake-up instead of the byte-rate approximation KLTTY
// falls back to.
type KLUSB struct {
	uart *serial.UART
	port *goserial.Port

	mu   sync.Mutex
	quit bool

	can  bool
	lBit bool
}

// OpenKLUSB opens device through goserial and starts the adapter-reader
// goroutine.
func OpenKLUSB(device string, baud int, uart *serial.UART) (*KLUSB, error) {
	opts := goserial.NewOptions().SetReadTimeout(readTimeout)
	port, err := goserial.Open(device, opts)
	if err != nil {
		return nil, err
	}
	a := &KLUSB{uart: uart, port: port}
	a.setSpeed(baud)
	go a.readLoop()
	return a, nil
}

func (a *KLUSB) setSpeed(baud int) error {
	attrs, err := a.port.GetAttr2()
	if err != nil {
		return err
	}
	attrs.MakeRaw()
	attrs.SetCustomSpeed(uint32(baud))
	return a.port.SetAttr2(goserial.TCSAFLUSH, attrs)
}

func (a *KLUSB) readLoop() {
	buf := make([]byte, 1)
	for {
		a.mu.Lock()
		quit := a.quit
		a.mu.Unlock()
		if quit {
			return
		}
		n, err := a.port.Read(buf)
		if err != nil {
			continue
		}
		if n > 0 {
			a.uart.DeliverRX(buf[0])
		}
	}
}

func (a *KLUSB) SetBaudDivisor(div uint32) {
	speed := 500000 / int(div+1)
	if speed <= 0 {
		speed = 9600
	}
	if err := a.setSpeed(speed); err != nil {
		logger.Logf("kl-usb", "set baud %d: %s", speed, err)
	}
}

func (a *KLUSB) SendByte(b uint8) {
	if _, err := a.port.Write([]byte{b}); err != nil {
		logger.Logf("kl-usb", "write: %s", err)
	}
}

func (a *KLUSB) Poll() {}

// SendSlowInit toggles the break line directly to bit-bang the 5-baud
// wake-up pattern: start bit, eight data bits LSB first, stop bit, each
// held for 200 ms, one bit period at 5 baud.
func (a *KLUSB) SendSlowInit(target uint8) {
	const bitTime = 200 * time.Millisecond
	a.SendSlowInitBit(0)
	time.Sleep(bitTime)
	for i := 0; i < 8; i++ {
		a.SendSlowInitBit((target >> uint(i)) & 1)
		time.Sleep(bitTime)
	}
	a.SendSlowInitBit(1)
	time.Sleep(bitTime)
}

// SendSlowInitBit drives one bit of the wake-up pattern using the
// break-control ioctl (idle/mark is break-off, space is break-on).
func (a *KLUSB) SendSlowInitBit(bit uint8) bool {
	var err error
	if bit == 0 {
		err = a.port.SetBreak()
	} else {
		err = a.port.ClearBreak()
	}
	if err != nil {
		logger.Logf("kl-usb", "slow-init bit: %s", err)
		return false
	}
	return true
}

func (a *KLUSB) SlowInitImminent() {}

// GetRXState samples the modem-status line directly via TIOCMGET,
// falling back to RXUnknown if the chip doesn't report it.
func (a *KLUSB) GetRXState() int {
	var status int32
	if err := ioctl.Ioctl(uintptr(a.port.Fd()), tiocmget, uintptr(unsafe.Pointer(&status))); err != nil {
		return RXUnknown
	}
	if status&modemLineRI != 0 {
		return 1
	}
	return 0
}

func (a *KLUSB) SetRXBitbang(on bool) {}

func (a *KLUSB) SetCAN(on bool) { a.can = on }

func (a *KLUSB) SetL(bit bool) { a.lBit = bit }

// Close stops the reader goroutine and releases the port.
func (a *KLUSB) Close() error {
	a.mu.Lock()
	a.quit = true
	a.mu.Unlock()
	return a.port.Close()
}
