package adapter

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/retrodiag/ice196/hardware/serial"
	"github.com/retrodiag/ice196/logger"
)

// elm327PromptTimeout bounds how long ELM327 waits for the '>' prompt
// before giving up on a command; adapter reads must not block the
// interpreter indefinitely.
const elm327PromptTimeout = 10 * elmTick

const elmTick = 50 * time.Millisecond

// ELM327 drives an ELM327-compatible interpreter chip over its AT
// command text protocol rather than passing raw K-line bytes straight
// through, translating the emulator's byte-level requests into the
// chip's line-oriented command set.
type ELM327 struct {
	uart *serial.UART
	rw   io.ReadWriter
	r    *bufio.Reader

	mu   sync.Mutex
	quit bool

	can  bool
	lBit bool

	initialized bool
}

// OpenELM327 wraps an already-open transport (tty, USB-serial, whatever
// exposes io.ReadWriter) in the ELM327 command protocol and starts the
// adapter-reader goroutine.
func OpenELM327(rw io.ReadWriter, uart *serial.UART) (*ELM327, error) {
	a := &ELM327{uart: uart, rw: rw, r: bufio.NewReader(rw)}
	if err := a.reset(); err != nil {
		return nil, err
	}
	go a.readLoop()
	return a, nil
}

func (a *ELM327) reset() error {
	_, err := a.command("ATZ")
	if err != nil {
		return err
	}
	if _, err := a.command("ATE0"); err != nil {
		return err
	}
	a.initialized = true
	return nil
}

// command writes line, appended with CR, and reads until the '>' prompt
// or elm327PromptTimeout elapses.
func (a *ELM327) command(line string) (string, error) {
	if _, err := io.WriteString(a.rw, line+"\r"); err != nil {
		return "", err
	}
	deadline := time.Now().Add(elm327PromptTimeout)
	var sb strings.Builder
	for time.Now().Before(deadline) {
		b, err := a.r.ReadByte()
		if err != nil {
			continue
		}
		if b == '>' {
			return sb.String(), nil
		}
		sb.WriteByte(b)
	}
	return "", fmt.Errorf("elm327: no prompt after %q", line)
}

// readLoop reads no data: ELM327 replies are read by command(). The loop
// only idles until Close sets the quit flag.
func (a *ELM327) readLoop() {
	for {
		a.mu.Lock()
		quit := a.quit
		a.mu.Unlock()
		if quit {
			return
		}
		time.Sleep(elmTick)
	}
}

func (a *ELM327) SetBaudDivisor(div uint32) {
	speed := 500000 / int(div+1)
	if speed <= 0 {
		speed = 9600
	}
	if _, err := a.command(fmt.Sprintf("ATBRD%02X", speed/1000)); err != nil {
		logger.Logf("elm327", "set baud: %s", err)
	}
}

// SendByte forwards a single byte as a two-hex-digit request; ELM327
// speaks in whole OBD requests, so the emulator's byte-at-a-time model
// is approximated by issuing each byte as its own one-byte message.
func (a *ELM327) SendByte(b uint8) {
	resp, err := a.command(fmt.Sprintf("%02X", b))
	if err != nil {
		logger.Logf("elm327", "send byte: %s", err)
		return
	}
	for _, tok := range strings.Fields(resp) {
		var v uint8
		if _, err := fmt.Sscanf(tok, "%02X", &v); err == nil {
			a.uart.DeliverRX(v)
		}
	}
}

func (a *ELM327) Poll() {}

func (a *ELM327) SendSlowInit(target uint8) {
	resp, err := a.command(fmt.Sprintf("ATSI%02X", target))
	if err != nil {
		logger.Logf("elm327", "slow init: %s", err)
		return
	}
	for _, tok := range strings.Fields(resp) {
		var v uint8
		if _, err := fmt.Sscanf(tok, "%02X", &v); err == nil {
			a.uart.DeliverRX(v)
		}
	}
}

func (a *ELM327) SendSlowInitBit(bit uint8) bool { return false }

func (a *ELM327) SlowInitImminent() {}

func (a *ELM327) GetRXState() int { return RXUnknown }

func (a *ELM327) SetRXBitbang(on bool) {}

func (a *ELM327) SetCAN(on bool) {
	a.can = on
	cmd := "ATSP0"
	if on {
		cmd = "ATSP6"
	}
	if _, err := a.command(cmd); err != nil {
		logger.Logf("elm327", "set protocol: %s", err)
	}
}

func (a *ELM327) SetL(bit bool) { a.lBit = bit }

func (a *ELM327) Close() error {
	a.mu.Lock()
	a.quit = true
	a.mu.Unlock()
	if c, ok := a.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
