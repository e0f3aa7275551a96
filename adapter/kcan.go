package adapter

import (
	"bufio"
	"io"
	"sync"

	"github.com/retrodiag/ice196/hardware/serial"
	"github.com/retrodiag/ice196/logger"
)

// K+CAN command codes.
const (
	kcanCmdInit     = 0xfa
	kcanCmdFilter   = 0xfb
	kcanCmdSend     = 0xfc
	kcanReplyOK     = 0x50
	kcanReplyErr    = 0x53
	kcanReplyKLByte = 0x60
	kcanReplyCANMsg = 0x70
)

// KCAN drives the K+CAN combination cable: a single binary, length-
// prefixed command protocol that switches between a K-line byte relay
// and a CAN-frame relay depending on SetCAN - two personalities behind
// one adapter.
type KCAN struct {
	uart *serial.UART
	rw   io.ReadWriter
	r    *bufio.Reader

	mu   sync.Mutex
	quit bool

	can  bool
	lBit bool
}

// OpenKCAN wraps an already-open transport in the K+CAN framing and
// starts the adapter-reader goroutine.
func OpenKCAN(rw io.ReadWriter, uart *serial.UART) (*KCAN, error) {
	a := &KCAN{uart: uart, rw: rw, r: bufio.NewReader(rw)}
	if err := a.writeFrame(kcanCmdInit, nil); err != nil {
		return nil, err
	}
	go a.readLoop()
	return a, nil
}

// writeFrame emits {cmd, length, payload...}. The length field is a
// single byte: a longer payload is neither rejected nor split, and only
// the low 8 bits of its length are sent.
func (a *KCAN) writeFrame(cmd byte, payload []byte) error {
	frame := make([]byte, 0, len(payload)+2)
	frame = append(frame, cmd, byte(len(payload)))
	frame = append(frame, payload...)
	_, err := a.rw.Write(frame)
	return err
}

func (a *KCAN) readFrame() (cmd byte, payload []byte, err error) {
	cmd, err = a.r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	n, err := a.r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	payload = make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(a.r, payload); err != nil {
			return 0, nil, err
		}
	}
	return cmd, payload, nil
}

func (a *KCAN) readLoop() {
	for {
		a.mu.Lock()
		quit := a.quit
		a.mu.Unlock()
		if quit {
			return
		}
		cmd, payload, err := a.readFrame()
		if err != nil {
			continue
		}
		switch cmd {
		case kcanReplyKLByte:
			for _, b := range payload {
				a.uart.DeliverRX(b)
			}
		case kcanReplyCANMsg:
			// CAN payload delivery is diagnostic-layer work above the
			// byte-level UART; only the K-line personality feeds DeliverRX.
		case kcanReplyErr:
			logger.Log("kcan", "device reported error")
		}
	}
}

func (a *KCAN) SetBaudDivisor(div uint32) {
	speed := uint32(500000) / (div + 1)
	payload := []byte{byte(speed >> 8), byte(speed)}
	if err := a.writeFrame(kcanCmdInit, payload); err != nil {
		logger.Logf("kcan", "set baud: %s", err)
	}
}

func (a *KCAN) SendByte(b uint8) {
	if err := a.writeFrame(kcanCmdSend, []byte{b}); err != nil {
		logger.Logf("kcan", "send byte: %s", err)
	}
}

func (a *KCAN) Poll() {}

func (a *KCAN) SendSlowInit(target uint8) {
	if err := a.writeFrame(kcanCmdInit, []byte{target}); err != nil {
		logger.Logf("kcan", "slow init: %s", err)
	}
}

func (a *KCAN) SendSlowInitBit(bit uint8) bool { return false }

func (a *KCAN) SlowInitImminent() {}

func (a *KCAN) GetRXState() int { return RXUnknown }

func (a *KCAN) SetRXBitbang(on bool) {}

// SetCAN switches the cable's active personality between K-line relay
// and CAN-frame relay via the filter command's mode byte.
func (a *KCAN) SetCAN(on bool) {
	a.can = on
	mode := byte(0)
	if on {
		mode = 1
	}
	if err := a.writeFrame(kcanCmdFilter, []byte{mode}); err != nil {
		logger.Logf("kcan", "set mode: %s", err)
	}
}

func (a *KCAN) SetL(bit bool) { a.lBit = bit }

func (a *KCAN) Close() error {
	a.mu.Lock()
	a.quit = true
	a.mu.Unlock()
	if c, ok := a.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
