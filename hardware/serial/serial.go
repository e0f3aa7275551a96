// Package serial implements the emulated UART and its bridge to a
// physical adapter: SBUF_TX/RX, SP_STAT/SP_CON, baud-divisor
// arbitration, echo cancellation, slow-init bit-banging, and RX-bit
// sampling. Its RX and echo-cancellation rings are `event.Ring[uint8]`
// wrapped in a mutex for the producer/consumer happens-before guarantee
// between the adapter-reader goroutine and the interpreter goroutine.
package serial

import (
	"sync"

	"github.com/retrodiag/ice196/event"
	"github.com/retrodiag/ice196/statecodec"
)

// Status bits for SP_STAT.
const (
	StatTXE    uint8 = 1 << 0
	StatTI     uint8 = 1 << 1
	StatRI     uint8 = 1 << 2
	StatOE     uint8 = 1 << 3
	StatFE     uint8 = 1 << 4
	StatRPERB8 uint8 = 1 << 5
)

// ConREN is SP_CON's receiver-enable bit; clearing it while sampling is
// allowed drops the UART into RX-bit-bang mode.
const ConREN uint8 = 1 << 3

// BaudPolicy selects how BAUD_RATE writes are honoured.
type BaudPolicy int

const (
	PolicyAuto BaudPolicy = iota
	PolicyAutoPlus
	PolicyForce
)

// autoPlusLadder is the fixed list AUTOPLUS cycles through once sampling
// activity crosses the threshold.
var autoPlusLadder = [3]uint32{9600, 10400, 4800}

const autoPlusSampleThreshold = 100000

// ringCapacity bounds the RX ring; overflow silently drops the incoming
// byte; any protocol worth supporting retransmits.
const ringCapacity = 256

// byteRing wraps `event.Ring[T]` with the mutex the producer/consumer
// pair needs for a happens-before guarantee between the adapter-reader
// goroutine and the interpreter goroutine, and with drop-on-overflow
// semantics for push/prepend rather than event.Ring's own
// overwrite-oldest behaviour.
type byteRing struct {
	mu sync.Mutex
	r  *event.Ring[uint8]
}

func newRing() *byteRing { return &byteRing{r: event.NewRing[uint8](ringCapacity)} }

func (b *byteRing) push(v uint8) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.r.Count() == b.r.Capacity() {
		return false
	}
	b.r.Add(v)
	return true
}

// prepend pushes v onto the head of the ring, so ReadRX returns it next -
// used for the UART's own artificial-echo insertion.
func (b *byteRing) prepend(v uint8) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.r.Count() == b.r.Capacity() {
		return false
	}
	b.r.Prepend(v)
	return true
}

func (b *byteRing) pop() (uint8, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.r.Empty() {
		return 0, false
	}
	return b.r.Consume(), true
}

func (b *byteRing) peek() (uint8, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.r.Empty() {
		return 0, false
	}
	return b.r.Snoop(), true
}

func (b *byteRing) empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.r.Empty()
}

func (b *byteRing) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.r.Count()
}

func (b *byteRing) flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.r.Flush()
}

// slowInitState is the bit-bang receiver's phase while decoding a 5-baud
// wake-up pattern written by software.
type slowInitState int

const (
	siIdle slowInitState = iota
	siStart
	siData
	siStop
)

// Adapter is the transport-layer contract the bridge drives. It is
// defined here, rather than in the adapter package, so that UART can
// depend on it without an import cycle; the adapter package's concrete
// types satisfy it.
type Adapter interface {
	SetBaudDivisor(div uint32)
	SendByte(b uint8)
	Poll()
	SendSlowInit(target uint8)
	SendSlowInitBit(bit uint8) bool
	SlowInitImminent()
	GetRXState() int // 0, 1, or -1 for unknown
	SetRXBitbang(on bool)
	SetCAN(on bool)
	SetL(bit bool)
}

// UART is the emulated serial peripheral plus its bridge state.
type UART struct {
	Adapter Adapter
	Events  *event.Log

	stat uint8
	con  uint8

	baudLo       uint8
	baudHi       bool // true once the low byte has been written, awaiting high byte
	baudDivisor  uint32
	policy       BaudPolicy
	forcedDiv    uint32
	samplesSince uint32
	ladderIndex  int

	rx       *byteRing
	echoRing *byteRing

	// echoEnabled is the sticky "does software want its own TX byte
	// echoed back" flag. It starts true and is only ever cleared by
	// WriteTX's own heuristic below; it is not reset on every write.
	echoEnabled bool
	// readAfterWrite tracks whether the byte from the previous write has
	// been read by software since that write.
	// It starts true, is set true by every RX read, and is cleared at the
	// top of every write once consulted.
	readAfterWrite bool
	// lastTXByte is the byte most recently handed to WriteTX, used to
	// recognise and remove a stale self-echo still sitting unread at the
	// head of the RX ring when echo gets disabled.
	lastTXByte uint8

	tiSetTime, riSetTime uint64

	siState   slowInitState
	siBits    []uint8
	siRXPhase int

	bitbang bool

	// expectEcho is host configuration: the attached adapter's transport
	// loops every transmitted byte back, so the cancellation ring must
	// arm an expectation for each write. Off by default - a clean
	// full-duplex transport delivers nothing back on its own.
	expectEcho bool

	// samplingAllowed gates whether clearing SP_CON's REN bit drops the
	// UART into RX-bit-bang sampling mode. Host configuration, off by
	// default.
	samplingAllowed bool
}

// New creates a UART with no adapter attached and TXE asserted. Echo
// starts enabled and read-after-write starts true.
func New() *UART {
	return &UART{
		rx: newRing(), echoRing: newRing(), stat: StatTXE, policy: PolicyAuto,
		echoEnabled: true, readAfterWrite: true,
	}
}

// SetExpectEcho tells the bridge whether the adapter's transport loops
// transmitted bytes back, arming echo cancellation for every write.
func (u *UART) SetExpectEcho(on bool) {
	u.expectEcho = on
}

// SetSamplingAllowed gates the REN-driven RX-bit-bang sampling mode.
func (u *UART) SetSamplingAllowed(on bool) {
	u.samplingAllowed = on
}

// Bitbang reports whether the UART is in RX-bit-bang sampling mode.
func (u *UART) Bitbang() bool { return u.bitbang }

// SetPolicy configures baud arbitration. forced is only consulted
// under PolicyForce.
func (u *UART) SetPolicy(p BaudPolicy, forced uint32) {
	u.policy = p
	u.forcedDiv = forced
}

// WriteBaudLo handles the first of the two-write BAUD_RATE sequence.
func (u *UART) WriteBaudLo(v uint8) {
	u.baudLo = v
	u.baudHi = true
}

// WriteBaudHi completes the BAUD_RATE sequence; bit 7 is the speed
// selector that doubles the raw divisor.
func (u *UART) WriteBaudHi(v uint8) {
	if !u.baudHi {
		return
	}
	u.baudHi = false
	requested := uint32(u.baudLo) | uint32(v&0x7f)<<8
	if v&0x80 != 0 {
		requested *= 2
	}

	switch u.policy {
	case PolicyForce:
		u.baudDivisor = u.forcedDiv
	default:
		u.baudDivisor = requested
	}
	if u.Adapter != nil {
		u.Adapter.SetBaudDivisor(u.baudDivisor)
	}
}

// BaudDivisor returns the currently active baud divisor.
func (u *UART) BaudDivisor() uint32 { return u.baudDivisor }

// Stat returns SP_STAT after setting TXE once cycles reach ti_set_time and
// RI once cycles reach ri_set_time with a byte in the RX ring. Reading
// clears no bits.
// Whether the ring has a byte waiting depends on the adapter-reader
// goroutine's wall-clock timing, so every snapshot is itself a
// non-deterministic observation that must round-trip through the event
// log on replay.
func (u *UART) Stat(cycles uint64) uint8 {
	if u.Events != nil && u.Events.Replaying() {
		if rec, ok := u.Events.Observe(cycles, event.SerialStat); ok {
			u.stat = uint8(rec.Value)
		}
		return u.stat
	}

	if cycles >= u.tiSetTime {
		u.stat |= StatTXE
	}
	if cycles >= u.riSetTime && !u.rx.empty() {
		u.stat |= StatRI
	}
	if u.Events != nil {
		u.Events.Append(cycles, event.SerialStat, int32(u.stat))
	}
	return u.stat
}

// SetControl writes SP_CON.
func (u *UART) SetControl(v uint8) {
	prev := u.con
	u.con = v
	if u.samplingAllowed && (prev^v)&ConREN != 0 {
		u.SetBitbang(v&ConREN == 0)
	}
}

// Control returns SP_CON.
func (u *UART) Control() uint8 { return u.con }

// WriteTX implements the SBUF_TX write sequence: a sticky echo-enable
// flag that is only turned off when two writes happen back to back with
// no intervening software read (the software is assumed not to want an
// echo under those circumstances), TXE/TI clearing with a scheduled
// re-assert time that is delayed further when echo is off, an
// unconditional flush of whatever is sitting in the RX ring (TX and RX
// share the one physical buffer), and - when echo is still enabled - a
// direct prepend of the written byte onto the now-empty RX ring so
// software reading its own echo sees it first. When the host marked the
// transport as echoing, the echo ring tracks the same byte separately,
// to cancel the adapter's wire loopback of it so it is not delivered a
// second time by DeliverRX.
func (u *UART) WriteTX(cycles uint64, b uint8) {
	if !u.readAfterWrite && u.echoEnabled {
		u.echoEnabled = false
		if head, ok := u.rx.peek(); ok && head == u.lastTXByte {
			u.rx.pop()
		}
		// The cancellation ring's expectation of a wire loopback for that
		// same stale self-echo is now moot too.
		u.echoRing.flush()
	}
	u.readAfterWrite = false

	u.tiSetTime = cycles + uint64(u.baudDivisor)*8*10
	if u.echoEnabled {
		u.riSetTime = u.tiSetTime
	} else {
		u.riSetTime = u.tiSetTime + 7000
	}
	u.lastTXByte = b

	u.rx.flush()
	u.stat &^= StatTXE | StatTI

	if u.Adapter != nil {
		u.Adapter.SendByte(b)
	}
	if u.echoEnabled {
		u.rx.prepend(b)
	}
	if u.expectEcho {
		u.echoRing.push(b)
	}
	u.samplesSince = 0
}

// ReadRX implements the SBUF_RX read: consumes a byte once
// ri_set_time has passed, or returns 0xFF with RI clear otherwise. Replay
// observation is consulted first when a replay log is attached.
func (u *UART) ReadRX(cycles uint64) uint8 {
	if u.Events != nil && u.Events.Replaying() {
		if rec, ok := u.Events.Observe(cycles, event.SerialRX); ok {
			u.readAfterWrite = true
			u.stat &^= StatRI
			return uint8(rec.Value)
		}
		u.stat &^= StatRI
		return 0xff
	}

	if cycles < u.riSetTime || u.rx.empty() {
		u.stat &^= StatRI
		return 0xff
	}
	b, _ := u.rx.pop()
	u.stat &^= StatRI
	u.readAfterWrite = true
	if u.Events != nil {
		u.Events.Append(cycles, event.SerialRX, int32(b))
	}
	return b
}

// DeliverRX is called by the adapter-reader goroutine when a byte
// arrives from the physical transport. Echo cancellation is applied
// first: a byte matching the head of the echo ring is popped and
// suppressed rather than delivered.
func (u *UART) DeliverRX(b uint8) {
	if head, ok := u.echoRing.peek(); ok && head == b {
		u.echoRing.pop()
		return
	}
	u.rx.push(b)
}

// GetRXState implements the RX-bit sampling path: a real adapter's
// sampled bit is preferred; otherwise the next RX-ring byte is played
// back as a framed 10-bit pattern at the current baud divisor. The
// sampled bit is itself a non-deterministic observation (it reflects the
// physical line at the moment of the call) and round-trips through the
// event log on replay, keyed on the interpreter's current cycle count.
func (u *UART) GetRXState(cycles uint64) int {
	if u.Events != nil && u.Events.Replaying() {
		if rec, ok := u.Events.Observe(cycles, event.SerialRXBit); ok {
			return int(rec.Value)
		}
		return unknownBit
	}

	u.samplesSince++
	if div := u.maybeAdvanceAutoPlus(); div != u.baudDivisor {
		u.baudDivisor = div
		if u.Adapter != nil {
			u.Adapter.SetBaudDivisor(div)
		}
	}
	var bit int
	if u.Adapter != nil {
		if b := u.Adapter.GetRXState(); b != unknownBit {
			bit = b
		} else {
			bit = u.synthesizeRXBit()
		}
	} else {
		bit = u.synthesizeRXBit()
	}
	if u.Events != nil {
		u.Events.Append(cycles, event.SerialRXBit, int32(bit))
	}
	return bit
}

const unknownBit = -1

// synthesizeRXBit plays back the head of the RX ring as a start-8-stop
// framed pattern, one bit per call, never consuming the byte outright
// until its frame is exhausted.
func (u *UART) synthesizeRXBit() int {
	b, ok := u.rx.peek()
	if !ok {
		return 1 // idle line is marked
	}
	frame := []uint8{0} // start bit
	for i := 0; i < 8; i++ {
		frame = append(frame, (b>>uint(i))&1)
	}
	frame = append(frame, 1) // stop bit

	if u.siRXPhase >= len(frame) {
		u.siRXPhase = 0
		u.rx.pop()
		return 1
	}
	bit := frame[u.siRXPhase]
	u.siRXPhase++
	return int(bit)
}

// SetBitbang enters or leaves RX-bit-bang sampling mode (software
// disabling REN to do manual baud detection).
func (u *UART) SetBitbang(on bool) {
	u.bitbang = on
	if u.Adapter != nil {
		u.Adapter.SetRXBitbang(on)
	}
	if !on {
		u.siState = siIdle
		u.siBits = nil
	}
}

// FeedSlowInitBit consumes one bit of a software bit-banged slow-init
// pattern (start, 8 data lsb-first, stop); at the stop bit the decoded
// target address is delivered to the adapter.
func (u *UART) FeedSlowInitBit(bit uint8) {
	switch u.siState {
	case siIdle:
		if bit == 0 {
			u.siState = siData
			u.siBits = nil
		}
	case siData:
		u.siBits = append(u.siBits, bit)
		if len(u.siBits) == 8 {
			u.siState = siStop
		}
	case siStop:
		u.siState = siIdle
		var target uint8
		for i, b := range u.siBits {
			target |= b << uint(i)
		}
		if u.Adapter != nil {
			u.Adapter.SendSlowInit(target)
		}
	}
}

// maybeAdvanceAutoPlus cycles the AUTOPLUS ladder once more than
// autoPlusSampleThreshold bit samples have been taken. The sample count
// restarts at every SBUF write and after each ladder step, not at a
// slow-init, and the ladder steps while sampling is still going on.
func (u *UART) maybeAdvanceAutoPlus() uint32 {
	if u.policy != PolicyAutoPlus {
		return u.baudDivisor
	}
	if u.samplesSince <= autoPlusSampleThreshold {
		return u.baudDivisor
	}
	u.samplesSince = 0
	u.ladderIndex = (u.ladderIndex + 1) % len(autoPlusLadder)
	return autoPlusLadder[u.ladderIndex]
}

// Poll drains any adapter-side work once per instruction batch.
func (u *UART) Poll() {
	if u.Adapter != nil {
		u.Adapter.Poll()
	}
}

// RWState saves or restores the UART's software-visible and bridge
// state. The echo ring is not replayed across a save/load boundary - it
// is transport-session state, not machine state.
func (u *UART) RWState(c *statecodec.Codec) error {
	for _, v := range []*uint8{&u.stat, &u.con, &u.baudLo} {
		if err := c.RWUint8(v); err != nil {
			return err
		}
	}
	if err := c.RWBool(&u.baudHi); err != nil {
		return err
	}
	if err := c.RWUint32(&u.baudDivisor); err != nil {
		return err
	}
	for _, v := range []*uint64{&u.tiSetTime, &u.riSetTime} {
		if err := c.RWUint64(v); err != nil {
			return err
		}
	}
	if err := c.RWBool(&u.echoEnabled); err != nil {
		return err
	}
	if err := c.RWBool(&u.readAfterWrite); err != nil {
		return err
	}
	return c.RWUint8(&u.lastTXByte)
}
