// Package machine is the root of the emulation: the type that owns
// every sub-system, wires the SFR address space to the peripherals that
// back it, and drives the run loop.
package machine

import (
	"time"

	"github.com/retrodiag/ice196/event"
	"github.com/retrodiag/ice196/hardware/cpu"
	"github.com/retrodiag/ice196/hardware/eeprom"
	"github.com/retrodiag/ice196/hardware/hsio"
	"github.com/retrodiag/ice196/hardware/ioreg"
	"github.com/retrodiag/ice196/hardware/keypad"
	"github.com/retrodiag/ice196/hardware/lcd"
	"github.com/retrodiag/ice196/hardware/memory"
	"github.com/retrodiag/ice196/hardware/rom"
	"github.com/retrodiag/ice196/hardware/serial"
	"github.com/retrodiag/ice196/hardware/timers"
	"github.com/retrodiag/ice196/logger"
	"github.com/retrodiag/ice196/telemetry"
)

// Pacing constants: the cadence, measured in state-times (cycles),
// at which the run loop re-anchors wall-clock time, refreshes the LCD
// framebuffer, and drains the host command queue / samples the keypad.
const (
	SyncInterval      = 65536
	LCDSyncInterval   = 524288
	DrainInterval     = 131072
	StoppedPollPeriod = 100 * time.Millisecond
	reanchorThreshold = 50 * time.Millisecond
)

// CommandKind identifies a host-originated action queued for the run
// loop to apply at the next drain tick (the interpreter
// goroutine is the only writer of machine state).
type CommandKind int

const (
	CmdKeyDown CommandKind = iota
	CmdKeyUp
	CmdStop
	CmdResume
	CmdReset
	CmdQuit
)

// Command is one queued host action.
type Command struct {
	Kind     CommandKind
	Row, Col int
}

// Machine ties the interpreter, memory, SFR dispatch table, and every
// peripheral together, and owns the pacing loop.
type Machine struct {
	CPU    *cpu.CPU
	Mem    *memory.Memory
	IO     *ioreg.File
	Serial *serial.UART

	Events *event.Log

	// ADSource supplies AD_RESULT on an AD_COMMAND write. The scanner's
	// analogue front end (battery voltage, sensor inputs) is not
	// modelled; nil leaves AD_RESULT unchanged, and a fixed hook lets a
	// host or a test drive specific readings.
	ADSource func(cmd uint8) uint16

	romName, extROMName string
	recordingName       string

	latches latches

	commands chan Command

	pacingFactor float64
	telemetry    *telemetry.Server

	triggerPC  uint16
	hasTrigger bool

	cyclesAtAnchor uint64
	wallAtAnchor   time.Time
	reanchors      uint64
}

// New wires a complete machine around the given ROM images (extROM may be
// nil). Peripherals are constructed fresh; callers restoring a saved
// state call LoadState afterwards to overwrite them.
func New(romImage, extROM *rom.Image) *Machine {
	mem := &memory.Memory{ROM: romImage, ExtROM: extROM}
	io := ioreg.NewFile()
	mem.SetIO(io)

	c := cpu.New(mem, io)
	c.Timers = &timers.Timers{}
	c.HSIO = &hsio.HSIO{}
	c.Keypad = keypad.New()
	c.LCD = lcd.New()
	c.EEPROM = &eeprom.EEPROM{}

	m := &Machine{
		CPU:          c,
		Mem:          mem,
		IO:           io,
		Serial:       serial.New(),
		commands:     make(chan Command, 64),
		pacingFactor: 1.0,
	}

	if romImage != nil {
		m.romName = romImage.Name
	}
	if extROM != nil {
		m.extROMName = extROM.Name
	}

	m.wireIO()
	if err := mem.RefreshPointers(); err != nil {
		logger.Logf("machine", "initial RefreshPointers: %s", err)
	}
	return m
}

// SetPacingFactor scales the run loop's wall-clock target (the -v
// flag): 1.0 is real time, values above 1 run faster than real time.
func (m *Machine) SetPacingFactor(f float64) {
	if f <= 0 {
		f = 1.0
	}
	m.pacingFactor = f
}

// AttachTelemetry wires a drift/rate dashboard to the pacing loop. Nil is
// valid and disables reporting.
func (m *Machine) AttachTelemetry(s *telemetry.Server) {
	m.telemetry = s
}

// EnableRecording switches the machine into record mode: every
// non-deterministic observation any peripheral makes from this point on
// is appended to a fresh event log (a machine is
// either recording, replaying, or neither, never both).
func (m *Machine) EnableRecording(name string) {
	log := event.NewRecordingLog()
	m.attachEvents(log)
	m.recordingName = name
}

// AttachReplay switches the machine into replay mode using a previously
// recorded log.
func (m *Machine) AttachReplay(log *event.Log, name string) {
	m.attachEvents(log)
	m.recordingName = name
}

// DisableRecording detaches the event log; subsequent peripheral reads
// fall back to their live (non-deterministic) behaviour.
func (m *Machine) DisableRecording() {
	m.attachEvents(nil)
	m.recordingName = ""
}

func (m *Machine) attachEvents(log *event.Log) {
	m.Events = log
	m.CPU.Events = log
	m.CPU.EEPROM.Events = log
	m.Serial.Events = log
}

// Recording reports the active recording/replay name, or "" if neither is
// active.
func (m *Machine) Recording() string { return m.recordingName }

// Replaying reports whether the attached event log is a replay cursor.
func (m *Machine) Replaying() bool {
	return m.Events != nil && m.Events.Replaying()
}

// AttachAdapter wires a transport adapter to the UART bridge.
func (m *Machine) AttachAdapter(a serial.Adapter) {
	m.Serial.Adapter = a
}

// LoadEEPROM replaces the EEPROM's contents (the `<rom>.eep` sidecar).
func (m *Machine) LoadEEPROM(e *eeprom.EEPROM) {
	events := m.CPU.EEPROM.Events
	m.CPU.EEPROM = e
	m.CPU.EEPROM.Events = events
}

// SetTrigger arms a debug trigger: the machine stops the first time an
// instruction begins at pc.
func (m *Machine) SetTrigger(pc uint16) {
	m.triggerPC = pc
	m.hasTrigger = true
}

// Step executes exactly one instruction and applies the fatal-error
// escalation policy to whatever error it returns. While the UART is in
// RX-bit-bang mode the line is sampled once per instruction, so replay
// sees the identical observation cadence.
func (m *Machine) Step() error {
	if m.hasTrigger && m.CPU.PC == m.triggerPC {
		logger.Logf("trigger", "pc=%#04x cycles=%d", m.CPU.PC, m.CPU.Cycles)
		m.CPU.Stopped = true
		m.hasTrigger = false
	}
	err := m.CPU.Step()
	if err != nil {
		m.CPU.HandleFatal(err)
		logger.Logf("cpu", "%s", err)
	}
	if m.Serial.Bitbang() {
		bit := m.Serial.GetRXState(m.CPU.Cycles)
		m.latches.ioport1 &^= 0x40
		if bit != 0 {
			m.latches.ioport1 |= 0x40
		}
	}
	return err
}

// QueueKeyDown/QueueKeyUp queue a host keypress for application at the
// next drain tick (keypad sampling happens on the DrainInterval
// cadence, not synchronously with the host).
func (m *Machine) QueueKeyDown(row, col int) {
	m.enqueue(Command{Kind: CmdKeyDown, Row: row, Col: col})
}

func (m *Machine) QueueKeyUp(row, col int) {
	m.enqueue(Command{Kind: CmdKeyUp, Row: row, Col: col})
}

// QueueStop/QueueResume/QueueReset/QueueQuit queue the host commands;
// the command queue is the only channel through which another goroutine
// may influence the interpreter's state.
func (m *Machine) QueueStop()   { m.enqueue(Command{Kind: CmdStop}) }
func (m *Machine) QueueResume() { m.enqueue(Command{Kind: CmdResume}) }
func (m *Machine) QueueReset()  { m.enqueue(Command{Kind: CmdReset}) }
func (m *Machine) QueueQuit()   { m.enqueue(Command{Kind: CmdQuit}) }

func (m *Machine) enqueue(c Command) {
	select {
	case m.commands <- c:
	default:
		logger.Log("machine", "command queue full, dropping command")
	}
}

// Drain applies every queued host command without running the pacing
// loop, for callers that step the machine manually (tests, the debugger
// front end).
func (m *Machine) Drain() (quit bool) {
	return m.drainCommands()
}

// drainCommands applies every command queued since the last drain tick,
// recording keypad transitions through the event log exactly as a sampled
// peripheral observation: keypad state is host-driven, not a pure
// function of cycles, so a replay must play the identical sequence back
// rather than re-deriving it.
func (m *Machine) drainCommands() (quit bool) {
	for {
		select {
		case cmd := <-m.commands:
			switch cmd.Kind {
			case CmdKeyDown:
				m.applyKey(cmd.Row, cmd.Col, true)
			case CmdKeyUp:
				m.applyKey(cmd.Row, cmd.Col, false)
			case CmdStop:
				m.CPU.Stopped = true
			case CmdResume:
				m.CPU.Stopped = false
			case CmdReset:
				m.CPU.Reset()
			case CmdQuit:
				return true
			}
		default:
			return false
		}
	}
}

func (m *Machine) applyKey(row, col int, down bool) {
	kind := event.KeyUp
	if down {
		kind = event.KeyDown
	}
	value := int32(row<<8 | col)

	if m.Events != nil && m.Events.Replaying() {
		rec, ok := m.Events.Observe(m.CPU.Cycles, kind)
		if !ok {
			return
		}
		row, col = int(rec.Value>>8), int(rec.Value&0xff)
	} else if m.Events != nil {
		m.Events.Append(m.CPU.Cycles, kind, value)
	}

	if down {
		m.CPU.Keypad.KeyDown(row, col)
	} else {
		m.CPU.Keypad.KeyUp(row, col)
	}
}

// RunResult reports why Run returned.
type RunResult int

const (
	RunQuit RunResult = iota
	RunCycleLimit
	RunError
)

// Run drives the pacing loop until a queued quit
// command arrives or maxCycles is reached (0 means unlimited). Every
// Step error is classified and, if fatal, recovered by resetting;
// Run itself never aborts because of one.
//
// Every SyncInterval state-times it re-anchors wall-clock pacing (sleeping
// if running ahead of the target rate, and re-anchoring without sleeping
// if it has fallen more than 50ms behind); every LCDSyncInterval it
// invokes onLCDSync (nil is fine - the caller may not have a display
// attached); every DrainInterval it drains the host command queue. While
// Stopped it sleeps in StoppedPollPeriod increments, still draining
// commands so a host can un-stop or quit.
func (m *Machine) Run(maxCycles uint64, onLCDSync func()) RunResult {
	m.cyclesAtAnchor = m.CPU.Cycles
	m.wallAtAnchor = time.Now()

	var lastLCDSync, lastDrain uint64

	for {
		if m.CPU.Stopped {
			if m.drainCommands() {
				return RunQuit
			}
			time.Sleep(StoppedPollPeriod)
			continue
		}

		if maxCycles != 0 && m.CPU.Cycles >= maxCycles {
			return RunCycleLimit
		}

		// Step applies the fatal-error escalation policy itself (reset
		// and keep going); there is no unrecoverable Step error in this
		// design, so the loop does not need to inspect it further here.
		_ = m.Step()

		if m.CPU.Cycles-lastDrain >= DrainInterval {
			lastDrain = m.CPU.Cycles
			m.Serial.Poll()
			if m.drainCommands() {
				return RunQuit
			}
		}

		if onLCDSync != nil && m.CPU.Cycles-lastLCDSync >= LCDSyncInterval {
			lastLCDSync = m.CPU.Cycles
			onLCDSync()
		}

		if m.CPU.Cycles-m.cyclesAtAnchor >= SyncInterval {
			m.sync()
		}
	}
}

// sync implements the wall-clock pacing step: the target duration is
// derived from the number of state-times elapsed since the last anchor,
// scaled by pacingFactor; running ahead sleeps off the difference, and
// falling more than reanchorThreshold behind gives up on catching up and
// re-anchors instead of bursting forward.
func (m *Machine) sync() {
	elapsedCycles := m.CPU.Cycles - m.cyclesAtAnchor
	target := time.Duration(float64(elapsedCycles) / m.pacingFactor * float64(time.Microsecond))
	actual := time.Since(m.wallAtAnchor)
	drift := actual - target

	if drift < 0 {
		time.Sleep(-drift)
		actual = time.Since(m.wallAtAnchor)
		drift = actual - target
	} else if drift > reanchorThreshold {
		m.reanchors++
		logger.Logf("machine", "pacing %dms behind, re-anchoring", drift.Milliseconds())
	}

	if m.telemetry != nil {
		m.telemetry.Record(telemetry.Sample{
			Cycles:    m.CPU.Cycles,
			TargetMS:  target.Milliseconds(),
			ActualMS:  actual.Milliseconds(),
			DriftMS:   drift.Milliseconds(),
			Reanchors: m.reanchors,
		})
	}

	m.cyclesAtAnchor = m.CPU.Cycles
	m.wallAtAnchor = time.Now()
}
