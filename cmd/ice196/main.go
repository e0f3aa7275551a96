// Command ice196 is the headless entry point: it parses the command
// line, loads a ROM, wires an adapter, and drives the machine until it
// quits or hits its cycle limit.
package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/term"
	"golang.org/x/sync/errgroup"

	"github.com/retrodiag/ice196/adapter"
	"github.com/retrodiag/ice196/cli"
	"github.com/retrodiag/ice196/config"
	"github.com/retrodiag/ice196/debugtools"
	"github.com/retrodiag/ice196/event"
	"github.com/retrodiag/ice196/hardware/eeprom"
	"github.com/retrodiag/ice196/hardware/rom"
	"github.com/retrodiag/ice196/hardware/serial"
	"github.com/retrodiag/ice196/logger"
	"github.com/retrodiag/ice196/machine"
	"github.com/retrodiag/ice196/telemetry"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		logger.Write(os.Stderr)
		fmt.Fprintln(os.Stderr, "ice196:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := cli.Parse(args)
	if err != nil {
		return err
	}

	settingsPath := filepath.Join(os.Getenv("HOME"), ".ice196.conf")
	settings, err := config.Load(settingsPath)
	if err != nil {
		logger.Logf("config", "load %s: %s", settingsPath, err)
	}

	romImage, err := loadROM(opts.ROM)
	if err != nil {
		return err
	}

	var extROM *rom.Image
	if opts.ExtROM != "" {
		extROM, err = loadROM(opts.ExtROM)
		if err != nil {
			return err
		}
	}

	m := machine.New(romImage, extROM)
	m.SetPacingFactor(opts.PacingFactor)
	if opts.HasWatch {
		m.Mem.WatchLo = uint16(opts.WatchLo)
		m.Mem.WatchHi = uint16(opts.WatchHi)
		m.Mem.WatchHit = func(addr uint16, write bool, value uint8) {
			logger.Logf("watch", "%s %#04x = %#02x", map[bool]string{true: "write", false: "read"}[write], addr, value)
		}
	}
	if opts.TraceTarget != 0 {
		m.SetTrigger(uint16(opts.TraceTarget))
	}

	if eepPath := eepromSidecar(opts.ROM); eepPath != "" {
		if f, err := os.Open(eepPath); err == nil {
			e, err := eeprom.Load(f)
			f.Close()
			if err != nil {
				logger.Logf("eeprom", "load %s: %s", eepPath, err)
			} else {
				m.LoadEEPROM(e)
			}
		}
	}

	if opts.PlaybackPath != "" {
		f, err := os.Open(opts.PlaybackPath)
		if err != nil {
			return fmt.Errorf("open playback log: %w", err)
		}
		log, err := event.ReadLog(f, true)
		f.Close()
		if err != nil {
			return fmt.Errorf("read playback log: %w", err)
		}
		m.AttachReplay(log, opts.PlaybackPath)
	} else if opts.RecordPath != "" {
		m.EnableRecording(opts.RecordPath)
	}

	a, closer, err := openAdapter(opts, m.Serial)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}
	m.AttachAdapter(a)
	m.Serial.SetExpectEcho(opts.ExpectEcho)
	m.Serial.SetSamplingAllowed(opts.Sampling)

	for _, flag := range opts.DebugFlags {
		if flag == "memviz" {
			debugtools.DumpMemoryMap(os.Stderr, m.Mem)
		}
	}

	var ts *telemetry.Server
	for _, flag := range opts.DebugFlags {
		if flag == "telemetry" {
			ts = telemetry.New("")
			ts.Start()
			m.AttachTelemetry(ts)
		}
	}
	if ts != nil {
		defer ts.Stop()
	}

	result, err := runWithSignalWatch(m, opts.MaxCycles)
	if err != nil {
		return err
	}

	if opts.RecordPath != "" && m.Events != nil && !m.Replaying() {
		if err := writeEventLog(opts.RecordPath, m.Events); err != nil {
			logger.Logf("event", "write log: %s", err)
		}
	}

	if opts.Screenshot != "" {
		if err := writeScreenshot(opts.Screenshot, m); err != nil {
			logger.Logf("screenshot", "%s", err)
		}
	}

	if !m.Replaying() {
		if eepPath := eepromSidecar(opts.ROM); eepPath != "" {
			if err := saveEEPROM(eepPath, m); err != nil {
				logger.Logf("eeprom", "save %s: %s", eepPath, err)
			}
		}
	}

	if settings != nil {
		if err := settings.Adapter.Set(string(opts.Interface)); err != nil {
			logger.Logf("config", "set adapter: %s", err)
		}
		if err := settings.Save(); err != nil {
			logger.Logf("config", "save %s: %s", settingsPath, err)
		}
	}

	if result == machine.RunError {
		return fmt.Errorf("run terminated with an unrecoverable error")
	}
	return nil
}

// runWithSignalWatch drives the two-goroutine split for a headless run:
// one is the interpreter's own pacing loop; the other only watches for
// SIGINT/SIGTERM and queues a quit command through the same host-command
// channel a UI front end would use, never touching machine state
// directly. The errgroup ties their lifetimes together so the signal
// watcher is torn down the instant Run returns on its own.
func runWithSignalWatch(m *machine.Machine, maxCycles uint64) (machine.RunResult, error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var result machine.RunResult
	var g errgroup.Group

	g.Go(func() error {
		defer stop()
		result = m.Run(maxCycles, nil)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		m.QueueQuit()
		return nil
	})

	err := g.Wait()
	return result, err
}

func loadROM(path string) (*rom.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rom %s: %w", path, err)
	}
	if _, err := rom.Sniff(data); err != nil {
		return nil, err
	}
	return rom.Load(filepath.Base(path), data), nil
}

func eepromSidecar(romPath string) string {
	ext := filepath.Ext(romPath)
	if ext == "" {
		return ""
	}
	return strings.TrimSuffix(romPath, ext) + ".eep"
}

func saveEEPROM(path string, m *machine.Machine) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.CPU.EEPROM.Save(f)
}

func writeEventLog(path string, log *event.Log) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return log.WriteTo(f, true)
}

func writeScreenshot(path string, m *machine.Machine) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, m.CPU.LCD.Snapshot())
}

// openAdapter constructs the concrete adapter.Adapter the -i flag names,
// returning an optional close function for adapters that own an
// underlying file descriptor.
func openAdapter(opts *cli.Options, uart *serial.UART) (serial.Adapter, func(), error) {
	switch opts.Interface {
	case cli.AdapterFake:
		return adapter.NewFake(uart, 0x8f, 0x8f), nil, nil

	case cli.AdapterELM:
		rw, err := openTTY(opts.TTY)
		if err != nil {
			return nil, nil, err
		}
		a, err := adapter.OpenELM327(rw, uart)
		if err != nil {
			return nil, nil, err
		}
		return a, func() { a.Close() }, nil

	case cli.AdapterKCAN:
		rw, err := openTTY(opts.TTY)
		if err != nil {
			return nil, nil, err
		}
		a, err := adapter.OpenKCAN(rw, uart)
		if err != nil {
			return nil, nil, err
		}
		return a, func() { a.Close() }, nil

	case cli.AdapterKL:
		a, err := adapter.OpenKLTTY(opts.TTY, 9600, uart)
		if err != nil {
			return nil, nil, err
		}
		return a, func() { a.Close() }, nil

	case cli.AdapterFTDI:
		a, err := adapter.OpenKLUSB(opts.TTY, 9600, uart)
		if err != nil {
			return nil, nil, err
		}
		return a, func() { a.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown adapter %q", opts.Interface)
	}
}

// openTTY opens a raw serial device for the adapters that speak their
// own line protocol over it (ELM327's AT commands, K+CAN's frames)
// rather than owning the tty themselves.
func openTTY(device string) (*term.Term, error) {
	return term.Open(device, term.Speed(38400), term.RawMode)
}
