package cli_test

import (
	"testing"

	"github.com/retrodiag/ice196/cli"
)

// TestParseDefaults checks the minimal invocation: just a ROM path, every
// other flag at its documented default.
func TestParseDefaults(t *testing.T) {
	opts, err := cli.Parse([]string{"game.bin"})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if opts.ROM != "game.bin" {
		t.Fatalf("rom = %q, want %q", opts.ROM, "game.bin")
	}
	if opts.Interface != cli.AdapterFake {
		t.Fatalf("default interface = %q, want fake", opts.Interface)
	}
	if opts.PacingFactor != 1.0 {
		t.Fatalf("default pacing factor = %v, want 1.0", opts.PacingFactor)
	}
	if opts.HasWatch {
		t.Fatalf("HasWatch should default to false")
	}
	if opts.ExpectEcho || opts.Sampling {
		t.Fatalf("-e/-S should default to false")
	}
	if opts.ExtROM != "" {
		t.Fatalf("-x should default to empty")
	}
}

// TestParseAllFlags exercises every flag except -p together.
func TestParseAllFlags(t *testing.T) {
	opts, err := cli.Parse([]string{
		"-d", "memviz,telemetry",
		"-t", "0x1234",
		"-w", "0x100,0x200",
		"-s", "/dev/ttyUSB0",
		"-m", "500000",
		"-r", "session.evt",
		"-i", "kcan",
		"-e",
		"-x", "scanner.ext",
		"-v", "2.5",
		"-S",
		"-o", "shot.png",
		"scanner.bin",
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if want := []string{"memviz", "telemetry"}; len(opts.DebugFlags) != 2 || opts.DebugFlags[0] != want[0] || opts.DebugFlags[1] != want[1] {
		t.Fatalf("debug flags = %v, want %v", opts.DebugFlags, want)
	}
	if opts.TraceTarget != 0x1234 {
		t.Fatalf("trace target = %#x, want 0x1234", opts.TraceTarget)
	}
	if !opts.HasWatch || opts.WatchLo != 0x100 || opts.WatchHi != 0x200 {
		t.Fatalf("watch range = (%v, %#x, %#x), want (true, 0x100, 0x200)", opts.HasWatch, opts.WatchLo, opts.WatchHi)
	}
	if opts.TTY != "/dev/ttyUSB0" {
		t.Fatalf("tty = %q", opts.TTY)
	}
	if opts.MaxCycles != 500000 {
		t.Fatalf("max cycles = %d, want 500000", opts.MaxCycles)
	}
	if opts.RecordPath != "session.evt" {
		t.Fatalf("record path = %q", opts.RecordPath)
	}
	if opts.Interface != cli.AdapterKCAN {
		t.Fatalf("interface = %q, want kcan", opts.Interface)
	}
	if !opts.ExpectEcho {
		t.Fatalf("-e should set ExpectEcho")
	}
	if opts.ExtROM != "scanner.ext" {
		t.Fatalf("extended rom path = %q", opts.ExtROM)
	}
	if opts.Screenshot != "shot.png" {
		t.Fatalf("screenshot path = %q", opts.Screenshot)
	}
	if opts.PacingFactor != 2.5 {
		t.Fatalf("pacing factor = %v, want 2.5", opts.PacingFactor)
	}
	if !opts.Sampling {
		t.Fatalf("-S should set Sampling")
	}
	if opts.ROM != "scanner.bin" {
		t.Fatalf("rom = %q, want scanner.bin", opts.ROM)
	}
}

// TestParseRejectsUnknownAdapter checks the adapter enum is validated.
func TestParseRejectsUnknownAdapter(t *testing.T) {
	if _, err := cli.Parse([]string{"-i", "bogus", "game.bin"}); err == nil {
		t.Fatalf("expected an error for an unknown adapter")
	}
}

// TestParseRequiresExactlyOneROMArgument checks both the missing and the
// too-many-arguments cases.
func TestParseRequiresExactlyOneROMArgument(t *testing.T) {
	if _, err := cli.Parse([]string{}); err == nil {
		t.Fatalf("expected an error with no ROM argument")
	}
	if _, err := cli.Parse([]string{"a.bin", "b.bin"}); err == nil {
		t.Fatalf("expected an error with two ROM arguments")
	}
}

// TestParseRejectsMalformedWatchRange checks the -w lo,hi parser rejects
// a value that doesn't split into exactly two hex fields.
func TestParseRejectsMalformedWatchRange(t *testing.T) {
	if _, err := cli.Parse([]string{"-w", "not-a-range", "game.bin"}); err == nil {
		t.Fatalf("expected an error for a malformed watch range")
	}
	if _, err := cli.Parse([]string{"-w", "0x100", "game.bin"}); err == nil {
		t.Fatalf("expected an error for a watch range missing its hi half")
	}
}
