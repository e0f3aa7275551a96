// Package cli parses the command line. There is no modal
// subcommand tree here - every flag applies to the single "run an
// emulation" action - so parsing is a direct stdlib flag.FlagSet with
// no sub-command dispatch in front of it.
package cli

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// AdapterKind selects which concrete adapter.Adapter to construct.
type AdapterKind string

const (
	AdapterELM  AdapterKind = "elm"
	AdapterKL   AdapterKind = "kl"
	AdapterFTDI AdapterKind = "ftdi"
	AdapterKCAN AdapterKind = "kcan"
	AdapterFake AdapterKind = "fake"
)

// Options is the fully parsed command line.
type Options struct {
	DebugFlags   []string // -d
	TraceTarget  uint32   // -t <pc>, 0 if unset
	WatchLo      uint32   // -w lo,hi
	WatchHi      uint32
	HasWatch     bool
	TTY          string      // -s
	MaxCycles    uint64      // -m
	RecordPath   string      // -r
	PlaybackPath string      // -p
	Interface    AdapterKind // -i
	ExpectEcho   bool        // -e
	ExtROM       string      // -x
	PacingFactor float64     // -v
	Sampling     bool        // -S
	Screenshot   string      // -o

	ROM string // positional argument: the ROM image path
}

// Parse builds Options from args (normally os.Args[1:]).
func Parse(args []string) (*Options, error) {
	fs := flag.NewFlagSet("ice196", flag.ContinueOnError)

	debug := fs.String("d", "", "comma-separated debug flags")
	trace := fs.String("t", "", "trace target PC (hex)")
	watch := fs.String("w", "", "watch range lo,hi (hex)")
	tty := fs.String("s", "", "serial device path")
	maxCycles := fs.Uint64("m", 0, "stop after this many state-times (0 = unlimited)")
	record := fs.String("r", "", "record event log to path")
	playback := fs.String("p", "", "replay event log from path")
	iface := fs.String("i", string(AdapterFake), "adapter: elm, kl, ftdi, kcan, fake")
	echo := fs.Bool("e", false, "expect the adapter to echo transmitted bytes")
	extROM := fs.String("x", "", "extended ROM image path")
	pacing := fs.Float64("v", 1.0, "pacing factor (1.0 = real time)")
	sampling := fs.Bool("S", false, "enable RX-pin bit sampling")
	screenshot := fs.String("o", "", "write a screenshot PNG to path on exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := &Options{
		TTY:          *tty,
		MaxCycles:    *maxCycles,
		RecordPath:   *record,
		PlaybackPath: *playback,
		Interface:    AdapterKind(*iface),
		ExpectEcho:   *echo,
		ExtROM:       *extROM,
		PacingFactor: *pacing,
		Sampling:     *sampling,
		Screenshot:   *screenshot,
	}

	if *debug != "" {
		opts.DebugFlags = strings.Split(*debug, ",")
	}

	if *trace != "" {
		v, err := strconv.ParseUint(strings.TrimPrefix(*trace, "0x"), 16, 32)
		if err != nil {
			return nil, fmt.Errorf("cli: bad -t value %q: %w", *trace, err)
		}
		opts.TraceTarget = uint32(v)
	}

	if *watch != "" {
		lo, hi, err := parseRange(*watch)
		if err != nil {
			return nil, fmt.Errorf("cli: bad -w value %q: %w", *watch, err)
		}
		opts.WatchLo, opts.WatchHi, opts.HasWatch = lo, hi, true
	}

	switch opts.Interface {
	case AdapterELM, AdapterKL, AdapterFTDI, AdapterKCAN, AdapterFake:
	default:
		return nil, fmt.Errorf("cli: unknown adapter %q", *iface)
	}

	rest := fs.Args()
	if len(rest) != 1 {
		return nil, fmt.Errorf("cli: expected exactly one ROM path argument, got %d", len(rest))
	}
	opts.ROM = rest[0]

	return opts, nil
}

func parseRange(s string) (lo, hi uint32, err error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected lo,hi")
	}
	loV, err := strconv.ParseUint(strings.TrimPrefix(parts[0], "0x"), 16, 32)
	if err != nil {
		return 0, 0, err
	}
	hiV, err := strconv.ParseUint(strings.TrimPrefix(parts[1], "0x"), 16, 32)
	if err != nil {
		return 0, 0, err
	}
	return uint32(loV), uint32(hiV), nil
}
