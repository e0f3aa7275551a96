package coreerr

// Category groups curated errors so that the main loop can decide
// escalation policy (reset, warn-and-continue, stop-emulation) without
// string-matching the message itself.
type Category int

const (
	// CategoryDecode covers unknown/reserved opcodes - fatal, resets the
	// machine.
	CategoryDecode Category = iota
	// CategoryMapping covers unmapped (data_hi, data_lo) pairs - fatal,
	// full register dump in debug builds, reset in release.
	CategoryMapping
	// CategoryPeripheral covers peripheral-contract violations - warn and
	// continue unless the specific SFR is marked fatal.
	CategoryPeripheral
	// CategoryAdapter covers adapter I/O errors - warning, continue with a
	// stub reply in release, exit in debug.
	CategoryAdapter
	// CategoryFileLoad covers ROM/EEPROM/state file load failures - no
	// state mutation on failure.
	CategoryFileLoad
	// CategoryStateLoad covers state-load mismatches (unresolvable ROM
	// name) - stop emulation, leave memory as last known good.
	CategoryStateLoad
)

// Fatal reports whether a category is always fatal regardless of
// build mode.
func (c Category) Fatal() bool {
	switch c {
	case CategoryDecode, CategoryMapping:
		return true
	default:
		return false
	}
}

// categoryByHead maps each curated message template to its category,
// so callers can decide escalation policy from an error value alone.
var categoryByHead = map[string]Category{
	IllegalOpcode:       CategoryDecode,
	UnimplementedOpcode: CategoryDecode,
	ReservedWSR:         CategoryDecode,
	EndlessLoop:         CategoryDecode,

	UnmappedBank:  CategoryMapping,
	ExtRomMissing: CategoryMapping,

	PeripheralViolation: CategoryPeripheral,
	UnknownHSOCommand:   CategoryPeripheral,

	SFRRangeError: CategoryMapping,

	AdapterIOError:  CategoryAdapter,
	AdapterTimeout:  CategoryAdapter,
	SlowInitTimeout: CategoryAdapter,

	ROMLoadError:    CategoryFileLoad,
	EEPROMLoadError: CategoryFileLoad,
	ArchiveNotPlain: CategoryFileLoad,
	StateFileError:  CategoryFileLoad,
	EventLogError:   CategoryFileLoad,

	StateROMMismatch: CategoryStateLoad,
	StateTruncated:   CategoryStateLoad,
}

// CategoryOf returns the category of a curated error, and false if err
// was not created by this package (or its head is not in the table, which
// callers should treat as CategoryPeripheral - warn and continue).
func CategoryOf(err error) (Category, bool) {
	head := Head(err)
	cat, ok := categoryByHead[head]
	return cat, ok
}
