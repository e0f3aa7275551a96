package coreerr

// Curated message templates, grouped by error kind.
const (
	// decode
	IllegalOpcode       = "illegal opcode: %#02x at %#04x"
	UnimplementedOpcode = "unimplemented opcode: %#02x at %#04x"
	ReservedWSR         = "reserved wsr value on sensitive register: %v"
	EndlessLoop         = "endless loop (self-referential jump) at %#04x"

	// mapping
	UnmappedBank  = "unimplemented mapping: data_hi=%#02x data_lo=%#02x"
	ExtRomMissing = "extended rom not present, falling back to rom"
	SFRRangeError = "sfr access outside whitelisted range: %#04x"

	// peripheral
	PeripheralViolation = "peripheral contract violation: %v"
	UnknownHSOCommand   = "unknown hso command: %#02x"

	// adapter / serial
	AdapterIOError  = "adapter i/o error: %v"
	AdapterTimeout  = "adapter timed out waiting for response"
	SlowInitTimeout = "slow-init: no response from target %#02x"

	// file load
	ROMLoadError    = "rom load error: %v"
	EEPROMLoadError = "eeprom load error: %v"
	ArchiveNotPlain = "rom container is not plain binary (%v); unpack externally first"
	StateFileError  = "state file error: %v"
	EventLogError   = "event log error: %v"

	// state load
	StateROMMismatch = "state load error: rom name %q could not be resolved"
	StateTruncated   = "state load error: truncated state file"
)
