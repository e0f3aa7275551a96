package ioreg

// Special-function register addresses recognised by the dispatch table
// . The low block (0x00-0x17) holds registers visible regardless of
// window; the 0x200-0x2FF block holds both scanner-board latches and the
// windowed registers selected by WSR (ValidWindows: 0, 1, 15).
const (
	AddrADCommand  = 0x02
	AddrADResultLo = 0x04
	AddrADResultHi = 0x05
	AddrHSIMode    = 0x06
	AddrWSR1       = 0x07
	AddrHSITimeLo  = 0x08
	AddrHSITimeHi  = 0x09
	AddrHSOTimeLo  = 0x0A
	AddrHSOTimeHi  = 0x0B
	AddrHSOCmd     = 0x0C
	AddrSBUF       = 0x0D // RX on read, TX on write
	AddrIntMask    = 0x0E
	AddrIntMask1   = 0x0F
	AddrTimer1Lo   = 0x10
	AddrTimer1Hi   = 0x11
	AddrTimer2Lo   = 0x12
	AddrTimer2Hi   = 0x13
	AddrWSR        = 0x14
	AddrIOC0       = 0x15
	AddrIOC1       = 0x16
	AddrIOPort1    = 0x17

	// scanner-board-specific latches, window-insensitive
	AddrKeypadData = 0x200
	AddrKeypadRow  = 0x202
	AddrLCDPort    = 0x210
	AddrLCDPortAlt = 0x212
	AddrIRQVector  = 0x240
	AddrCommLine   = 0x250
	AddrDiagPins   = 0x254
	AddrBeeperLED  = 0x25E

	// bank mapping registers, window-insensitive
	AddrCodeLo = 0x270
	AddrCodeHi = 0x271
	AddrDataLo = 0x272
	AddrDataHi = 0x273

	// windowed registers (dispatch keyed on current WSR)
	AddrSPCon      = 0x220
	AddrSPStat     = 0x221
	AddrBaudRateLo = 0x222
	AddrBaudRateHi = 0x223
	AddrIOC2       = 0x224
	AddrIOC3       = 0x225
	AddrIOS0       = 0x226
	AddrIOS1       = 0x227
	AddrIOS2       = 0x228
	AddrIOPort0    = 0x229
	AddrIOPort2    = 0x22A
	AddrPTSSelLo   = 0x22B
	AddrPTSSelHi   = 0x22C
	AddrPTSSrvLo   = 0x22D
	AddrPTSSrvHi   = 0x22E
)

// InterruptVectorTable is the fixed external-interrupt-vector sequence
// AddrIRQVector dispenses, one byte per successive read.
var InterruptVectorTable = [4]uint8{0x00, 0x0A, 0x00, 0x20}
