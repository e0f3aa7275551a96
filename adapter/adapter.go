// Package adapter implements the pluggable vehicle-diagnostic transport
// layer: five concrete adapters behind one contract, with a composite
// for the K+CAN personality switch.
package adapter

import "github.com/retrodiag/ice196/hardware/serial"

// Adapter is the transport contract every concrete adapter satisfies; it
// is the same shape as serial.Adapter, re-exported here so callers can
// depend on this package without reaching into hardware/serial.
type Adapter = serial.Adapter

// RXUnknown is returned by GetRXState when the adapter cannot sample the
// physical line (the generic UART-byte path is then used instead).
const RXUnknown = -1
