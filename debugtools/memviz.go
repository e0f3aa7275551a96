// Package debugtools holds developer-only introspection helpers that
// have no role in normal emulation and are only reached from cmd/ice196
// behind the -d debug flags.
package debugtools

import (
	"io"

	"github.com/bradleyjkemp/memviz"

	"github.com/retrodiag/ice196/hardware/memory"
)

// DumpMemoryMap renders a graphviz description of m's live pointer
// structure - SRAM/MappedRAM arrays, the cached bank pointers, and the
// attached ROM images - to w. Intended for debug sessions where a
// bank-switch bug needs to be seen rather than stepped through.
func DumpMemoryMap(w io.Writer, m *memory.Memory) {
	memviz.Map(w, m)
}
