// Package logger is a minimal, allowed-entries log buffer used throughout
// the emulator core. It never writes to stdout/stderr directly; callers
// flush it explicitly with Write or Tail so that a host frontend controls
// when and where diagnostics are surfaced.
package logger

import (
	"fmt"
	"io"
	"sync"
)

type entry struct {
	tag string
	msg string
}

var (
	mu      sync.Mutex
	entries []entry
)

// Log appends a tagged message to the log.
func Log(tag string, msg string) {
	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, entry{tag: tag, msg: msg})
}

// Logf appends a tagged, formatted message to the log.
func Logf(tag string, format string, args ...interface{}) {
	Log(tag, fmt.Sprintf(format, args...))
}

// Write flushes every entry currently in the log to w, in order.
func Write(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	for _, e := range entries {
		fmt.Fprintf(w, "%s: %s\n", e.tag, e.msg)
	}
}

// Tail flushes the last n entries to w. Asking for more entries than are
// present, or for zero entries, is not an error.
func Tail(w io.Writer, n int) {
	mu.Lock()
	defer mu.Unlock()
	if n <= 0 {
		return
	}
	start := 0
	if n < len(entries) {
		start = len(entries) - n
	}
	for _, e := range entries[start:] {
		fmt.Fprintf(w, "%s: %s\n", e.tag, e.msg)
	}
}

// Clear empties the log. Intended for tests.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	entries = entries[:0]
}
