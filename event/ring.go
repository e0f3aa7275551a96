// Package event implements the fixed-capacity SPSC ring used for the
// serial RX ring and the echo-cancellation ring, plus the append-only
// event log used for record/replay.
package event

import "github.com/retrodiag/ice196/statecodec"

// Ring is a fixed-capacity single-producer/single-consumer ring buffer. It
// never grows: Add overwrites the oldest unread slot once full; callers
// that want drop-on-overflow semantics compare Count against Capacity
// before adding.
type Ring[T any] struct {
	buf        []T
	start, end int
}

// NewRing creates a ring with the given fixed capacity.
func NewRing[T any](capacity int) *Ring[T] {
	// One spare slot keeps a full ring distinguishable from an empty one.
	return &Ring[T]{buf: make([]T, capacity+1)}
}

// Add appends data at the tail of the ring.
func (r *Ring[T]) Add(data T) {
	r.buf[r.end] = data
	r.end = (r.end + 1) % len(r.buf)
	if r.end == r.start {
		r.start = (r.start + 1) % len(r.buf)
	}
}

// Prepend pushes data onto the head of the ring, so that it is the next
// value Consume returns. Used by the UART's artificial-echo insertion,
// which must make the echoed byte appear before anything already queued.
func (r *Ring[T]) Prepend(data T) {
	if r.start == 0 {
		r.start = len(r.buf) - 1
	} else {
		r.start--
	}
	r.buf[r.start] = data
}

// Consume pops and returns the value at the head of the ring. Callers
// must check Empty first; Consume on an empty ring returns the stale
// value at the head slot.
func (r *Ring[T]) Consume() T {
	ret := r.buf[r.start]
	r.start = (r.start + 1) % len(r.buf)
	return ret
}

// Snoop returns the value at the head of the ring without consuming it.
func (r *Ring[T]) Snoop() T {
	return r.buf[r.start]
}

// Flush discards every queued value.
func (r *Ring[T]) Flush() {
	r.start = r.end
}

// Empty reports whether the ring holds no unread values.
func (r *Ring[T]) Empty() bool {
	return r.start == r.end
}

// Count returns the number of unread values currently queued.
func (r *Ring[T]) Count() int {
	if r.start > r.end {
		return len(r.buf) - r.start + r.end
	}
	return r.end - r.start
}

// Capacity returns the ring's fixed capacity.
func (r *Ring[T]) Capacity() int {
	return len(r.buf) - 1
}

// RWState reads or writes the ring's full contents (start, end, and every
// slot) through a statecodec.Codec, using rw to (de)serialise one element.
// The whole backing array round-trips, not just the unread span, matching
// the original ring's raw-memory state dump.
func (r *Ring[T]) RWState(c *statecodec.Codec, rw func(*statecodec.Codec, *T) error) error {
	start := uint32(r.start)
	end := uint32(r.end)
	if err := c.RWUint32(&start); err != nil {
		return err
	}
	if err := c.RWUint32(&end); err != nil {
		return err
	}
	if !c.Writing {
		r.start, r.end = int(start), int(end)
	}
	for i := range r.buf {
		if err := rw(c, &r.buf[i]); err != nil {
			return err
		}
	}
	return nil
}
