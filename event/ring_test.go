package event_test

import (
	"bytes"
	"testing"

	"github.com/retrodiag/ice196/event"
	"github.com/retrodiag/ice196/statecodec"
)

func TestRingBasic(t *testing.T) {
	r := event.NewRing[byte](4)
	if !r.Empty() {
		t.Fatalf("new ring should be empty")
	}
	r.Add(1)
	r.Add(2)
	if r.Count() != 2 {
		t.Fatalf("count = %d, want 2", r.Count())
	}
	if r.Snoop() != 1 {
		t.Fatalf("snoop should return oldest value")
	}
	r.Prepend(9)
	if got := r.Consume(); got != 9 {
		t.Fatalf("prepend should be consumed first, got %d", got)
	}
	if got := r.Consume(); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
	if got := r.Consume(); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
	if !r.Empty() {
		t.Fatalf("ring should be empty after draining")
	}
	r.Add(5)
	r.Flush()
	if !r.Empty() {
		t.Fatalf("flush should empty the ring")
	}
}

func TestRingRWStateRoundTrip(t *testing.T) {
	r := event.NewRing[byte](4)
	r.Add(0xaa)
	r.Add(0xbb)
	r.Consume()

	var buf bytes.Buffer
	wc := statecodec.NewWriter(&buf)
	rwByte := func(c *statecodec.Codec, v *byte) error {
		u := uint8(*v)
		if err := c.RWUint8(&u); err != nil {
			return err
		}
		*v = u
		return nil
	}
	if err := r.RWState(wc, rwByte); err != nil {
		t.Fatal(err)
	}

	r2 := event.NewRing[byte](4)
	rc := statecodec.NewReader(&buf)
	if err := r2.RWState(rc, rwByte); err != nil {
		t.Fatal(err)
	}
	if r2.Count() != r.Count() {
		t.Fatalf("count mismatch after round trip: %d vs %d", r2.Count(), r.Count())
	}
	if got := r2.Snoop(); got != 0xbb {
		t.Fatalf("snoop after round trip = %#x, want 0xbb", got)
	}
}
