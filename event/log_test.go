package event_test

import (
	"bytes"
	"testing"

	"github.com/retrodiag/ice196/event"
)

func TestLogAppendAndReplay(t *testing.T) {
	rec := event.NewRecordingLog()
	rec.Append(10, event.KeyDown, 5)
	rec.Append(10, event.SerialRX, 0x55)
	rec.Append(25, event.KeyUp, 5)

	replay := event.NewReplayLog(rec.Records())
	if !replay.Replaying() {
		t.Fatalf("expected replay mode")
	}

	// wrong kind at the right cycle should not consume
	if _, ok := replay.Observe(10, event.KeyUp); ok {
		t.Fatalf("should not match wrong kind")
	}
	r, ok := replay.Observe(10, event.KeyDown)
	if !ok || r.Value != 5 {
		t.Fatalf("expected KeyDown@10 value 5, got %+v ok=%v", r, ok)
	}
	r, ok = replay.Observe(10, event.SerialRX)
	if !ok || r.Value != 0x55 {
		t.Fatalf("expected SerialRX@10 value 0x55, got %+v ok=%v", r, ok)
	}
	// at cycle 15 nothing is logged
	if _, ok := replay.Observe(15, event.KeyUp); ok {
		t.Fatalf("should not match unlogged cycle")
	}
	r, ok = replay.Observe(25, event.KeyUp)
	if !ok || r.Value != 5 {
		t.Fatalf("expected KeyUp@25, got %+v ok=%v", r, ok)
	}
	if replay.Remaining() != 0 {
		t.Fatalf("expected log exhausted, remaining=%d", replay.Remaining())
	}
}

func TestLogWriteReadRoundTrip(t *testing.T) {
	rec := event.NewRecordingLog()
	rec.Append(1, event.KeyDown, 3)
	rec.Append(2, event.EEPROMRead, 1)

	var buf bytes.Buffer
	if err := rec.WriteTo(&buf, true); err != nil {
		t.Fatal(err)
	}

	back, err := event.ReadLog(&buf, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Records()) != 2 {
		t.Fatalf("got %d records, want 2", len(back.Records()))
	}
	if back.Records()[1].Kind != event.EEPROMRead || back.Records()[1].Cycles != 2 {
		t.Fatalf("unexpected second record: %+v", back.Records()[1])
	}
}

func TestRecordingLogIgnoresAppendWhenReplaying(t *testing.T) {
	l := event.NewReplayLog(nil)
	l.Append(1, event.KeyDown, 1)
	if len(l.Records()) != 0 {
		t.Fatalf("replay log should ignore Append")
	}
}
