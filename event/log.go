package event

import (
	"compress/zlib"
	"io"

	"github.com/retrodiag/ice196/statecodec"
)

// Kind identifies the source of a non-deterministic observation.
type Kind uint32

const (
	Invalid Kind = iota
	KeyDown
	KeyUp
	SerialRX
	SerialRXBit
	SerialStat
	EEPROMRead
)

// Record is one entry in the event log: a non-decreasing cycle stamp plus
// the kind and value of the observation made at that cycle.
type Record struct {
	Cycles uint64
	Kind   Kind
	Value  int32
}

// None is the "no event" sentinel a replay cursor returns when the next
// logged record does not match the requested kind at the current cycle.
var None = Record{Kind: Invalid}

// Log is either an append sink (recording) or a positioned cursor
// (replaying), never both at once.
type Log struct {
	records []Record
	cursor  int
	replay  bool
}

// NewRecordingLog creates an empty log in append mode.
func NewRecordingLog() *Log {
	return &Log{}
}

// NewReplayLog creates a log positioned at the start of records, in replay
// mode.
func NewReplayLog(records []Record) *Log {
	return &Log{records: records, replay: true}
}

// Replaying reports whether the log is a replay cursor.
func (l *Log) Replaying() bool {
	return l.replay
}

// Append adds a record to the log. Cycles must be non-decreasing relative
// to the previous append; callers (the interpreter) are solely responsible
// for honouring that invariant.
func (l *Log) Append(cycles uint64, kind Kind, value int32) {
	if l.replay {
		return
	}
	l.records = append(l.records, Record{Cycles: cycles, Kind: kind, Value: value})
}

// Observe consults the replay cursor for a record of the given kind at the
// given cycle. If the next unconsumed record matches both kind and cycles
// exactly, it is consumed and returned with ok=true; otherwise None is
// returned with ok=false and the cursor is left untouched.
func (l *Log) Observe(cycles uint64, kind Kind) (Record, bool) {
	if !l.replay || l.cursor >= len(l.records) {
		return None, false
	}
	next := l.records[l.cursor]
	if next.Kind == kind && next.Cycles == cycles {
		l.cursor++
		return next, true
	}
	return None, false
}

// Cursor returns the number of records already consumed by Observe (the
// replay position saved and restored as the state file's "log
// position").
func (l *Log) Cursor() int {
	return l.cursor
}

// SetCursor repositions a replay cursor, clamped to the valid range. Used
// when restoring a saved machine state that was recording or replaying at
// a prior cycle.
func (l *Log) SetCursor(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(l.records) {
		pos = len(l.records)
	}
	l.cursor = pos
}

// Remaining reports how many records are left to replay.
func (l *Log) Remaining() int {
	if !l.replay {
		return 0
	}
	return len(l.records) - l.cursor
}

// Records returns the full recorded slice (used when switching a recording
// log into a replay log, or when persisting to disk).
func (l *Log) Records() []Record {
	return l.records
}

// WriteTo serialises the log as an array of {u64 cycles, i32 kind, i32
// value} records, optionally zlib-compressed.
func (l *Log) WriteTo(w io.Writer, compressed bool) error {
	dst := w
	var zw *zlib.Writer
	if compressed {
		zw = zlib.NewWriter(w)
		dst = zw
	}
	c := statecodec.NewWriter(dst)
	for _, r := range l.records {
		cycles := r.Cycles
		kind := uint32(r.Kind)
		value := int32(r.Value)
		if err := c.RWUint64(&cycles); err != nil {
			return err
		}
		if err := c.RWUint32(&kind); err != nil {
			return err
		}
		if err := c.RWInt32(&value); err != nil {
			return err
		}
	}
	if zw != nil {
		return zw.Close()
	}
	return nil
}

// ReadLog deserialises an event log previously written by WriteTo.
func ReadLog(r io.Reader, compressed bool) (*Log, error) {
	src := r
	if compressed {
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	}
	c := statecodec.NewReader(src)
	var records []Record
	for {
		var cycles uint64
		var kind uint32
		var value int32
		if err := c.RWUint64(&cycles); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if err := c.RWUint32(&kind); err != nil {
			return nil, err
		}
		if err := c.RWInt32(&value); err != nil {
			return nil, err
		}
		records = append(records, Record{Cycles: cycles, Kind: Kind(kind), Value: value})
	}
	return NewReplayLog(records), nil
}
