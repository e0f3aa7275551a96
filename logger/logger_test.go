package logger_test

import (
	"bytes"
	"testing"

	"github.com/retrodiag/ice196/logger"
)

func TestLogger(t *testing.T) {
	logger.Clear()
	var buf bytes.Buffer

	logger.Write(&buf)
	if buf.String() != "" {
		t.Fatalf("expected empty log, got %q", buf.String())
	}

	logger.Log("test", "this is a test")
	logger.Write(&buf)
	if buf.String() != "test: this is a test\n" {
		t.Fatalf("unexpected log output: %q", buf.String())
	}

	buf.Reset()
	logger.Log("test2", "this is another test")
	logger.Write(&buf)
	if buf.String() != "test: this is a test\ntest2: this is another test\n" {
		t.Fatalf("unexpected log output: %q", buf.String())
	}

	buf.Reset()
	logger.Tail(&buf, 100)
	if buf.String() != "test: this is a test\ntest2: this is another test\n" {
		t.Fatalf("tail(100) mismatch: %q", buf.String())
	}

	buf.Reset()
	logger.Tail(&buf, 1)
	if buf.String() != "test2: this is another test\n" {
		t.Fatalf("tail(1) mismatch: %q", buf.String())
	}

	buf.Reset()
	logger.Tail(&buf, 0)
	if buf.String() != "" {
		t.Fatalf("tail(0) should be empty, got %q", buf.String())
	}
}
