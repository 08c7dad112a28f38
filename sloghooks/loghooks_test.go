package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newBuf() (*bytes.Buffer, *slog.Logger) {
	var buf bytes.Buffer
	return &buf, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestKeysAreRedacted(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{})
	h.CorruptEntry("reports:secret-fp", "frame")

	out := buf.String()
	if strings.Contains(out, "secret-fp") {
		t.Fatalf("raw key leaked: %q", out)
	}
	if !strings.Contains(out, "reason=frame") {
		t.Fatalf("output = %q", out)
	}
}

func TestHitSampling(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{HitEvery: 10, Redact: func(s string) string { return s }})
	for i := 0; i < 30; i++ {
		h.Hit("k", time.Second)
	}
	if n := strings.Count(buf.String(), "oncecache.hit"); n != 3 {
		t.Fatalf("logged %d hits, want 3", n)
	}
	if !strings.Contains(buf.String(), "age=1s") {
		t.Fatalf("hit lines lack age: %q", buf.String())
	}
}

func TestComputedFailureLogsWarn(t *testing.T) {
	buf, l := newBuf()
	New(l, Options{}).Computed("k", time.Millisecond, errors.New("db down"))
	if out := buf.String(); !strings.Contains(out, "level=WARN") || !strings.Contains(out, "db down") {
		t.Fatalf("output = %q", out)
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	h := New(nil, Options{})
	h.Hit("k", time.Second)
	h.LeaseReleaseError("k", errors.New("x"))
}
