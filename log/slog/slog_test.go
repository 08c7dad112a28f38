package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/oncecache"
)

func TestSlogLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo}))}

	l.Debug("cache hit", oncecache.Fields{"key": "q:1"})
	if buf.Len() != 0 {
		t.Fatalf("debug line written below level: %q", buf.String())
	}
	l.Warn("lease lost before write, skipping", oncecache.Fields{"owner": "node-b"})
	if out := buf.String(); !strings.Contains(out, "owner=node-b") || !strings.Contains(out, "level=WARN") {
		t.Fatalf("output = %q", out)
	}
}
