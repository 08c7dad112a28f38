package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/oncecache"
)

func TestZapLoggerFieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("cache hit", oncecache.Fields{"key": "q:abc"})
	l.Error("lease release failed", oncecache.Fields{"key": "q:abc", "err": errors.New("boom")})

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel || entries[0].LoggerName != "oncecache" {
		t.Fatalf("entry 0 = %+v", entries[0])
	}
	ctx := entries[1].ContextMap()
	if ctx["key"] != "q:abc" || ctx["error"] != "boom" {
		t.Fatalf("fields = %v", ctx)
	}
}
