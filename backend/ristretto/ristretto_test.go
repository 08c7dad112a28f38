package ristretto

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(Config{NumCounters: 1e4, MaxCost: 1 << 20, BufferItems: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("want ErrInvalidConfig, got %v", err)
	}
}

func TestWriteIsReadableImmediately(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	val := []byte("value")
	if _, err := p.Write(ctx, "k", val, time.Minute); err != nil {
		t.Fatal(err)
	}
	got, ok, err := p.Read(ctx, "k")
	if err != nil || !ok || !bytes.Equal(got, val) {
		t.Fatalf("Read = %q ok=%v err=%v", got, ok, err)
	}
	if ok, _ := p.Exists(ctx, "k"); !ok {
		t.Fatalf("Exists = false after write")
	}
	if ok, _ := p.Exists(ctx, "other"); ok {
		t.Fatalf("Exists = true for unknown key")
	}
}
