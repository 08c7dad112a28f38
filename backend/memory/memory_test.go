package memory

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/oncecache/backend"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})

	in := []byte("payload")
	out, err := s.Write(ctx, "k", in, time.Minute)
	if err != nil || !bytes.Equal(out, in) {
		t.Fatalf("Write = %q, %v", out, err)
	}
	got, ok, err := s.Read(ctx, "k")
	if err != nil || !ok || !bytes.Equal(got, in) {
		t.Fatalf("Read = %q ok=%v err=%v", got, ok, err)
	}

	// stored bytes are not aliased to the caller's slice
	in[0] = 'X'
	got, _, _ = s.Read(ctx, "k")
	if got[0] != 'p' {
		t.Fatalf("store aliased caller slice")
	}

	if _, ok, _ := s.Read(ctx, "missing"); ok {
		t.Fatalf("miss expected")
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(Config{Clock: clk.Now})

	if _, err := s.Write(ctx, "k", []byte("v"), 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, "k"); !ok {
		t.Fatalf("expected key before TTL")
	}
	clk.Advance(99 * time.Millisecond)
	if ok, _ := s.Exists(ctx, "k"); !ok {
		t.Fatalf("expired too early")
	}
	clk.Advance(time.Millisecond)
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Fatalf("expected expiry after TTL")
	}

	if _, err := s.Write(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	clk.Advance(24 * time.Hour)
	if ok, _ := s.Exists(ctx, "forever"); !ok {
		t.Fatalf("ttl=0 entry expired")
	}
}

func TestLeaseOps(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(Config{Clock: clk.Now})

	ok, err := s.SetIfAbsent(ctx, "l", "a", time.Second)
	if err != nil || !ok {
		t.Fatalf("first SetIfAbsent = %v, %v", ok, err)
	}
	if ok, _ := s.SetIfAbsent(ctx, "l", "b", time.Second); ok {
		t.Fatalf("second SetIfAbsent must fail")
	}
	if owner, held, _ := s.Owner(ctx, "l"); !held || owner != "a" {
		t.Fatalf("Owner = %q held=%v", owner, held)
	}
	if ok, _ := s.DeleteIfOwner(ctx, "l", "b"); ok {
		t.Fatalf("foreign delete must fail")
	}
	if ok, _ := s.DeleteIfOwner(ctx, "l", "a"); !ok {
		t.Fatalf("owner delete must succeed")
	}

	_, _ = s.SetIfAbsent(ctx, "l", "a", time.Second)
	clk.Advance(time.Second)
	if ok, _ := s.SetIfAbsent(ctx, "l", "b", time.Second); !ok {
		t.Fatalf("expired lease must be claimable")
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})
	_ = s.Close(ctx)
	_ = s.Close(ctx)

	if _, err := s.Exists(ctx, "k"); !errors.Is(err, backend.ErrUnavailable) || !errors.Is(err, ErrClosed) {
		t.Fatalf("Exists err = %v", err)
	}
	if _, _, err := s.Read(ctx, "k"); !errors.Is(err, backend.ErrUnavailable) {
		t.Fatalf("Read err = %v", err)
	}
	if _, err := s.Write(ctx, "k", nil, 0); !errors.Is(err, backend.ErrUnavailable) {
		t.Fatalf("Write err = %v", err)
	}
}
