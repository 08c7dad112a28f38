package redis

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/oncecache/backend"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, goredis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNilClient) {
		t.Fatalf("want ErrNilClient, got %v", err)
	}
}

func TestWriteReadExists(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	p, err := New(Config{Client: rdb})
	if err != nil {
		t.Fatal(err)
	}

	if ok, err := p.Exists(ctx, "ns:k"); err != nil || ok {
		t.Fatalf("Exists before write = %v, %v", ok, err)
	}
	if _, ok, err := p.Read(ctx, "ns:k"); err != nil || ok {
		t.Fatalf("Read before write ok=%v err=%v", ok, err)
	}

	val := []byte{1, 2, 3, 0, 255}
	out, err := p.Write(ctx, "ns:k", val, 100*time.Millisecond)
	if err != nil || !bytes.Equal(out, val) {
		t.Fatalf("Write = %v, %v", out, err)
	}
	got, ok, err := p.Read(ctx, "ns:k")
	if err != nil || !ok || !bytes.Equal(got, val) {
		t.Fatalf("Read = %v ok=%v err=%v", got, ok, err)
	}
	if ok, _ := p.Exists(ctx, "ns:k"); !ok {
		t.Fatalf("Exists after write = false")
	}

	mr.FastForward(100 * time.Millisecond)
	if ok, _ := p.Exists(ctx, "ns:k"); ok {
		t.Fatalf("key survived its TTL")
	}
}

func TestReadsGoToReplica(t *testing.T) {
	ctx := context.Background()
	_, primary := newTestRedis(t)
	replicaSrv, replica := newTestRedis(t)

	p, err := New(Config{Client: primary, Replica: replica})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Write(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	// replica has not caught up: eventual consistency is visible to readers
	if ok, _ := p.Exists(ctx, "k"); ok {
		t.Fatalf("read served from primary, want replica")
	}

	_ = replicaSrv.Set("k", "v")
	got, ok, err := p.Read(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("replica Read = %q ok=%v err=%v", got, ok, err)
	}

	// lease records always come from the primary
	if ok, _ := p.SetIfAbsent(ctx, "k:lock", "tok", time.Second); !ok {
		t.Fatalf("SetIfAbsent on primary failed")
	}
	if owner, held, _ := p.Owner(ctx, "k:lock"); !held || owner != "tok" {
		t.Fatalf("Owner = %q held=%v", owner, held)
	}
}

func TestLeasePrimitives(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	p, _ := New(Config{Client: rdb})

	if ok, err := p.SetIfAbsent(ctx, "l", "a", time.Second); err != nil || !ok {
		t.Fatalf("SetIfAbsent = %v, %v", ok, err)
	}
	if ok, _ := p.SetIfAbsent(ctx, "l", "b", time.Second); ok {
		t.Fatalf("second SetIfAbsent must fail")
	}
	if ok, err := p.DeleteIfOwner(ctx, "l", "b"); err != nil || ok {
		t.Fatalf("foreign DeleteIfOwner = %v, %v", ok, err)
	}
	if ok, err := p.DeleteIfOwner(ctx, "l", "a"); err != nil || !ok {
		t.Fatalf("owner DeleteIfOwner = %v, %v", ok, err)
	}
	if _, held, _ := p.Owner(ctx, "l"); held {
		t.Fatalf("lease still held after release")
	}

	_, _ = p.SetIfAbsent(ctx, "l", "a", time.Second)
	mr.FastForward(time.Second)
	if ok, _ := p.SetIfAbsent(ctx, "l", "b", time.Second); !ok {
		t.Fatalf("expired lease must be claimable")
	}
}

func TestServerDownIsUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	p, _ := New(Config{Client: rdb})
	mr.Close()

	if _, err := p.Exists(ctx, "k"); !errors.Is(err, backend.ErrUnavailable) {
		t.Fatalf("Exists err = %v", err)
	}
	if _, err := p.Write(ctx, "k", []byte("v"), 0); !errors.Is(err, backend.ErrUnavailable) {
		t.Fatalf("Write err = %v", err)
	}
	if _, err := p.SetIfAbsent(ctx, "k", "v", time.Second); !errors.Is(err, backend.ErrUnavailable) {
		t.Fatalf("SetIfAbsent err = %v", err)
	}
}

func TestCancelledContextNotUnavailable(t *testing.T) {
	_, rdb := newTestRedis(t)
	p, _ := New(Config{Client: rdb})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := p.Read(ctx, "k")
	if !errors.Is(err, context.Canceled) || errors.Is(err, backend.ErrUnavailable) {
		t.Fatalf("Read err = %v, want bare context.Canceled", err)
	}
}

func TestCloseOwnsClient(t *testing.T) {
	_, rdb := newTestRedis(t)
	p, _ := New(Config{Client: rdb, CloseClient: true})
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
