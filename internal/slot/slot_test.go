package slot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGlobalSerializesAllKeys(t *testing.T) {
	g := NewGlobal()
	ctx := context.Background()

	var inside, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			release, err := g.Acquire(ctx, string(rune('a'+i)))
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer release()
			n := inside.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}(i)
	}
	wg.Wait()
	if peak.Load() != 1 {
		t.Fatalf("peak concurrency = %d, want 1", peak.Load())
	}
}

func TestGlobalAcquireHonorsCancellation(t *testing.T) {
	g := NewGlobal()
	release, err := g.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx, "b"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}

	release()
	release() // idempotent

	r2, err := g.Acquire(context.Background(), "b")
	if err != nil {
		t.Fatalf("slot not free after release: %v", err)
	}
	r2()
}

func TestPerKeyIndependentKeys(t *testing.T) {
	p := NewPerKey()
	ctx := context.Background()

	ra, err := p.Acquire(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	defer ra()

	tctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	rb, err := p.Acquire(tctx, "b")
	if err != nil {
		t.Fatalf("unrelated key blocked: %v", err)
	}
	rb()

	short, cancel2 := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel2()
	if _, err := p.Acquire(short, "a"); err == nil {
		t.Fatal("same key acquired twice")
	}
}

func TestPerKeyReclaimsSlots(t *testing.T) {
	p := NewPerKey()
	ctx := context.Background()

	release, err := p.Acquire(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, _ = p.Acquire(short, "a") // times out, must drop its ref

	release()
	if p.Len() != 0 {
		t.Fatalf("Len = %d after release, want 0", p.Len())
	}
}
