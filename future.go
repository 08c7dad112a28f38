package oncecache

import "context"

// Future is the result of an asynchronous fetch. It resolves exactly once.
type Future[V any] struct {
	done chan struct{}
	v    V
	err  error
}

// Go runs fn on a new goroutine and returns its Future. A panic in fn
// resolves the Future with an error instead of crashing the process.
func Go[V any](fn func() (V, error)) *Future[V] {
	f := &Future[V]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				var zero V
				f.v, f.err = zero, &panicError{v: r}
			}
		}()
		f.v, f.err = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[V]) Done() <-chan struct{} { return f.done }

// Await blocks until the result is available or ctx is done. Giving up on
// ctx does not cancel the underlying work; cancel the ctx passed to the
// async call for that.
func (f *Future[V]) Await(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.v, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}
