package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestUnavailableWrapsStoreFailures(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("read", "q:abc", cause)
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("want ErrUnavailable wrapping cause, got %v", err)
	}
	if Unavailable("read", "q:abc", nil) != nil {
		t.Fatal("nil error was wrapped")
	}
}

func TestUnavailablePassesContextErrors(t *testing.T) {
	for _, cause := range []error{
		context.Canceled,
		context.DeadlineExceeded,
		fmt.Errorf("dial: %w", context.DeadlineExceeded),
	} {
		err := Unavailable("write", "q:abc", cause)
		if errors.Is(err, ErrUnavailable) {
			t.Errorf("%v: context error reported as unavailable", cause)
		}
		if err != cause {
			t.Errorf("%v: got %v, want it unchanged", cause, err)
		}
	}
}
