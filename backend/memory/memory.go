// Package memory is an in-process Backend and LeaseStore.
//
// One Store can be shared by several coordinators to stand in for a fleet of
// nodes sharing a remote store. Expiry is evaluated lazily against Clock, so
// tests can move time forward without sleeping.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/unkn0wn-root/oncecache/backend"
)

var ErrClosed = errors.New("memory: store closed")

// Clock returns the current time. nil means time.Now.
type Clock func() time.Time

type Config struct {
	Clock Clock
}

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type Store struct {
	mu     sync.Mutex
	m      map[string]entry
	now    Clock
	closed bool
}

var (
	_ backend.Backend    = (*Store)(nil)
	_ backend.LeaseStore = (*Store)(nil)
)

func New(cfg Config) *Store {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Store{m: make(map[string]entry), now: now}
}

// get returns the live entry for key, dropping it if expired. Caller holds mu.
func (s *Store) get(key string) (entry, bool) {
	e, ok := s.m[key]
	if !ok {
		return entry{}, false
	}
	if !e.exp.IsZero() && !s.now().Before(e.exp) {
		delete(s.m, key)
		return entry{}, false
	}
	return e, true
}

func (s *Store) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, backend.Unavailable("exists", key, ErrClosed)
	}
	_, ok := s.get(key)
	return ok, nil
}

func (s *Store) Read(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, backend.Unavailable("read", key, ErrClosed)
	}
	e, ok := s.get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.v...), true, nil
}

func (s *Store) Write(_ context.Context, key string, value []byte, ttl time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, backend.Unavailable("write", key, ErrClosed)
	}
	s.m[key] = entry{v: append([]byte(nil), value...), exp: s.expiry(ttl)}
	return value, nil
}

func (s *Store) SetIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, backend.Unavailable("setnx", key, ErrClosed)
	}
	if _, ok := s.get(key); ok {
		return false, nil
	}
	s.m[key] = entry{v: []byte(value), exp: s.expiry(ttl)}
	return true, nil
}

func (s *Store) Owner(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, backend.Unavailable("owner", key, ErrClosed)
	}
	e, ok := s.get(key)
	if !ok {
		return "", false, nil
	}
	return string(e.v), true, nil
}

func (s *Store) DeleteIfOwner(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, backend.Unavailable("delete-if-owner", key, ErrClosed)
	}
	e, ok := s.get(key)
	if !ok || string(e.v) != value {
		return false, nil
	}
	delete(s.m, key)
	return true, nil
}

// Len reports the number of live entries, including lease records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.m {
		if _, ok := s.get(k); ok {
			n++
		}
	}
	return n
}

// Close makes every later call fail with ErrUnavailable. Safe to call twice.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.m = make(map[string]entry)
	s.mu.Unlock()
	return nil
}
