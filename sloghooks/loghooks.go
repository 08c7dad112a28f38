// Package sloghooks reports oncecache events to a *slog.Logger.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/oncecache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery       uint64
	ContendedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr       atomic.Uint64
	contendedCtr atomic.Uint64
}

var _ oncecache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(storageKey string, age time.Duration) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("oncecache.hit",
		"key", h.redact(storageKey),
		"age", age)
}

func (h *Hooks) Miss(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Debug("oncecache.miss", "key", h.redact(storageKey))
}

func (h *Hooks) Computed(storageKey string, took time.Duration, err error) {
	if h.l == nil {
		return
	}
	if err != nil {
		h.l.Warn("oncecache.compute_failed",
			"key", h.redact(storageKey),
			"took", took,
			"err", err)
		return
	}
	h.l.Info("oncecache.computed",
		"key", h.redact(storageKey),
		"took", took)
}

func (h *Hooks) LeaseContended(storageKey string) {
	if h.l == nil || !sample(h.opts.ContendedEvery, &h.contendedCtr) {
		return
	}
	h.l.Debug("oncecache.lease_contended", "key", h.redact(storageKey))
}

func (h *Hooks) LeaseWaited(storageKey string, took time.Duration, err error) {
	if h.l == nil {
		return
	}
	if err != nil {
		h.l.Warn("oncecache.lease_wait_failed",
			"key", h.redact(storageKey),
			"took", took,
			"err", err)
		return
	}
	h.l.Debug("oncecache.lease_waited",
		"key", h.redact(storageKey),
		"took", took)
}

func (h *Hooks) WriteFenced(storageKey, owner string) {
	if h.l == nil {
		return
	}
	h.l.Warn("oncecache.write_fenced",
		"key", h.redact(storageKey),
		"owner", owner)
}

func (h *Hooks) CorruptEntry(storageKey, reason string) {
	if h.l == nil {
		return
	}
	h.l.Warn("oncecache.corrupt_entry",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) LeaseReleaseError(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("oncecache.lease_release_error",
		"key", h.redact(storageKey),
		"err", err)
}
