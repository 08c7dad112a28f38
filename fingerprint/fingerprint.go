// Package fingerprint derives short, stable cache keys from requests.
//
// A request is first rendered to a canonical byte form (same logical request
// => byte-identical rendering), then hashed with xxHash64. The 8 digest bytes
// are base64 encoded, so every Key is exactly 12 printable characters.
//
// xxHash is not a cryptographic hash. Keys index a cache, they are not a
// security boundary.
package fingerprint

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
)

// Key is an opaque fingerprint of a request.
type Key string

func (k Key) String() string { return string(k) }

// Renderer produces the canonical rendering of a request.
// Implementations must be deterministic, including the order of any
// embedded parameters.
type Renderer interface {
	Canonical() ([]byte, error)
}

// Text is a request that is already in canonical textual form.
type Text string

func (t Text) Canonical() ([]byte, error) { return []byte(t), nil }

// String hashes the UTF-8 bytes of s. The empty string is a valid input.
func String(s string) Key {
	return encode(xxhash.Sum64String(s))
}

// Bytes hashes b.
func Bytes(b []byte) Key {
	return encode(xxhash.Sum64(b))
}

// Of renders r and hashes the result.
func Of(r Renderer) (Key, error) {
	if r == nil {
		return "", fmt.Errorf("fingerprint: nil renderer")
	}
	b, err := r.Canonical()
	if err != nil {
		return "", fmt.Errorf("fingerprint: render: %w", err)
	}
	return Bytes(b), nil
}

// Value hashes the core-deterministic CBOR encoding of v (RFC 8949 4.2.1),
// so maps hash identically regardless of iteration order.
func Value(v any) (Key, error) {
	b, err := canonical.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: encode: %w", err)
	}
	return Bytes(b), nil
}

func encode(sum uint64) Key {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], sum)
	return Key(base64.StdEncoding.EncodeToString(b[:]))
}

var canonical = mustCanonicalMode()

func mustCanonicalMode() cbor.EncMode {
	eo := cbor.CoreDetEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}
