// Package codec serializes cached values to bytes and back.
//
// The coordinator stores whatever Encode returns (inside its own entry frame)
// and hands Read results to Decode, so a Codec must round-trip exactly.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
