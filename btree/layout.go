// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package btree

import "encoding/binary"

// Codec encodes values of a fixed binary size.
// Encodings are little-endian, matching the rest of the on-disk format.
type Codec[T any] interface {
	// Size returns the encoded size in bytes. It must be constant.
	Size() int

	// Encode writes t into dst[:Size()].
	Encode(dst []byte, t T)

	// Decode reads a value from src[:Size()].
	Decode(src []byte) T
}

// Layout describes how keys and values of a tree map to bytes and to each
// other.
//
// Less must be a strict weak ordering: asymmetric and transitive.
// Two keys a, b are equal iff !Less(a, b) && !Less(b, a).
//
// KeyOf projects a value to its key; equal values must have equal keys.
type Layout[K, V any] struct {
	Key   Codec[K]
	Value Codec[V]
	Less  func(a, b K) bool
	KeyOf func(v V) K
}

func (lay *Layout[K, V]) equal(a, b K) bool {
	return !lay.Less(a, b) && !lay.Less(b, a)
}

// compare adapts Less to the three-way form used by sorting.
func (lay *Layout[K, V]) compare(a, b V) int {
	ka, kb := lay.KeyOf(a), lay.KeyOf(b)
	if lay.Less(ka, kb) {
		return -1
	}
	if lay.Less(kb, ka) {
		return 1
	}
	return 0
}

// Uint64Codec encodes uint64 values in 8 little-endian bytes.
type Uint64Codec struct{}

func (Uint64Codec) Size() int { return 8 }

func (Uint64Codec) Encode(dst []byte, v uint64) {
	binary.LittleEndian.PutUint64(dst, v)
}

func (Uint64Codec) Decode(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src)
}

// Int64Codec encodes int64 values in 8 little-endian bytes.
type Int64Codec struct{}

func (Int64Codec) Size() int { return 8 }
func (Int64Codec) Encode(dst []byte, v int64) {
	binary.LittleEndian.PutUint64(dst, uint64(v))
}
func (Int64Codec) Decode(src []byte) int64 {
	return int64(binary.LittleEndian.Uint64(src))
}

// BytesCodec encodes byte strings in a fixed width, zero-padded.
// Strings longer than the width are truncated.
type BytesCodec int

func (c BytesCodec) Size() int { return int(c) }

func (c BytesCodec) Encode(dst []byte, v []byte) {
	n := copy(dst[:c], v)
	for i := n; i < int(c); i++ {
		dst[i] = 0
	}
}

func (c BytesCodec) Decode(src []byte) []byte {
	v := make([]byte, c)
	copy(v, src[:c])
	return v
}

// Uint64Layout is the identity layout over uint64: the value is its own
// key. Used by the btview tool and throughout the tests.
func Uint64Layout() Layout[uint64, uint64] {
	return Layout[uint64, uint64]{
		Key:   Uint64Codec{},
		Value: Uint64Codec{},
		Less:  func(a, b uint64) bool { return a < b },
		KeyOf: func(v uint64) uint64 { return v },
	}
}
