// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bitonic

import "math"

// NaNOrder selects where NaN values land in the sorted order.
type NaNOrder uint8

const (
	// NaNLast orders every NaN after +Inf.
	NaNLast NaNOrder = iota

	// NaNFirst orders every NaN before -Inf.
	NaNFirst
)

const (
	signBit = 0x80000000

	// canonicalNaN is the quiet NaN used for NaNLast.
	canonicalNaN = 0x7FC00000

	// canonicalNegNaN is the quiet NaN used for NaNFirst.
	canonicalNegNaN = 0xFFC00000

	// SentinelKey pads the working buffer. It is strictly greater than the key
	// of +Inf and of either canonical NaN, so a real entry never ties with it.
	SentinelKey uint32 = math.MaxUint32

	// SentinelPayload is the payload carried by padding entries.
	SentinelPayload uint32 = 0
)

// Key maps a float32 to a uint32 whose unsigned order matches the float order.
// Positive values get the sign bit flipped, negative values get every bit
// flipped. NaN payloads are canonicalised according to nan.
func Key(v float32, nan NaNOrder) uint32 {
	bits := math.Float32bits(v)
	if v != v {
		if nan == NaNFirst {
			bits = canonicalNegNaN
		} else {
			bits = canonicalNaN
		}
	}
	if bits&signBit != 0 {
		return ^bits
	}
	return bits ^ signBit
}

// Value is the inverse of Key.
func Value(key uint32) float32 {
	if key&signBit != 0 {
		return math.Float32frombits(key ^ signBit)
	}
	return math.Float32frombits(^key)
}

// Keys converts values to sort keys.
func Keys(values []float32, nan NaNOrder) []uint32 {
	keys := make([]uint32, len(values))
	for i, v := range values {
		keys[i] = Key(v, nan)
	}
	return keys
}
