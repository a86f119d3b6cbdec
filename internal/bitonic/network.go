// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bitonic

import "math/bits"

// Stage is one sub-stage of the network: block size K and partner distance J.
type Stage struct {
	K uint32
	J uint32
}

// NextPowerOfTwo returns the smallest power of two >= n. It returns 1 for n <= 1.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// StageCount returns the number of sub-stages for a padded length p,
// log2(p) * (log2(p) + 1) / 2.
func StageCount(p int) int {
	if p <= 1 {
		return 0
	}
	lg := bits.Len(uint(p)) - 1
	return lg * (lg + 1) / 2
}

// Stages returns the (k, j) schedule for a padded length p in dispatch order.
// p must be a power of two.
func Stages(p int) []Stage {
	stages := make([]Stage, 0, StageCount(p))
	for k := 2; k <= p; k <<= 1 {
		for j := k >> 1; j > 0; j >>= 1 {
			stages = append(stages, Stage{K: uint32(k), J: uint32(j)}) //nolint:gosec // p fits uint32 for GPU-sized buffers
		}
	}
	return stages
}

// Pad copies keys and payloads into buffers of length NextPowerOfTwo(len(keys))
// and fills the tail with sentinel entries. The inputs are not modified.
func Pad(keys, payloads []uint32) (paddedKeys, paddedPayloads []uint32) {
	n := len(keys)
	p := NextPowerOfTwo(n)

	paddedKeys = make([]uint32, p)
	paddedPayloads = make([]uint32, p)
	copy(paddedKeys, keys)
	copy(paddedPayloads, payloads[:n])

	for i := n; i < p; i++ {
		paddedKeys[i] = SentinelKey
		paddedPayloads[i] = SentinelPayload
	}
	return paddedKeys, paddedPayloads
}
