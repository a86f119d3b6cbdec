// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bitonic

// DefaultParallelThreshold is the padded length from which a Runner, if set,
// is used to split each sub-stage. Below it the dispatch overhead dominates.
const DefaultParallelThreshold = 1 << 14

// Runner splits [0, n) into contiguous chunks and runs fn on each, returning
// once all chunks are done. parallel.WorkerPool implements it.
type Runner interface {
	ParallelFor(n int, fn func(start, end int))
}

// Config controls a single network run.
type Config struct {
	// NaN selects the canonical position of NaN values.
	NaN NaNOrder

	// TieBreakOffset makes equal keys compare by payload, giving the unique
	// (key, payload) order instead of the network's natural order.
	TieBreakOffset bool

	// Runner parallelises each sub-stage across positions. Nil runs serially.
	Runner Runner

	// ParallelThreshold is the minimum padded length for using Runner.
	// Zero means DefaultParallelThreshold.
	ParallelThreshold int
}

// Sort sorts one channel's values, carrying offsets in lock-step, and returns
// the values and offsets in ascending value order. Inputs are not modified.
// len(offsets) must equal len(values).
func Sort(values []float32, offsets []uint32, cfg Config) ([]float32, []uint32) {
	n := len(values)
	if n == 0 {
		return []float32{}, []uint32{}
	}

	keys, payloads := Pad(Keys(values, cfg.NaN), offsets)
	Network(keys, payloads, cfg)

	sortedValues := make([]float32, n)
	sortedOffsets := make([]uint32, n)
	for i := range n {
		sortedValues[i] = Value(keys[i])
	}
	copy(sortedOffsets, payloads[:n])
	return sortedValues, sortedOffsets
}

// Network runs the full bitonic network in place over padded key and payload
// buffers. len(keys) must be a power of two and equal len(payloads).
func Network(keys, payloads []uint32, cfg Config) {
	p := len(keys)
	if p <= 1 {
		return
	}
	if !IsPowerOfTwo(p) || len(payloads) != p {
		panic("bitonic: network buffers must share a power-of-two length")
	}

	threshold := cfg.ParallelThreshold
	if threshold <= 0 {
		threshold = DefaultParallelThreshold
	}
	runner := cfg.Runner
	if p < threshold {
		runner = nil
	}

	for _, st := range Stages(p) {
		if runner == nil {
			CompareExchange(keys, payloads, st, 0, p, cfg.TieBreakOffset)
			continue
		}
		runner.ParallelFor(p, func(start, end int) {
			CompareExchange(keys, payloads, st, start, end, cfg.TieBreakOffset)
		})
	}
}

// CompareExchange applies one sub-stage to positions [start, end). Each pair
// (i, i^J) is owned by its lower index, so disjoint ranges never touch the
// same pair and may run concurrently.
func CompareExchange(keys, payloads []uint32, st Stage, start, end int, tieBreak bool) {
	j := int(st.J)
	k := int(st.K)
	for i := start; i < end; i++ {
		ix := i ^ j
		if ix <= i {
			continue
		}

		var swap bool
		if i&k == 0 {
			swap = outOfOrder(keys[i], keys[ix], payloads[i], payloads[ix], tieBreak)
		} else {
			swap = outOfOrder(keys[ix], keys[i], payloads[ix], payloads[i], tieBreak)
		}
		if swap {
			keys[i], keys[ix] = keys[ix], keys[i]
			payloads[i], payloads[ix] = payloads[ix], payloads[i]
		}
	}
}

// outOfOrder reports whether (ka, pa) must move after (kb, pb). Equal keys
// only count when tieBreak is set.
func outOfOrder(ka, kb, pa, pb uint32, tieBreak bool) bool {
	if ka != kb {
		return ka > kb
	}
	return tieBreak && pa > pb
}
