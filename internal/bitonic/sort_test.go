// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bitonic

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
)

func TestSortScenario(t *testing.T) {
	values, offsets := Sort([]float32{3, 1, 2}, []uint32{10, 20, 30}, Config{})

	if want := []uint32{20, 30, 10}; !slices.Equal(offsets, want) {
		t.Errorf("offsets = %v, want %v", offsets, want)
	}
	if want := []float32{1, 2, 3}; !slices.Equal(values, want) {
		t.Errorf("values = %v, want %v", values, want)
	}
}

func TestSortBoundaries(t *testing.T) {
	v, o := Sort(nil, nil, Config{})
	if len(v) != 0 || len(o) != 0 {
		t.Errorf("empty input returned %d/%d entries", len(v), len(o))
	}

	_, o = Sort([]float32{7}, []uint32{123}, Config{})
	if len(o) != 1 || o[0] != 123 {
		t.Errorf("single element = %v, want [123]", o)
	}

	_, o = Sort([]float32{4, 0, 3, 1, 2}, []uint32{4, 0, 3, 1, 2}, Config{})
	if want := []uint32{0, 1, 2, 3, 4}; !slices.Equal(o, want) {
		t.Errorf("L=5 = %v, want %v", o, want)
	}
}

func TestSortDoesNotModifyInput(t *testing.T) {
	values := []float32{3, 1, 2}
	offsets := []uint32{0, 1, 2}
	Sort(values, offsets, Config{})

	if !slices.Equal(values, []float32{3, 1, 2}) || !slices.Equal(offsets, []uint32{0, 1, 2}) {
		t.Errorf("inputs modified: %v %v", values, offsets)
	}
}

func TestSortInfinityNotDisplacedBySentinel(t *testing.T) {
	inf := float32(math.Inf(1))
	values := []float32{inf, 1, inf, 0, inf}
	offsets := []uint32{11, 12, 13, 14, 15}

	got, off := Sort(values, offsets, Config{})
	if len(off) != 5 {
		t.Fatalf("got %d offsets, want 5", len(off))
	}
	if !slices.Equal(got, []float32{0, 1, inf, inf, inf}) {
		t.Errorf("values = %v", got)
	}
	sorted := slices.Clone(off)
	slices.Sort(sorted)
	if !slices.Equal(sorted, []uint32{11, 12, 13, 14, 15}) {
		t.Errorf("offsets %v lost an entry to padding", off)
	}
}

func TestSortNaNPlacement(t *testing.T) {
	nan := float32(math.NaN())
	values := []float32{2, nan, float32(math.Inf(1)), -1, nan, float32(math.Inf(-1))}
	offsets := []uint32{0, 1, 2, 3, 4, 5}

	_, last := Sort(values, offsets, Config{NaN: NaNLast, TieBreakOffset: true})
	if want := []uint32{5, 3, 0, 2, 1, 4}; !slices.Equal(last, want) {
		t.Errorf("NaNLast = %v, want %v", last, want)
	}

	_, first := Sort(values, offsets, Config{NaN: NaNFirst, TieBreakOffset: true})
	if want := []uint32{1, 4, 5, 3, 0, 2}; !slices.Equal(first, want) {
		t.Errorf("NaNFirst = %v, want %v", first, want)
	}
}

func TestSortTieBreakOffset(t *testing.T) {
	values := []float32{1, 1, 0, 1, 0, 1, 1}
	offsets := []uint32{9, 3, 8, 1, 2, 7, 5}

	_, got := Sort(values, offsets, Config{TieBreakOffset: true})
	if want := []uint32{2, 8, 1, 3, 5, 7, 9}; !slices.Equal(got, want) {
		t.Errorf("offsets = %v, want %v", got, want)
	}
}

func TestSortMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for _, n := range []int{2, 3, 7, 16, 33, 100, 257, 1000} {
		values := make([]float32, n)
		offsets := make([]uint32, n)
		for i := range n {
			// Coarse quantisation forces plenty of ties.
			values[i] = float32(rng.IntN(n/2+1)) - float32(n)/4
			offsets[i] = uint32(i)
		}

		gotValues, gotOffsets := Sort(values, offsets, Config{})

		want := slices.Clone(values)
		slices.Sort(want)
		if !slices.Equal(gotValues, want) {
			t.Fatalf("n=%d: value order differs from reference", n)
		}

		seen := make([]bool, n)
		for i, off := range gotOffsets {
			if seen[off] {
				t.Fatalf("n=%d: offset %d appears twice", n, off)
			}
			seen[off] = true
			if values[off] != gotValues[i] {
				t.Fatalf("n=%d: offset %d carries %v, want %v", n, off, values[off], gotValues[i])
			}
		}

		_, tb := Sort(values, offsets, Config{TieBreakOffset: true})
		ref := slices.Clone(offsets)
		slices.SortStableFunc(ref, func(a, b uint32) int {
			switch {
			case values[a] < values[b]:
				return -1
			case values[a] > values[b]:
				return 1
			}
			return 0
		})
		if !slices.Equal(tb, ref) {
			t.Fatalf("n=%d: tie-broken offsets differ from stable reference", n)
		}
	}
}

func TestSortIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	values := make([]float32, 300)
	offsets := make([]uint32, 300)
	for i := range values {
		values[i] = rng.Float32()
		offsets[i] = uint32(i)
	}

	v1, o1 := Sort(values, offsets, Config{})
	v2, o2 := Sort(v1, o1, Config{})
	if !slices.Equal(v1, v2) || !slices.Equal(o1, o2) {
		t.Error("re-sorting a sorted sequence changed it")
	}
}

// chunkRunner is a Runner that runs each chunk on its own goroutine.
type chunkRunner struct {
	chunks int
	calls  int
}

func (r *chunkRunner) ParallelFor(n int, fn func(start, end int)) {
	r.calls++
	size := (n + r.chunks - 1) / r.chunks
	var wg sync.WaitGroup
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(start, end)
		}()
	}
	wg.Wait()
}

func TestNetworkParallelMatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	const n = 4096

	keys := make([]uint32, n)
	payloads := make([]uint32, n)
	for i := range n {
		keys[i] = rng.Uint32N(512)
		payloads[i] = uint32(i)
	}

	serialKeys, serialPayloads := slices.Clone(keys), slices.Clone(payloads)
	Network(serialKeys, serialPayloads, Config{})

	runner := &chunkRunner{chunks: 7}
	Network(keys, payloads, Config{Runner: runner, ParallelThreshold: 64})

	if runner.calls != StageCount(n) {
		t.Errorf("runner used for %d stages, want %d", runner.calls, StageCount(n))
	}
	if !slices.Equal(keys, serialKeys) || !slices.Equal(payloads, serialPayloads) {
		t.Error("parallel network diverged from serial network")
	}
	if !isSorted(keys) {
		t.Error("keys not sorted")
	}
}

func TestNetworkBelowThresholdIsSerial(t *testing.T) {
	runner := &chunkRunner{chunks: 2}
	keys := []uint32{3, 2, 1, 0}
	Network(keys, []uint32{0, 1, 2, 3}, Config{Runner: runner})

	if runner.calls != 0 {
		t.Errorf("runner called %d times below threshold", runner.calls)
	}
}

func TestNetworkRejectsBadLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non power-of-two buffer")
		}
	}()
	Network(make([]uint32, 6), make([]uint32, 6), Config{})
}

func isSorted(keys []uint32) bool {
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			return false
		}
	}
	return true
}
