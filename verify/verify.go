// Package verify cross-checks pixsort backends.
//
// A Backend is anything that sorts channel-major input into channel-major
// offsets: the CPU network, the GPU kernel or the naive reference sort.
// Compare runs two backends on one fixture and reports where they diverge;
// CheckProperties checks a single output against the sort contract without a
// reference.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/pixsort"
	"github.com/gogpu/pixsort/fixture"
	"github.com/gogpu/pixsort/internal/bitonic"
)

// Backend sorts channel-major input. gpu.Sorter satisfies it directly.
type Backend interface {
	Name() string
	SortMultiChannel(ctx context.Context, channels [][]float32, offsets []uint32, channelCount int) ([]uint32, error)
}

// ErrPropertyViolation is wrapped by CheckProperties failures.
var ErrPropertyViolation = errors.New("verify: property violation")

// Report describes how a candidate backend's output relates to a reference.
type Report struct {
	Reference string
	Candidate string

	Channels int
	Length   int

	// Equal is true when both outputs match exactly.
	Equal bool

	// Mismatches counts differing output positions; FirstMismatch is the
	// first of them, or -1.
	Mismatches    int
	FirstMismatch int

	// TieOnly is true when every mismatch swaps offsets whose values are
	// equal in that channel. Such outputs both satisfy the sort contract.
	TieOnly bool

	// Diff is a cmp.Diff excerpt of the first mismatching channel.
	Diff string
}

// OK reports whether the candidate is acceptable: equal, or differing only
// among equal values.
func (r *Report) OK() bool {
	return r.Equal || r.TieOnly
}

func (r *Report) String() string {
	switch {
	case r.Equal:
		return fmt.Sprintf("%s == %s (N=%d L=%d)", r.Candidate, r.Reference, r.Channels, r.Length)
	case r.TieOnly:
		return fmt.Sprintf("%s ~= %s (N=%d L=%d, %d tie-order differences)", r.Candidate, r.Reference, r.Channels, r.Length, r.Mismatches)
	default:
		return fmt.Sprintf("%s != %s (N=%d L=%d, %d mismatches, first at %d)", r.Candidate, r.Reference, r.Channels, r.Length, r.Mismatches, r.FirstMismatch)
	}
}

// maxDiffEntries bounds the channel excerpt passed to cmp.Diff.
const maxDiffEntries = 16

// Compare runs ref and cand on c and reports the differences. When c
// carries an expected output, ref's output is checked against it first.
func Compare(ctx context.Context, ref, cand Backend, c *fixture.Case) (*Report, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	n := c.ChannelCount()

	want, err := ref.SortMultiChannel(ctx, c.Channels, c.Offsets, n)
	if err != nil {
		return nil, fmt.Errorf("verify: %s: %w", ref.Name(), err)
	}
	if c.Expected != nil && !slices.Equal(want, c.Expected) {
		return nil, fmt.Errorf("%w: %s disagrees with the recorded output", ErrPropertyViolation, ref.Name())
	}
	got, err := cand.SortMultiChannel(ctx, c.Channels, c.Offsets, n)
	if err != nil {
		return nil, fmt.Errorf("verify: %s: %w", cand.Name(), err)
	}
	if len(got) != len(want) {
		return nil, fmt.Errorf("%w: %s returned %d offsets, want %d", ErrPropertyViolation, cand.Name(), len(got), len(want))
	}

	r := &Report{
		Reference:     ref.Name(),
		Candidate:     cand.Name(),
		Channels:      n,
		Length:        c.Len(),
		FirstMismatch: -1,
	}

	index := offsetIndex(c.Offsets)
	tieOnly := true
	for i := range want {
		if want[i] == got[i] {
			continue
		}
		r.Mismatches++
		if r.FirstMismatch < 0 {
			r.FirstMismatch = i
		}
		ch := c.Channels[i%n]
		wi, wok := index[want[i]]
		gi, gok := index[got[i]]
		if !wok || !gok || !sameValue(ch[wi], ch[gi]) {
			tieOnly = false
		}
	}

	r.Equal = r.Mismatches == 0
	r.TieOnly = !r.Equal && tieOnly
	if !r.Equal {
		r.Diff = channelDiff(want, got, n, r.FirstMismatch)
		level := slog.LevelWarn
		if r.TieOnly {
			level = slog.LevelDebug
		}
		pixsort.Logger().Log(ctx, level, "verify: backends disagree",
			"reference", r.Reference,
			"candidate", r.Candidate,
			"mismatches", r.Mismatches,
			"tie_only", r.TieOnly)
	}
	return r, nil
}

// channelDiff returns a cmp.Diff of the channel holding position first,
// limited to a window around it.
func channelDiff(want, got []uint32, n, first int) string {
	c := first % n
	row := first / n
	lo := max(0, row-maxDiffEntries/2)
	hi := min(len(want)/n, lo+maxDiffEntries)

	column := func(out []uint32) []uint32 {
		col := make([]uint32, 0, hi-lo)
		for i := lo; i < hi; i++ {
			col = append(col, out[i*n+c])
		}
		return col
	}
	return fmt.Sprintf("channel %d rows [%d,%d):\n%s", c, lo, hi, cmp.Diff(column(want), column(got)))
}

// offsetIndex maps each offset to its first input position. Duplicate
// offsets are legal; their values are compared through the first position.
func offsetIndex(offsets []uint32) map[uint32]int {
	index := make(map[uint32]int, len(offsets))
	for i, off := range offsets {
		if _, ok := index[off]; !ok {
			index[off] = i
		}
	}
	return index
}

// sameValue reports whether a and b share a sort key: identical bits, or
// both NaN. -0 and +0 are distinct keys.
func sameValue(a, b float32) bool {
	if a != a && b != b {
		return true
	}
	return math.Float32bits(a) == math.Float32bits(b)
}

// CheckProperties verifies out against the sort contract: for each channel
// the output column is ascending in that channel's values and is a
// permutation of offsets. NaNs may appear in one contiguous run at either
// end. Duplicate offsets are matched to input positions in the order they
// appear, so they are only checked reliably when their values agree.
func CheckProperties(channels [][]float32, offsets []uint32, out []uint32) error {
	n := len(channels)
	if err := pixsort.ValidateShape(channels, offsets, n); err != nil {
		return err
	}
	l := len(offsets)
	if len(out) != l*n {
		return fmt.Errorf("%w: output has %d entries, want %d", ErrPropertyViolation, len(out), l*n)
	}

	sortedIn := slices.Clone(offsets)
	slices.Sort(sortedIn)

	// Map each offset to the input positions carrying it, so duplicate
	// offsets consume distinct positions.
	positions := make(map[uint32][]int, l)
	for i, off := range offsets {
		positions[off] = append(positions[off], i)
	}

	column := make([]uint32, l)
	for c, values := range channels {
		for i := range l {
			column[i] = out[i*n+c]
		}

		sortedOut := slices.Clone(column)
		slices.Sort(sortedOut)
		if !slices.Equal(sortedIn, sortedOut) {
			return fmt.Errorf("%w: channel %d is not a permutation of the input offsets", ErrPropertyViolation, c)
		}

		used := make(map[uint32]int, l)
		var prev uint32
		// NaNs must form a prefix or a suffix of the column, never both.
		var sawValue, leadingNaN, trailingNaN bool
		for i, off := range column {
			v := values[positions[off][used[off]]]
			used[off]++
			if v != v {
				switch {
				case !sawValue:
					leadingNaN = true
				case leadingNaN:
					return fmt.Errorf("%w: channel %d row %d: NaN at both ends", ErrPropertyViolation, c, i)
				default:
					trailingNaN = true
				}
				continue
			}
			if trailingNaN {
				return fmt.Errorf("%w: channel %d row %d: value after trailing NaN", ErrPropertyViolation, c, i)
			}
			sawValue = true
			key := bitonic.Key(v, bitonic.NaNLast)
			if key < prev {
				return fmt.Errorf("%w: channel %d row %d: %v after %v", ErrPropertyViolation, c, i, v, bitonic.Value(prev))
			}
			prev = key
		}
	}
	return nil
}
