package verify

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/gogpu/pixsort"
	"github.com/gogpu/pixsort/internal/bitonic"
)

// CPUBackend runs the CPU bitonic network.
type CPUBackend struct {
	Sorter *pixsort.Sorter
}

// NewCPUBackend wraps s. A nil s uses the package-level serial sorter.
func NewCPUBackend(s *pixsort.Sorter) *CPUBackend {
	return &CPUBackend{Sorter: s}
}

// Name implements Backend.
func (b *CPUBackend) Name() string { return "cpu" }

// SortMultiChannel implements Backend.
func (b *CPUBackend) SortMultiChannel(ctx context.Context, channels [][]float32, offsets []uint32, channelCount int) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.Sorter == nil {
		return pixsort.SortMultiChannel(channels, offsets, channelCount)
	}
	return b.Sorter.SortMultiChannel(channels, offsets, channelCount)
}

// NaiveBackend sorts each channel with a comparison sort on the same keys as
// the network. Ties keep input order, or follow the offset under
// TieBreakOffset, so its output is the unique reference order the network
// matches up to equal values.
type NaiveBackend struct {
	TieBreak pixsort.TieBreak
	NaN      pixsort.NaNPolicy
}

// Name implements Backend.
func (b NaiveBackend) Name() string { return "naive" }

// SortMultiChannel implements Backend.
func (b NaiveBackend) SortMultiChannel(ctx context.Context, channels [][]float32, offsets []uint32, channelCount int) ([]uint32, error) {
	if err := pixsort.ValidateShape(channels, offsets, channelCount); err != nil {
		return nil, err
	}
	nan := bitonic.NaNLast
	if b.NaN == pixsort.NaNFirst {
		nan = bitonic.NaNFirst
	}

	type entry struct {
		key uint32
		off uint32
	}
	sorted := make([]pixsort.Channel, len(channels))
	entries := make([]entry, len(offsets))
	for c, values := range channels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, v := range values {
			if v != v && b.NaN == pixsort.NaNReject {
				return nil, fmt.Errorf("%w: channel %d index %d", pixsort.ErrNaNValue, c, i)
			}
			entries[i] = entry{key: bitonic.Key(v, nan), off: offsets[i]}
		}
		slices.SortStableFunc(entries, func(x, y entry) int {
			if r := cmp.Compare(x.key, y.key); r != 0 || b.TieBreak != pixsort.TieBreakOffset {
				return r
			}
			return cmp.Compare(x.off, y.off)
		})

		sorted[c].Offsets = make([]uint32, len(entries))
		for i, e := range entries {
			sorted[c].Offsets[i] = e.off
		}
	}
	return pixsort.Unpack(sorted)
}
