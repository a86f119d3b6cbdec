package pixsort

import "slices"

// Channel is one channel's working data: its values and the pixel offsets
// carried alongside them. After sorting, Values is ascending and Offsets[i]
// is the original offset of Values[i].
type Channel struct {
	Values  []float32
	Offsets []uint32
}

// Len returns the number of entries in the channel.
func (c Channel) Len() int {
	return len(c.Offsets)
}

// ValidateShape checks that channelCount matches len(channels), that there is
// at least one channel and that every channel has len(offsets) values.
// Errors wrap ErrInvalidInputShape.
func ValidateShape(channels [][]float32, offsets []uint32, channelCount int) error {
	if channelCount <= 0 {
		return shapeError("channel count %d, want at least 1", channelCount)
	}
	if channelCount != len(channels) {
		return shapeError("channel count %d, but %d channel arrays supplied", channelCount, len(channels))
	}
	for c, values := range channels {
		if len(values) != len(offsets) {
			return shapeError("channel %d has %d values, want %d", c, len(values), len(offsets))
		}
	}
	return nil
}

// Pack splits channel-major input into one Channel per value array. Each
// Channel gets its own copy of values and offsets so channels can be
// permuted independently. Zero-length input is valid and yields empty
// channels.
func Pack(channels [][]float32, offsets []uint32) ([]Channel, error) {
	if err := ValidateShape(channels, offsets, len(channels)); err != nil {
		return nil, err
	}

	packed := make([]Channel, len(channels))
	for c, values := range channels {
		packed[c] = Channel{
			Values:  slices.Clone(values),
			Offsets: slices.Clone(offsets),
		}
		if packed[c].Values == nil {
			packed[c].Values = []float32{}
		}
		if packed[c].Offsets == nil {
			packed[c].Offsets = []uint32{}
		}
	}
	return packed, nil
}

// Unpack interleaves sorted channels into one buffer of length L*N where
// index i*N+c holds channel c's i-th offset.
func Unpack(sorted []Channel) ([]uint32, error) {
	n := len(sorted)
	if n == 0 {
		return nil, shapeError("no channels to unpack")
	}

	l := sorted[0].Len()
	for c := 1; c < n; c++ {
		if sorted[c].Len() != l {
			return nil, shapeError("channel %d has %d offsets, want %d", c, sorted[c].Len(), l)
		}
	}

	out := make([]uint32, l*n)
	for c, ch := range sorted {
		for i, off := range ch.Offsets {
			out[i*n+c] = off
		}
	}
	return out, nil
}
