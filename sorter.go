package pixsort

import (
	"fmt"
	"sync"

	"github.com/gogpu/pixsort/internal/bitonic"
	"github.com/gogpu/pixsort/internal/parallel"
)

// Sorter sorts pixel offsets by channel values with the bitonic network.
//
// Channels are sorted concurrently, one goroutine per channel joined before
// unpacking. Channels whose padded length reaches the parallel threshold
// additionally split each network stage across the worker pool.
//
// A Sorter is safe for concurrent use. Call Close to stop its workers.
type Sorter struct {
	opts options

	// mu is held shared for the length of each sort and exclusively by
	// Close, so the pool is never closed under a running network.
	mu     sync.RWMutex
	pool   *parallel.WorkerPool
	closed bool
}

// serial backs the package-level functions: default options, no pool.
var serial = &Sorter{opts: defaultOptions()}

// New creates a Sorter.
func New(opts ...Option) *Sorter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Sorter{opts: o}
	if o.workers != 1 {
		s.pool = parallel.NewWorkerPool(o.workers)
	}
	return s
}

// Close waits for running sorts to finish, then releases the worker pool.
// A closed Sorter keeps working serially.
func (s *Sorter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.pool != nil {
		s.pool.Close()
	}
}

// TieBreak returns the configured tie-break mode.
func (s *Sorter) TieBreak() TieBreak {
	return s.opts.tieBreak
}

// NaNPolicy returns the configured NaN policy.
func (s *Sorter) NaNPolicy() NaNPolicy {
	return s.opts.nan
}

// SortSingleChannel returns offsets ordered by ascending value.
func (s *Sorter) SortSingleChannel(values []float32, offsets []uint32) ([]uint32, error) {
	return s.SortMultiChannel([][]float32{values}, offsets, 1)
}

// SortMultiChannel sorts each channel independently and returns the
// channel-major flattened offsets: index i*channelCount+c holds the offset of
// the i-th smallest value of channel c.
func (s *Sorter) SortMultiChannel(channels [][]float32, offsets []uint32, channelCount int) ([]uint32, error) {
	if err := ValidateShape(channels, offsets, channelCount); err != nil {
		return nil, err
	}
	sorted, err := s.SortChannels(channels, offsets)
	if err != nil {
		return nil, err
	}
	return Unpack(sorted)
}

// SortChannels sorts each channel and returns the sorted values and offsets
// per channel, in input order.
func (s *Sorter) SortChannels(channels [][]float32, offsets []uint32) ([]Channel, error) {
	packed, err := Pack(channels, offsets)
	if err != nil {
		return nil, err
	}
	if s.opts.nan == NaNReject {
		if err := rejectNaN(packed); err != nil {
			return nil, err
		}
	}

	cfg := bitonic.Config{
		NaN:               s.opts.nan.order(),
		TieBreakOffset:    s.opts.tieBreak == TieBreakOffset,
		ParallelThreshold: s.opts.parallelThreshold,
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool != nil && !s.closed {
		cfg.Runner = s.pool
	}

	sortOne := func(ch *Channel) {
		ch.Values, ch.Offsets = bitonic.Sort(ch.Values, ch.Offsets, cfg)
	}

	if len(packed) == 1 {
		sortOne(&packed[0])
	} else {
		var wg sync.WaitGroup
		wg.Add(len(packed))
		for c := range packed {
			go func() {
				defer wg.Done()
				sortOne(&packed[c])
			}()
		}
		wg.Wait()
	}

	l := len(offsets)
	p := bitonic.NextPowerOfTwo(l)
	Logger().Debug("pixsort: channels sorted",
		"channels", len(packed),
		"length", l,
		"padded", p,
		"stages", bitonic.StageCount(p),
		"parallel", cfg.Runner != nil && p >= cfg.ParallelThreshold)

	return packed, nil
}

func rejectNaN(channels []Channel) error {
	for c, ch := range channels {
		for i, v := range ch.Values {
			if v != v {
				return fmt.Errorf("%w: channel %d index %d", ErrNaNValue, c, i)
			}
		}
	}
	return nil
}

// SortSingleChannel returns offsets ordered by ascending value, using default
// options on the calling goroutine.
func SortSingleChannel(values []float32, offsets []uint32) ([]uint32, error) {
	return serial.SortSingleChannel(values, offsets)
}

// SortMultiChannel sorts each channel independently with default options and
// returns the channel-major flattened offsets.
func SortMultiChannel(channels [][]float32, offsets []uint32, channelCount int) ([]uint32, error) {
	return serial.SortMultiChannel(channels, offsets, channelCount)
}
