package pixsort

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"
	"time"
)

func TestSortSingleChannelScenario(t *testing.T) {
	got, err := SortSingleChannel([]float32{3.0, 1.0, 2.0}, []uint32{10, 20, 30})
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint32{20, 30, 10}; !slices.Equal(got, want) {
		t.Errorf("SortSingleChannel = %v, want %v", got, want)
	}
}

func TestSortMultiChannelScenario(t *testing.T) {
	got, err := SortMultiChannel([][]float32{{5, 1}, {2, 9}}, []uint32{100, 200}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint32{200, 100, 100, 200}; !slices.Equal(got, want) {
		t.Errorf("SortMultiChannel = %v, want %v", got, want)
	}
}

func TestSortBoundaries(t *testing.T) {
	got, err := SortSingleChannel([]float32{42}, []uint32{7})
	if err != nil || !slices.Equal(got, []uint32{7}) {
		t.Errorf("L=1: %v, %v", got, err)
	}

	got, err = SortMultiChannel([][]float32{{42}, {-1}, {0}}, []uint32{7}, 3)
	if err != nil || !slices.Equal(got, []uint32{7, 7, 7}) {
		t.Errorf("L=1 N=3: %v, %v", got, err)
	}

	got, err = SortSingleChannel([]float32{5, 4, 3, 2, 1}, []uint32{0, 1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint32{4, 3, 2, 1, 0}; !slices.Equal(got, want) {
		t.Errorf("L=5: %v, want %v", got, want)
	}

	got, err = SortMultiChannel([][]float32{{}, {}}, []uint32{}, 2)
	if err != nil {
		t.Fatalf("empty input error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("empty input = %#v, want empty non-nil", got)
	}
}

func TestSortShapeErrors(t *testing.T) {
	tests := []struct {
		name     string
		channels [][]float32
		offsets  []uint32
		count    int
	}{
		{"length mismatch", [][]float32{{1, 2}}, []uint32{1}, 1},
		{"count mismatch", [][]float32{{1}, {2}}, []uint32{1}, 3},
		{"no channels", nil, []uint32{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SortMultiChannel(tt.channels, tt.offsets, tt.count)
			if !errors.Is(err, ErrInvalidInputShape) {
				t.Errorf("error = %v, want ErrInvalidInputShape", err)
			}
		})
	}
}

func TestSortNaNPolicies(t *testing.T) {
	nan := float32(math.NaN())
	values := []float32{nan, 1, 0}
	offsets := []uint32{0, 1, 2}

	s := New(WithWorkers(1))
	got, err := s.SortSingleChannel(values, offsets)
	if err != nil || !slices.Equal(got, []uint32{2, 1, 0}) {
		t.Errorf("NaNLast: %v, %v", got, err)
	}

	s = New(WithWorkers(1), WithNaNPolicy(NaNFirst))
	got, err = s.SortSingleChannel(values, offsets)
	if err != nil || !slices.Equal(got, []uint32{0, 2, 1}) {
		t.Errorf("NaNFirst: %v, %v", got, err)
	}

	s = New(WithWorkers(1), WithNaNPolicy(NaNReject))
	if _, err := s.SortSingleChannel(values, offsets); !errors.Is(err, ErrNaNValue) {
		t.Errorf("NaNReject error = %v, want ErrNaNValue", err)
	}
}

func randomChannels(rng *rand.Rand, n, l int) ([][]float32, []uint32) {
	channels := make([][]float32, n)
	for c := range channels {
		channels[c] = make([]float32, l)
		for i := range channels[c] {
			channels[c][i] = float32(rng.IntN(l/3+1)) * 0.5
		}
	}
	offsets := make([]uint32, l)
	for i := range offsets {
		offsets[i] = uint32(i * 3)
	}
	rng.Shuffle(l, func(i, j int) { offsets[i], offsets[j] = offsets[j], offsets[i] })
	return channels, offsets
}

// valueAt maps an output offset back to its value in channel c.
func valueAt(channels [][]float32, offsets []uint32, c int, off uint32) float32 {
	i := slices.Index(offsets, off)
	return channels[c][i]
}

func TestSortProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	s := New(WithWorkers(4), WithParallelThreshold(64))
	defer s.Close()

	for _, l := range []int{1, 2, 5, 31, 64, 100, 513} {
		channels, offsets := randomChannels(rng, 3, l)
		out, err := s.SortMultiChannel(channels, offsets, 3)
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != l*3 {
			t.Fatalf("L=%d: output length %d, want %d", l, len(out), l*3)
		}

		for c := range 3 {
			column := make([]uint32, l)
			for i := range l {
				column[i] = out[i*3+c]
			}

			// Ordering.
			for i := 1; i < l; i++ {
				if valueAt(channels, offsets, c, column[i-1]) > valueAt(channels, offsets, c, column[i]) {
					t.Fatalf("L=%d channel %d: values not ascending at %d", l, c, i)
				}
			}

			// Permutation validity.
			got := slices.Clone(column)
			want := slices.Clone(offsets)
			slices.Sort(got)
			slices.Sort(want)
			if !slices.Equal(got, want) {
				t.Fatalf("L=%d channel %d: offsets are not a permutation of the input", l, c)
			}
		}
	}
}

func TestSortChannelIndependence(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	channels, offsets := randomChannels(rng, 2, 200)

	before, err := SortMultiChannel(channels, offsets, 2)
	if err != nil {
		t.Fatal(err)
	}

	for i := range channels[1] {
		channels[1][i] = rng.Float32() * 1000
	}
	after, err := SortMultiChannel(channels, offsets, 2)
	if err != nil {
		t.Fatal(err)
	}

	for i := range 200 {
		if before[i*2] != after[i*2] {
			t.Fatalf("channel 0 changed at %d after rewriting channel 1", i)
		}
	}
}

func TestSorterMatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 9))
	channels, offsets := randomChannels(rng, 4, 3000)

	want, err := SortMultiChannel(channels, offsets, 4)
	if err != nil {
		t.Fatal(err)
	}

	s := New(WithWorkers(3), WithParallelThreshold(256))
	defer s.Close()
	got, err := s.SortMultiChannel(channels, offsets, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, want) {
		t.Error("pooled Sorter diverged from the serial network")
	}
}

func TestSorterTieBreakOffset(t *testing.T) {
	s := New(WithWorkers(1), WithTieBreak(TieBreakOffset))
	got, err := s.SortSingleChannel([]float32{1, 1, 1, 0}, []uint32{30, 10, 20, 40})
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint32{40, 10, 20, 30}; !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if s.TieBreak() != TieBreakOffset {
		t.Errorf("TieBreak() = %v", s.TieBreak())
	}
}

func TestSortChannelsReturnsValues(t *testing.T) {
	sorted, err := serial.SortChannels([][]float32{{3, 1, 2}}, []uint32{10, 20, 30})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(sorted[0].Values, []float32{1, 2, 3}) {
		t.Errorf("Values = %v", sorted[0].Values)
	}
}

func TestClosedSorterStillSorts(t *testing.T) {
	s := New(WithWorkers(2), WithParallelThreshold(2))
	s.Close()

	got, err := s.SortSingleChannel([]float32{2, 1, 0}, []uint32{0, 1, 2})
	if err != nil || !slices.Equal(got, []uint32{2, 1, 0}) {
		t.Errorf("closed sorter: %v, %v", got, err)
	}
}

func TestCloseDuringSorts(t *testing.T) {
	rng := rand.New(rand.NewPCG(12, 13))
	channels, offsets := randomChannels(rng, 3, 2048)
	want, err := SortMultiChannel(channels, offsets, 3)
	if err != nil {
		t.Fatal(err)
	}

	s := New(WithWorkers(4), WithParallelThreshold(64))
	const sorters = 8
	errs := make(chan error, sorters)
	started := make(chan struct{}, sorters)
	for range sorters {
		go func() {
			started <- struct{}{}
			for range 5 {
				got, err := s.SortMultiChannel(channels, offsets, 3)
				if err != nil {
					errs <- err
					return
				}
				if !slices.Equal(got, want) {
					errs <- errors.New("output diverged from the serial network")
					return
				}
			}
			errs <- nil
		}()
	}
	for range sorters {
		<-started
	}
	s.Close()

	timeout := time.After(30 * time.Second)
	for range sorters {
		select {
		case err := <-errs:
			if err != nil {
				t.Error(err)
			}
		case <-timeout:
			t.Fatal("sorts did not finish after Close")
		}
	}
	s.Close()
}
