// Package pixsort sorts per-pixel offsets by one or more scalar channels using
// a bitonic sorting network.
//
// # Overview
//
// A GPU point/splat renderer orders per-pixel contributions by a projected
// scalar (depth, a colour channel) before compositing. pixsort is the CPU
// reference for that GPU sort: it runs the same data-independent bitonic
// network, with the same sentinel padding and compare rule, so its output can
// be diffed bit-for-bit against the compute shader's.
//
// # Quick Start
//
//	import "github.com/gogpu/pixsort"
//
//	// One channel: offsets ordered by ascending value.
//	sorted, err := pixsort.SortSingleChannel(
//	    []float32{3.0, 1.0, 2.0},
//	    []uint32{10, 20, 30},
//	) // [20 30 10]
//
//	// Several channels sharing one offset array. The result is
//	// channel-major interleaved: index i*N+c holds channel c's i-th offset.
//	out, err := pixsort.SortMultiChannel(
//	    [][]float32{{5, 1}, {2, 9}},
//	    []uint32{100, 200},
//	    2,
//	) // [200 100 100 200]
//
// # Sorter
//
// The package-level functions run serially with default options. A Sorter
// owns a worker pool, sorts channels concurrently and splits large networks
// across cores:
//
//	s := pixsort.New(pixsort.WithWorkers(8), pixsort.WithTieBreak(pixsort.TieBreakOffset))
//	defer s.Close()
//	out, err := s.SortMultiChannel(channels, offsets, len(channels))
//
// # Ordering
//
// Values are compared through an order-preserving integer key, so -0 sorts
// before +0 and NaN has a defined position (see NaNPolicy). Equal values keep
// the relative order the network leaves them in unless TieBreakOffset is set.
//
// # Related packages
//
//   - gpu: the WGSL compute-shader implementation driven through gogpu/wgpu
//   - verify: diffs a GPU result against this package
//   - fixture: compressed on-disk sort cases for regression runs
//   - imagekey: derives channel values and offsets from images
package pixsort

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
