// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package gpu runs the pixsort bitonic network as wgpu/hal compute passes.
//
// The kernel executes the same stage schedule and compare-exchange rule as
// the CPU sorter, on the same order-preserving u32 keys, so for a given
// tie-break mode both produce identical offsets. One compute pass is
// recorded per (k, j) stage; passes in a single command encoder are
// separated by implicit storage barriers.
//
// A Sorter either owns its device (OpenSorter) or borrows one from the host
// application (NewSorter, NewSorterFromProvider):
//
//	s, err := gpu.OpenSorter()
//	if err != nil {
//		// no Vulkan device; fall back to pixsort.SortMultiChannel
//	}
//	defer s.Close()
//	out, err := s.SortMultiChannel(ctx, channels, offsets, len(channels))
//
// Build with -tags nogpu to exclude this package.
package gpu
