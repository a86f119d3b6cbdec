// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package bitonic implements the CPU reference of the bitonic sorting network
// used by the GPU pixel-offset sort.
//
// The network operates on (key, payload) pairs of uint32. Keys are derived
// from float32 values through an order-preserving bit transform (see Key), so
// the CPU and the WGSL kernel compare exactly the same integers. Inputs whose
// length is not a power of two are padded with sentinel pairs that always
// sort to the tail and are truncated away afterwards.
//
// The stage schedule is fixed and data-independent:
//
//	for k := 2; k <= P; k *= 2 {
//	    for j := k / 2; j > 0; j /= 2 {
//	        for i := 0; i < P; i++ { compare-exchange(i, i^j) }
//	    }
//	}
//
// Stages returns this schedule so GPU dispatch can replay it pass by pass.
//
// Reference: hwy/contrib/sort BitonicMerge (go-highway) and the WGSL kernel in
// gpu/shaders/bitonic.wgsl.
package bitonic
