//go:build nogpu

package main

import (
	"errors"

	"github.com/gogpu/pixsort"
)

type gpuDevice struct{}

func openGPU() (*gpuDevice, error) {
	return nil, errors.New("built with -tags nogpu")
}

func (g *gpuDevice) sorter(pixsort.TieBreak, pixsort.NaNPolicy) (closingBackend, error) {
	return nil, errors.New("built with -tags nogpu")
}

func (g *gpuDevice) name() string { return "" }

func (g *gpuDevice) Close() {}
