//go:build !nogpu

package main

import (
	"github.com/gogpu/pixsort"
	"github.com/gogpu/pixsort/gpu"
)

type gpuDevice struct {
	dev *gpu.Device
}

func openGPU() (*gpuDevice, error) {
	dev, err := gpu.Open()
	if err != nil {
		return nil, err
	}
	return &gpuDevice{dev: dev}, nil
}

// sorter builds a GPU sorter on the shared device.
func (g *gpuDevice) sorter(tb pixsort.TieBreak, nan pixsort.NaNPolicy) (closingBackend, error) {
	return gpu.NewSorter(g.dev.Device, g.dev.Queue, gpu.WithTieBreak(tb), gpu.WithNaNPolicy(nan))
}

func (g *gpuDevice) name() string { return g.dev.Name }

func (g *gpuDevice) Close() { g.dev.Close() }
