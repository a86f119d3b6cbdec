package main

import (
	"github.com/gogpu/pixsort"
	"github.com/gogpu/pixsort/verify"
)

// closingBackend is a verify.Backend holding resources.
type closingBackend interface {
	verify.Backend
	Close()
}

// cpuBackend adapts a pooled CPU sorter to closingBackend.
type cpuBackend struct {
	*verify.CPUBackend
}

func newCPUBackend(opts ...pixsort.Option) cpuBackend {
	return cpuBackend{verify.NewCPUBackend(pixsort.New(opts...))}
}

func (b cpuBackend) Close() { b.Sorter.Close() }
