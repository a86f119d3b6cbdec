//go:build !nogpu

package gpu

import "errors"

var (
	// ErrNoDevice is returned by Open when no Vulkan adapter can be opened.
	ErrNoDevice = errors.New("gpu: no device available")

	// ErrClosed is returned when sorting on a closed Sorter.
	ErrClosed = errors.New("gpu: sorter closed")

	// ErrTooLarge is returned when the padded length needs more workgroups
	// than a single dispatch dimension allows.
	ErrTooLarge = errors.New("gpu: input too large for one dispatch")

	// ErrTimeout is returned when the fence is not signalled in time.
	ErrTimeout = errors.New("gpu: timed out waiting for device")
)
