//go:build !nogpu

package gpu

import (
	"time"

	"github.com/gogpu/pixsort"
)

// DefaultFenceTimeout bounds the wait for one sort submission.
const DefaultFenceTimeout = 5 * time.Second

type options struct {
	fenceTimeout time.Duration
	tieBreak     pixsort.TieBreak
	nan          pixsort.NaNPolicy
}

func defaultOptions() options {
	return options{
		fenceTimeout: DefaultFenceTimeout,
		tieBreak:     pixsort.TieBreakNone,
		nan:          pixsort.NaNLast,
	}
}

// Option configures a Sorter.
type Option func(*options)

// WithFenceTimeout sets how long a sort waits for the device. Values <= 0 are
// ignored.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fenceTimeout = d
		}
	}
}

// WithTieBreak selects how entries with equal keys are ordered.
func WithTieBreak(tb pixsort.TieBreak) Option {
	return func(o *options) {
		o.tieBreak = tb
	}
}

// WithNaNPolicy selects where NaN values sort, or whether they are rejected.
func WithNaNPolicy(p pixsort.NaNPolicy) Option {
	return func(o *options) {
		o.nan = p
	}
}
