package pixsort

import (
	"fmt"
	"strings"

	"github.com/gogpu/pixsort/internal/bitonic"
)

// TieBreak selects how equal values are ordered.
type TieBreak uint8

const (
	// TieBreakNone leaves equal values in the order the network produces.
	// The network is data-independent, so the result is still deterministic
	// and matches any implementation of the same network.
	TieBreakNone TieBreak = iota

	// TieBreakOffset orders equal values by ascending offset, giving the
	// unique (value, offset) order.
	TieBreakOffset
)

// String returns the flag spelling of the tie-break mode.
func (t TieBreak) String() string {
	switch t {
	case TieBreakNone:
		return "none"
	case TieBreakOffset:
		return "offset"
	default:
		return fmt.Sprintf("TieBreak(%d)", t)
	}
}

// ParseTieBreak parses "none" or "offset".
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return TieBreakNone, nil
	case "offset":
		return TieBreakOffset, nil
	}
	return TieBreakNone, fmt.Errorf("pixsort: unknown tie-break %q", s)
}

// NaNPolicy selects how NaN values are handled.
type NaNPolicy uint8

const (
	// NaNLast orders NaN after +Inf.
	NaNLast NaNPolicy = iota

	// NaNFirst orders NaN before -Inf.
	NaNFirst

	// NaNReject fails the sort with ErrNaNValue.
	NaNReject
)

// String returns the flag spelling of the policy.
func (p NaNPolicy) String() string {
	switch p {
	case NaNLast:
		return "last"
	case NaNFirst:
		return "first"
	case NaNReject:
		return "reject"
	default:
		return fmt.Sprintf("NaNPolicy(%d)", p)
	}
}

// ParseNaNPolicy parses "last", "first" or "reject".
func ParseNaNPolicy(s string) (NaNPolicy, error) {
	switch strings.ToLower(s) {
	case "last", "":
		return NaNLast, nil
	case "first":
		return NaNFirst, nil
	case "reject":
		return NaNReject, nil
	}
	return NaNLast, fmt.Errorf("pixsort: unknown NaN policy %q", s)
}

func (p NaNPolicy) order() bitonic.NaNOrder {
	if p == NaNFirst {
		return bitonic.NaNFirst
	}
	return bitonic.NaNLast
}

// Option configures a Sorter during creation.
//
// Example:
//
//	s := pixsort.New(
//	    pixsort.WithWorkers(4),
//	    pixsort.WithNaNPolicy(pixsort.NaNReject),
//	)
type Option func(*options)

type options struct {
	workers           int
	tieBreak          TieBreak
	nan               NaNPolicy
	parallelThreshold int
}

func defaultOptions() options {
	return options{
		workers:           0, // GOMAXPROCS
		tieBreak:          TieBreakNone,
		nan:               NaNLast,
		parallelThreshold: bitonic.DefaultParallelThreshold,
	}
}

// WithWorkers sets the worker pool size. Values <= 0 use GOMAXPROCS.
// One worker disables intra-network parallelism.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTieBreak sets the ordering of equal values.
func WithTieBreak(t TieBreak) Option {
	return func(o *options) {
		o.tieBreak = t
	}
}

// WithNaNPolicy sets how NaN values are ordered or rejected.
func WithNaNPolicy(p NaNPolicy) Option {
	return func(o *options) {
		o.nan = p
	}
}

// WithParallelThreshold sets the padded length from which one channel's
// network is split across the worker pool. Values <= 0 keep the default.
func WithParallelThreshold(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parallelThreshold = n
		}
	}
}
