package autoptr

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
)

var threadLocalDefault = atomic.NewBool(false)

type options struct {
	threadLocal bool
	noWeak      bool
	noCounting  bool
}

// Option adjusts the control block a builder creates.
type Option func(*options)

// ThreadLocal builds a block whose counters use plain arithmetic. Its
// handles must stay on one goroutine and never enter an AtomicShared.
func ThreadLocal() Option {
	return func(o *options) { o.threadLocal = true }
}

// ThreadSafe builds a block whose counters use atomic arithmetic. This is
// the default unless Config.ThreadLocalDefault is set.
func ThreadSafe() Option {
	return func(o *options) { o.threadLocal = false }
}

// WithoutWeak omits the weak counter. The block is freed as soon as the
// last owner releases it, and Weak() on its handles panics.
func WithoutWeak() Option {
	return func(o *options) { o.noWeak = true }
}

// WithoutCounting omits both counters. Only exclusive handles accept it.
func WithoutCounting() Option {
	return func(o *options) { o.noCounting = true }
}

func buildOptions(opts []Option) options {
	o := options{threadLocal: threadLocalDefault.Load()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) mode() Mode {
	var m Mode
	if !o.noCounting {
		m |= modeCounted
		if !o.noWeak {
			m |= modeWeak
		}
	}
	if !o.threadLocal {
		m |= modeAtomic
	}
	return m
}

// sharedMode is mode() for builders that hand out shared handles.
func (o options) sharedMode() (Mode, error) {
	if o.noCounting {
		return 0, errors.WithStack(ErrNotCounted)
	}
	return o.mode(), nil
}
