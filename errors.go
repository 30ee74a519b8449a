package autoptr

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

var (
	// ErrAllocationFailed is returned when an allocator cannot serve a block.
	ErrAllocationFailed = errors.New("autoptr: allocation failed")

	// ErrNotCounted is returned when shared ownership is requested for a
	// block built without reference counting.
	ErrNotCounted = errors.New("autoptr: block has no reference counting")

	// ErrNoWeak is returned when a weak handle is requested for a block
	// built WithoutWeak.
	ErrNoWeak = errors.New("autoptr: block has no weak count")

	// ErrLockTableInUse is returned when the lock table is resized after the
	// atomic layer has started using it.
	ErrLockTableInUse = errors.New("autoptr: lock table already in use")

	// ErrInvalidConfig reports a configuration that fails validation.
	ErrInvalidConfig = errors.New("autoptr: invalid config")
)

// invariantf reports misuse of a block. It never returns.
func invariantf(format string, args ...any) {
	err := errors.AssertionFailedf(format, args...)
	Logger().Error("autoptr invariant violated", zap.Error(err))
	panic(err)
}
