package autoptr

import (
	"cmp"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Owner is implemented by owning handles. Alias and AliasSlice accept any
// Owner so an alias can share a block with a handle of a different type.
type Owner interface {
	ownerControl() *ControlBlock
}

// owner is the counter side of an owning handle. A nil control block is the
// empty state.
type owner struct {
	control *ControlBlock
}

func (o owner) ownerControl() *ControlBlock { return o.control }

// IsEmpty reports whether the handle owns nothing.
func (o owner) IsEmpty() bool { return o.control == nil }

// UseCount returns the number of owners of the block, or 0 for an empty
// handle. It is a snapshot when other goroutines hold owners.
func (o owner) UseCount() int64 { return o.control.UseCount() }

// WeakCount returns the number of weak handles to the block.
func (o owner) WeakCount() int64 { return o.control.WeakCount() }

// IsThreadSafe reports whether the block's counters are atomic. Empty
// handles report true.
func (o owner) IsThreadSafe() bool {
	return o.control == nil || o.control.threadSafe()
}

// share switches a thread-local block to atomic counting. It succeeds only
// for the sole owner of a block with no weak handles.
func (o owner) share() bool {
	c := o.control
	if c == nil || c.threadSafe() {
		return true
	}
	if c.UseCount() != 1 || c.WeakCount() != 0 {
		return false
	}
	c.mode |= modeAtomic
	return true
}

// Shared is an owning reference to a value in a managed block.
//
// A Shared must be copied with Clone and dropped with Release; copying the
// struct itself does not take a reference. The zero value is empty.
type Shared[T any] struct {
	owner
	ptr *T
}

// Get returns the element, or nil for an empty handle.
func (s Shared[T]) Get() *T { return s.ptr }

// Value returns a copy of the element. It panics on an empty handle.
func (s Shared[T]) Value() T { return *s.ptr }

// Clone returns another owner of the same block.
func (s Shared[T]) Clone() Shared[T] {
	if s.control != nil {
		s.control.addRef(false)
	}
	return s
}

// Move transfers ownership to the result and leaves s empty.
func (s *Shared[T]) Move() Shared[T] {
	out := *s
	*s = Shared[T]{}
	return out
}

// Assign releases the current value of s and takes ownership of v.
func (s *Shared[T]) Assign(v Shared[T]) {
	old := *s
	*s = v
	old.Release()
}

// Swap exchanges the values of s and v.
func (s *Shared[T]) Swap(v *Shared[T]) {
	*s, *v = *v, *s
}

// Release drops the reference and leaves s empty. The payload is destroyed
// when the last owner releases it.
func (s *Shared[T]) Release() {
	c := s.control
	*s = Shared[T]{}
	if c != nil {
		c.release(false)
	}
}

// Weak returns a weak handle to the block. It panics if the block was built
// WithoutWeak.
func (s Shared[T]) Weak() Weak[T] {
	if s.control == nil {
		return Weak[T]{}
	}
	s.control.addRef(true)
	return Weak[T]{weakRef: weakRef{s.control}, ptr: s.ptr}
}

// TryWeak is Weak for blocks whose options are not known to the caller.
func (s Shared[T]) TryWeak() (Weak[T], error) {
	if s.control != nil && !s.control.hasWeak() {
		return Weak[T]{}, errors.WithStack(ErrNoWeak)
	}
	return s.Weak(), nil
}

// Share makes a thread-local block usable from any goroutine. It reports
// false, leaving the block unchanged, unless s is the only handle.
func (s Shared[T]) Share() bool { return s.share() }

// Equal reports whether both handles refer to the same element.
func (s Shared[T]) Equal(v Shared[T]) bool { return s.ptr == v.ptr }

// Compare orders handles by element address. Empty handles sort first.
func (s Shared[T]) Compare(v Shared[T]) int {
	return cmp.Compare(uintptr(unsafe.Pointer(s.ptr)), uintptr(unsafe.Pointer(v.ptr)))
}

// Alias returns an owner of o's block whose element is elem, typically a
// field of o's payload. The alias keeps the whole block alive. An empty o or
// a nil elem gives an empty handle.
func Alias[U any](o Owner, elem *U) Shared[U] {
	c := o.ownerControl()
	if c == nil || elem == nil {
		return Shared[U]{}
	}
	c.addRef(false)
	return Shared[U]{owner: owner{c}, ptr: elem}
}
